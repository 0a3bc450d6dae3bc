package storage

import (
	"context"
	"fmt"

	"cbms/internal/core"
)

func (r *SQLiteRepository) CreatePerson(ctx context.Context, p core.Person) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO people (user_id, name, email, phone, job_title)
		 VALUES (?, ?, ?, ?, ?)`,
		p.UserID, p.Name, p.Email, p.Phone, p.JobTitle)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicateEmail
		}
		return 0, fmt.Errorf("create person: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create person id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetPerson(ctx context.Context, userID, id int64) (*core.Person, error) {
	var p core.Person
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, email, phone, job_title
		 FROM people WHERE id = ? AND user_id = ?`,
		id, userID).Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.JobTitle)
	if err != nil {
		return nil, scanErr(err)
	}
	return &p, nil
}

// GetPersonByName looks a person up by exact name within one user's
// contacts; used by expense creation to reuse an existing person.
func (r *SQLiteRepository) GetPersonByName(ctx context.Context, userID int64, name string) (*core.Person, error) {
	var p core.Person
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, email, phone, job_title
		 FROM people WHERE user_id = ? AND name = ?
		 ORDER BY id LIMIT 1`,
		userID, name).Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.JobTitle)
	if err != nil {
		return nil, scanErr(err)
	}
	return &p, nil
}

func (r *SQLiteRepository) HasPersonWithEmail(ctx context.Context, userID int64, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM people WHERE user_id = ? AND email = ?`,
		userID, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count people by email: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListPeople(ctx context.Context, userID int64) ([]core.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, email, phone, job_title
		 FROM people WHERE user_id = ? ORDER BY name, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var people []core.Person
	for rows.Next() {
		var p core.Person
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Email, &p.Phone, &p.JobTitle); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func (r *SQLiteRepository) CountPeople(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM people WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count people: %w", err)
	}
	return n, nil
}

// DeletePerson removes a person owned by userID. Their expenses go with
// them via the foreign key cascade.
func (r *SQLiteRepository) DeletePerson(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM people WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete person rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
