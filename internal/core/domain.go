package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category and PaymentMethod are open code sets: the well-known values
// below get curated display labels, anything else is user-supplied free
// text and must still round-trip and display.
const (
	CategoryMarketing Category = "marketing"
	CategorySalaries  Category = "salaries"
	CategoryUtilities Category = "utilities"
	CategoryRent      Category = "rent"
	CategoryEquipment Category = "equipment"
	CategoryTravel    Category = "travel"
	CategoryFood      Category = "food_entertainment"
	CategoryOther     Category = "other"
)

const (
	PaymentCash          PaymentMethod = "cash"
	PaymentCard          PaymentMethod = "card"
	PaymentBankTransfer  PaymentMethod = "bank_transfer"
	PaymentCheck         PaymentMethod = "check"
	PaymentDigitalWallet PaymentMethod = "digital_wallet"
	PaymentOther         PaymentMethod = "other"
)

type (
	Category      string
	PaymentMethod string

	Date struct {
		time.Time
	}

	// Person is an employee or contact owned by a user. Expenses
	// reference people by ID; deleting a person cascades to their
	// expenses.
	Person struct {
		ID       int64
		UserID   int64
		Name     string
		Email    string
		Phone    string
		JobTitle string
	}

	Expense struct {
		ID            int64
		UserID        int64
		PersonID      int64
		PersonName    string
		Amount        decimal.Decimal
		Category      Category
		Vendor        string
		PaymentMethod PaymentMethod
		Date          Date
		Notes         string
	}

	// Income keeps its person as free text rather than a Person
	// reference. The asymmetry with Expense is deliberate: income
	// counterparties are not validated or deduplicated against the
	// contact list.
	Income struct {
		ID            int64
		UserID        int64
		Person        string
		Amount        decimal.Decimal
		Source        string
		Category      Category
		PaymentMethod PaymentMethod
		Date          Date
		Notes         string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMalformedRecord = errors.New("malformed record")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyEmail      = errors.New("empty email")
	ErrEmptySource     = errors.New("empty source")
)

// Record is the shape the aggregation functions need: a calendar date
// and an exact decimal amount. Both Expense and Income satisfy it.
type Record interface {
	When() Date
	Value() decimal.Decimal
}

func (e Expense) When() Date             { return e.Date }
func (e Expense) Value() decimal.Decimal { return e.Amount }
func (i Income) When() Date              { return i.Date }
func (i Income) Value() decimal.Decimal  { return i.Amount }

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a date in YYYY-MM-DD form.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month (1-12)
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String renders the date in YYYY-MM-DD form.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (p Person) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(p.Email) == "" {
		return ErrEmptyEmail
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.PersonName) == "" {
		return ErrEmptyName
	}
	return ValidateAmount(e.Amount)
}

func (i Income) Validate() error {
	if err := i.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(i.Person) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(i.Source) == "" {
		return ErrEmptySource
	}
	return ValidateAmount(i.Amount)
}
