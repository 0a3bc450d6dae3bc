package amqp

import (
	"encoding/json"
	"time"
)

// ReportExportMessage tells the worker which export job to run. It
// carries only identifiers; the worker loads the job row and the
// month's records from the database.
type ReportExportMessage struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	ReportType string    `json:"report_type"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewReportExportMessage(id, userID int64, year, month int, reportType string) *ReportExportMessage {
	return &ReportExportMessage{
		ID:         id,
		UserID:     userID,
		Year:       year,
		Month:      month,
		ReportType: reportType,
		Timestamp:  time.Now(),
	}
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
