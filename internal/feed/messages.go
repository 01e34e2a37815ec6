package feed

import (
	"encoding/json"
	"time"
)

const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"

	TableSchedules = "schedules"
	TableLedger    = "ledger_entries"
)

// RecordChangeMessage notifies consumers that a row changed. It carries
// only the coordinates of the change; consumers re-read whatever they
// need from the database.
type RecordChangeMessage struct {
	Table     string    `json:"table"`
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Day       string    `json:"day"` // affected calendar date, "YYYY-MM-DD"
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordChange(table string, id int64, action, day string) *RecordChangeMessage {
	return &RecordChangeMessage{
		Table:     table,
		ID:        id,
		Action:    action,
		Day:       day,
		Timestamp: time.Now(),
	}
}

func (m *RecordChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordChangeFromJSON(data []byte) (*RecordChangeMessage, error) {
	var msg RecordChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
