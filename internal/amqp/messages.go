package amqp

import (
	"encoding/json"
	"time"
)

// RecordSyncMessage asks the worker to export one daily record. It carries
// only the key; the worker loads the current state from the database so a
// stale message can never overwrite newer data.
type RecordSyncMessage struct {
	UserID    string    `json:"user_id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Timestamp time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(userID, date string) *RecordSyncMessage {
	return &RecordSyncMessage{
		UserID:    userID,
		Date:      date,
		Timestamp: time.Now(),
	}
}

func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
