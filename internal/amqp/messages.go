package amqp

import (
	"encoding/json"
	"time"
)

// TransactionRecordedMessage announces one confirmed ledger row. It carries
// only the id and kind; the worker fetches the full row from the mirror.
type TransactionRecordedMessage struct {
	ID        int64     `json:"id"`
	Tipo      string    `json:"tipo"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionRecordedMessage creates an event for a confirmed row.
func NewTransactionRecordedMessage(id int64, tipo string) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		ID:        id,
		Tipo:      tipo,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedMessageFromJSON creates a message from JSON bytes
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
