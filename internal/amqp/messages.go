package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	KindSync   = "sync"
	KindDelete = "delete"
)

// Message is a lightweight transaction event. It carries only the kind
// and identifier; consumers fetch the full row from the database.
type Message struct {
	Kind      string    `json:"kind"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSyncMessage creates an event asking the worker to mirror a
// transaction to the ledger.
func NewSyncMessage(id int64) *Message {
	return &Message{Kind: KindSync, ID: id, Timestamp: time.Now()}
}

// NewDeleteMessage creates an event recording a local deletion.
func NewDeleteMessage(id int64) *Message {
	return &Message{Kind: KindDelete, ID: id, Timestamp: time.Now()}
}

// ToJSON converts the message to JSON bytes.
func (m *Message) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MessageFromJSON creates a message from JSON bytes.
func MessageFromJSON(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Kind {
	case KindSync, KindDelete:
	default:
		return nil, fmt.Errorf("unknown message kind %q", msg.Kind)
	}
	return &msg, nil
}
