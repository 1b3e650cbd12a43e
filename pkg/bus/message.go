package bus

import (
	"encoding/json"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Message is the envelope carried on every topic.
type Message struct {
	Topic     string          `json:"topic"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage wraps payload for topic with the current timestamp.
func NewMessage(topic string, payload any) (*Message, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = codec.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s payload: %w", topic, err)
		}
	}
	return &Message{
		Topic:     topic,
		Timestamp: time.Now().UnixMilli(),
		Data:      raw,
	}, nil
}

// ParseData unmarshals the payload into v.
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return fmt.Errorf("message on %s has no data", m.Topic)
	}
	return codec.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message.
func (m *Message) Bytes() ([]byte, error) {
	return codec.Marshal(m)
}

// ParseMessage decodes an envelope.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := codec.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// Int32 is a single integer payload.
type Int32 struct {
	Data int32 `json:"data"`
}

// String is a single text payload.
type String struct {
	Data string `json:"data"`
}

// Float32Array is a list of floats.
type Float32Array struct {
	Data []float32 `json:"data"`
}

// Vector3 is a 3-component vector.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Twist is a velocity command.
type Twist struct {
	Linear  Vector3 `json:"linear"`
	Angular Vector3 `json:"angular"`
}

// Int parses an Int32 payload.
func (m *Message) Int() (int, error) {
	var v Int32
	if err := m.ParseData(&v); err != nil {
		return 0, err
	}
	return int(v.Data), nil
}
