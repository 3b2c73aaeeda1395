package session

import (
	"encoding/json"
	"fmt"
)

const (
	readLimit = 32768

	// EventAction is the only event a client sends.
	EventAction = "action"
	// StatReady is the stat of the status event sent on connect.
	StatReady = "ready"
)

// Message is the envelope for every event, in both directions.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ActionData struct {
	Command string `json:"command"`
}

type StatusData struct {
	Stat string `json:"stat"`
}

func newMessage(event string, data any) (Message, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return Message{Event: event, Data: b}, nil
}

// Text decodes a payload that is a plain string, as for results, lastline and stateresult.
func (m Message) Text() (string, error) {
	var s string
	err := json.Unmarshal(m.Data, &s)
	if err != nil {
		return "", fmt.Errorf("decoding %s payload: %w", m.Event, err)
	}
	return s, nil
}

func (m Message) Status() (StatusData, error) {
	var s StatusData
	err := json.Unmarshal(m.Data, &s)
	if err != nil {
		return s, fmt.Errorf("decoding %s payload: %w", m.Event, err)
	}
	return s, nil
}

func (m Message) Action() (ActionData, error) {
	var a ActionData
	err := json.Unmarshal(m.Data, &a)
	if err != nil {
		return a, fmt.Errorf("decoding %s payload: %w", m.Event, err)
	}
	return a, nil
}
