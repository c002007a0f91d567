// Package envelope converts document events to and from their JSON wire form.
//
// A message on the domain-events topic is a JSON object:
//
//	{"eventType":"document.updated","aggregateId":"42","occurredAt":"2025-03-01T10:00:00Z","payload":{...}}
//
// eventId is optional. When it is absent consumers identify the message by the
// SHA-256 of its raw bytes, see ResolveEventID.
package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

const (
	FieldEventType   = "eventType"
	FieldAggregateID = "aggregateId"
	FieldEventID     = "eventId"
	FieldOccurredAt  = "occurredAt"
	FieldPayload     = "payload"
)

// Envelope is a decoded domain event.
type Envelope struct {
	EventType   string
	AggregateID string
	// EventID is empty when the producer did not assign one.
	EventID string
	// OccurredAt is nil when the timestamp is absent or unparsable.
	OccurredAt *time.Time
	Payload    map[string]any
}

type wireEnvelope struct {
	EventType   string         `json:"eventType"`
	AggregateID string         `json:"aggregateId"`
	EventID     string         `json:"eventId,omitempty"`
	OccurredAt  string         `json:"occurredAt,omitempty"`
	Payload     map[string]any `json:"payload"`
}

// Encode renders a new event stamped with the current UTC time.
func Encode(eventType, aggregateID string, payload map[string]any) ([]byte, error) {
	return EncodeAt(eventType, aggregateID, payload, time.Now())
}

// EncodeAt is Encode with an explicit occurrence time.
func EncodeAt(eventType, aggregateID string, payload map[string]any, occurredAt time.Time) ([]byte, error) {
	return EncodeEnvelope(Envelope{
		EventType:   eventType,
		AggregateID: aggregateID,
		OccurredAt:  &occurredAt,
		Payload:     payload,
	})
}

// EncodeEnvelope renders env as-is, including EventID when set.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	w := wireEnvelope{
		EventType:   env.EventType,
		AggregateID: env.AggregateID,
		EventID:     env.EventID,
		Payload:     env.Payload,
	}
	if env.OccurredAt != nil {
		w.OccurredAt = env.OccurredAt.UTC().Format(time.RFC3339Nano)
	}

	raw, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%w: event %s for aggregate %s: %v", ErrSerialization, env.EventType, env.AggregateID, err)
	}
	return raw, nil
}

// Decode parses raw and checks that eventType and aggregateId are present.
// Only JSON strings count as values for the envelope's string fields.
func Decode(raw []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, &DecodeError{Kind: KindInvalidPayload, Err: err}
	}

	env := &Envelope{
		EventType:   textField(fields, FieldEventType),
		AggregateID: textField(fields, FieldAggregateID),
		EventID:     textField(fields, FieldEventID),
		OccurredAt:  parseOccurredAt(textField(fields, FieldOccurredAt)),
		Payload:     objectField(fields, FieldPayload),
	}

	if isBlank(env.EventType) {
		return nil, &DecodeError{Kind: KindMissingField, Field: FieldEventType}
	}
	if isBlank(env.AggregateID) {
		return nil, &DecodeError{Kind: KindMissingField, Field: FieldAggregateID}
	}
	return env, nil
}

func textField(fields map[string]json.RawMessage, name string) string {
	value, ok := fields[name]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(value), []byte(`"`)) {
		return ""
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return ""
	}
	return s
}

func objectField(fields map[string]json.RawMessage, name string) map[string]any {
	value, ok := fields[name]
	if !ok {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(value, &m); err != nil {
		return nil
	}
	return m
}

// zoneSuffix matches a time of day that ends in Z, ±hh:mm or ±hhmm.
var zoneSuffix = regexp.MustCompile(`T[^+-]*(Z|[+-][0-9]{2}:?[0-9]{2})$`)

// parseOccurredAt accepts an ISO-8601 instant with an explicit zone. Anything
// else, including local or date-only values, is unknown and never replaced
// with the receive time.
func parseOccurredAt(value string) *time.Time {
	value = strings.TrimSpace(value)
	if !zoneSuffix.MatchString(value) {
		return nil
	}
	t, err := iso8601.ParseString(value)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
