package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/allotments-backend/pkg/enums"
)

const envelopeVersion = 1

// PayloadEnvelope is the body published for every reservation domain event.
// Consumers switch on EventType and decode Data into the matching payload struct.
type PayloadEnvelope struct {
	Version    int                   `json:"version"`
	EventID    string                `json:"eventId"`
	EventType  enums.OutboxEventType `json:"eventType"`
	OccurredAt time.Time             `json:"occurredAt"`
	Data       json.RawMessage       `json:"data"`
}

// DecodeEnvelope parses a stored payload column. Payloads that no consumer
// could interpret are rejected so the publisher parks them instead of retrying.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return PayloadEnvelope{}, err
	}
	switch {
	case env.Version != envelopeVersion:
		return PayloadEnvelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	case env.EventID == "":
		return PayloadEnvelope{}, fmt.Errorf("envelope without event id")
	case len(env.Data) == 0:
		return PayloadEnvelope{}, fmt.Errorf("envelope %s without data", env.EventID)
	}
	return env, nil
}
