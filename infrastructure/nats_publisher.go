package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

const scoringCompletedSubject = "heat_scores.computed"

// NATSPublisher announces completed scoring runs on the platform's NATS bus
// so downstream services (reward distribution, leaderboards) can react
// without polling the table. It implements interfaces.ScoringEventPublisher.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to the given NATS servers (comma-separated).
func NewNATSPublisher(servers string) (*NATSPublisher, error) {
	conn, err := nats.Connect(servers,
		nats.Name("heatscore"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

type scoringCompletedEvent struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	BaseDate     string    `json:"base_date"`
	AddressCount int       `json:"address_count"`
}

// PublishScoringCompleted publishes the run summary. Errors are returned for
// the caller to log; a publish failure never fails the scoring run.
func (p *NATSPublisher) PublishScoringCompleted(ctx context.Context, baseDate time.Time, addressCount int) error {
	event := scoringCompletedEvent{
		EventID:      uuid.New().String(),
		EventType:    scoringCompletedSubject,
		Timestamp:    time.Now().UTC(),
		BaseDate:     baseDate.Format("2006-01-02"),
		AddressCount: addressCount,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal scoring event: %w", err)
	}

	if err := p.conn.Publish(scoringCompletedSubject, payload); err != nil {
		return fmt.Errorf("failed to publish scoring event: %w", err)
	}

	log.WithFields(log.Fields{
		"eventId":  event.EventID,
		"baseDate": event.BaseDate,
		"subject":  scoringCompletedSubject,
	}).Debug("published scoring completed event")

	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		log.WithError(err).Warn("failed to drain NATS connection")
	}
}
