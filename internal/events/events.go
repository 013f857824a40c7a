// Package events publishes best-effort NATS notifications of dataset
// generation lifecycle changes — a new generation published, or a
// publish attempt that failed after a swap-protocol error. It is
// adapted from the teacher's internal/events package: the same
// nats.Connect option set (reconnect wait, handlers, auth) and
// EventID/Timestamp-tagged JSON event struct shape, generalized from
// session/app lifecycle events to dataset-swap lifecycle events. As in
// the teacher, a Publisher with no configured NATS URL (or one that
// cannot connect) degrades to a disabled no-op rather than failing
// loader construction — query dispatch never depends on these events
// reaching anyone.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/osrm-go/routingd/internal/applog"
)

// NATS subject constants, following the teacher's
// "<app>.<domain>.<action>" subject naming convention.
const (
	SubjectDatasetPublished  = "routingd.dataset.published"
	SubjectDatasetSwapFailed = "routingd.dataset.swap_failed"
)

// Config holds NATS connection parameters. An empty URL disables the
// publisher entirely.
type Config struct {
	URL      string
	User     string
	Password string
}

// DatasetPublishedEvent is published after a loader successfully flips
// the control block to a new generation.
type DatasetPublishedEvent struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	Region     string    `json:"region"`
	Generation uint64    `json:"generation"`
}

// DatasetSwapFailedEvent is published when any step of a loader's
// publish protocol fails, from writing the region's table files
// through the barrier protocol; Reason names the failed step.
type DatasetSwapFailedEvent struct {
	EventID    string    `json:"event_id"`
	Timestamp  time.Time `json:"timestamp"`
	Region     string    `json:"region"`
	Generation uint64    `json:"generation"`
	Reason     string    `json:"reason"`
}

// Publisher publishes dataset lifecycle events to NATS. The zero value
// is not usable; construct with NewPublisher.
type Publisher struct {
	conn    *nats.Conn
	enabled bool
}

// NewPublisher connects to NATS per cfg. If cfg.URL is empty, or the
// connection attempt fails, it returns a disabled Publisher and a nil
// error — matching the teacher's "degrade, don't fail" convention for
// this optional side channel.
func NewPublisher(cfg Config) (*Publisher, error) {
	if cfg.URL == "" {
		applog.Events().Warn().Msg("events NATS URL not configured, dataset lifecycle events disabled")
		return &Publisher{enabled: false}, nil
	}

	opts := []nats.Option{
		nats.Name("routingd-loader"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				applog.Events().Warn().Err(err).Msg("events publisher disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			applog.Events().Info().Str("url", nc.ConnectedUrl()).Msg("events publisher reconnected")
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		applog.Events().Warn().Err(err).Str("url", cfg.URL).Msg("failed to connect events publisher, dataset lifecycle events disabled")
		return &Publisher{enabled: false}, nil
	}

	applog.Events().Info().Str("url", conn.ConnectedUrl()).Msg("events publisher connected")
	return &Publisher{conn: conn, enabled: true}, nil
}

// Close drains and closes the NATS connection. A no-op on a disabled
// publisher.
func (p *Publisher) Close() error {
	if !p.enabled {
		return nil
	}
	return p.conn.Drain()
}

// PublishDatasetPublished announces a successful generation swap. A
// no-op returning nil on a disabled publisher.
func (p *Publisher) PublishDatasetPublished(ctx context.Context, region string, generation uint64) error {
	if !p.enabled {
		return nil
	}
	return p.publish(SubjectDatasetPublished, &DatasetPublishedEvent{
		EventID:    uuid.New().String(),
		Timestamp:  time.Now(),
		Region:     region,
		Generation: generation,
	})
}

// PublishDatasetSwapFailed announces a failed publish attempt. A no-op
// returning nil on a disabled publisher.
func (p *Publisher) PublishDatasetSwapFailed(ctx context.Context, region string, generation uint64, reason string) error {
	if !p.enabled {
		return nil
	}
	return p.publish(SubjectDatasetSwapFailed, &DatasetSwapFailedEvent{
		EventID:    uuid.New().String(),
		Timestamp:  time.Now(),
		Region:     region,
		Generation: generation,
		Reason:     reason,
	})
}

func (p *Publisher) publish(subject string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
