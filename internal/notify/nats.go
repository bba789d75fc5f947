package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/abrezinsky/basta/internal/logger"
	"github.com/abrezinsky/basta/internal/models"
)

type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events on <prefix>.<room_id>
type NATSPublisher struct {
	conn   natsConn
	prefix string
}

// DialNATS connects to url and returns a publisher for subjects under prefix
func DialNATS(url, prefix string, log logger.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("basta"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(10*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Debug("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return NewNATSPublisher(conn, prefix), nil
}

// NewNATSPublisher wraps an established connection
func NewNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject events for roomID are published on
func (p *NATSPublisher) Subject(roomID string) string {
	return p.prefix + "." + roomID
}

// Publish implements Publisher
func (p *NATSPublisher) Publish(_ context.Context, ev models.ChangeEvent) error {
	data, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.Subject(ev.RoomID.String()), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}
