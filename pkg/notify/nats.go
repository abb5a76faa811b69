package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSPublisher is the subset of *nats.Conn the notifier uses.
type NATSPublisher interface {
	Publish(subj string, data []byte) error
}

// NATSNotifier publishes events to NATS.
//
// Subject convention: <prefix>.<event_type>
type NATSNotifier struct {
	Conn   NATSPublisher
	Prefix string
}

var _ Notifier = (*NATSNotifier)(nil)

// NewNATSNotifier creates a notifier backed by an existing connection.
func NewNATSNotifier(conn NATSPublisher, prefix string) *NATSNotifier {
	return &NATSNotifier{Conn: conn, Prefix: prefix}
}

// DialNATS connects to url. The caller owns the returned connection.
func DialNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("donation-broker"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return conn, nil
}

// Subject is where an event of type t is published.
func (n *NATSNotifier) Subject(t EventType) string {
	if n.Prefix == "" {
		return string(t)
	}
	return n.Prefix + "." + string(t)
}

func (n *NATSNotifier) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event for NATS: %w", err)
	}
	subject := n.Subject(e.Type)
	if err := n.Conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}
