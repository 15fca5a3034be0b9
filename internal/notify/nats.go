package notify

import (
	model "bulk-auction/internal/models"
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix is prepended to the listing ID to form the publish subject
const SubjectPrefix = "auction.events."

// NATSDispatcher publishes events as JSON on auction.events.<listingID>
type NATSDispatcher struct {
	conn *nats.Conn
}

// NewNATSDispatcher connects to the NATS server at url
func NewNATSDispatcher(url string) (*NATSDispatcher, error) {
	conn, err := nats.Connect(url, nats.Name("bulk-auction"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSDispatcher{conn: conn}, nil
}

// Dispatch publishes the event
func (d *NATSDispatcher) Dispatch(_ context.Context, event model.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notify: failed to encode event %s: %w", event.EventID, err)
	}
	if err := d.conn.Publish(SubjectPrefix+event.ListingID, payload); err != nil {
		return fmt.Errorf("notify: failed to publish event %s: %w", event.EventID, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection
func (d *NATSDispatcher) Close() error {
	return d.conn.Drain()
}
