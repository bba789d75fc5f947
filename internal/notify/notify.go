// Package notify fans room change events out to external message brokers so
// clients attached to other server processes see every write.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abrezinsky/basta/internal/models"
)

// Publisher delivers one change event
type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
}

// Multi publishes to every publisher in order and joins their errors
type Multi []Publisher

// Publish implements Publisher
func (m Multi) Publish(ctx context.Context, ev models.ChangeEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Encode renders an event as the JSON payload sent to brokers
func Encode(ev models.ChangeEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s event: %w", ev.Table, ev.Type, err)
	}
	return data, nil
}
