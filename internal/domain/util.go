package domain

import (
	"context"
	"encoding/json"

	"github.com/powersol-lab/backend/pkg/pubsub"
	"github.com/powersol-lab/backend/pkg/xcontext"
)

// publishEvent sends event after the state change it describes is committed.
// Consumers are informational, a failed publish is only logged.
func publishEvent(ctx context.Context, publisher pubsub.Publisher, topic, key string, event any) {
	b, err := json.Marshal(event)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot marshal %s event: %v", topic, err)
		return
	}

	if err := publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(key), Msg: b}); err != nil {
		xcontext.Logger(ctx).Warnf("Cannot publish %s event of %s: %v", topic, key, err)
	}
}
