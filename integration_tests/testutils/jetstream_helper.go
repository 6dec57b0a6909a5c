package testutils

import (
	"context"
	"errors"
	"log"

	"github.com/nats-io/nats.go/jetstream"
)

// ResetJetStreamState purges every message from the named streams and keeps
// their consumers.
func (env *TestEnvironment) ResetJetStreamState(ctx context.Context, streamNames ...string) error {
	if env.JetStream == nil {
		return errors.New("JetStream not initialized")
	}

	for _, name := range streamNames {
		stream, err := env.JetStream.Stream(ctx, name)
		if err != nil {
			if errors.Is(err, jetstream.ErrStreamNotFound) {
				continue
			}
			log.Printf("Warning: failed to access stream %s: %v", name, err)
			continue
		}
		if err := stream.Purge(ctx); err != nil {
			log.Printf("Warning: failed to purge stream %s: %v", name, err)
		}
	}
	return nil
}
