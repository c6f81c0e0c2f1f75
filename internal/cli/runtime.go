package cli

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/aravindh-murugesan/coldsnap/internal/breaker/cancel"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/driver"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/logging"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/orchestrator"
	"github.com/aravindh-murugesan/coldsnap/internal/breaker/session"
)

// runtime bundles the pieces every mutating command needs: a logger
// tagged with a fresh run id, an AWS session, a driver registry, a
// cancellation token wired to an ESC-key watcher, and an orchestrator
// built on top of all three.
type runtime struct {
	logger       *slog.Logger
	session      *session.Session
	registry     *driver.Registry
	cancel       *cancel.Token
	orchestrator *orchestrator.Orchestrator
}

func newRuntime(ctx context.Context) (*runtime, error) {
	runID := uuid.New().String()
	logger := logging.New(logLevel, runID, awsProfile)

	sess, err := session.New(ctx, awsProfile)
	if err != nil {
		return nil, err
	}

	registry := driver.NewRegistry(sess)
	token := cancel.New()
	cancel.WatchEscKey(ctx, token, logger)
	orch := orchestrator.New(registry, token, logger)

	return &runtime{
		logger:       logger,
		session:      sess,
		registry:     registry,
		cancel:       token,
		orchestrator: orch,
	}, nil
}
