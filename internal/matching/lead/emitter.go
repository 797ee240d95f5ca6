// Package lead packages qualifying pairings into lead events and hands them
// to the broker.
package lead

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "matching-engine/internal/common/errors"
	"matching-engine/internal/common/logger"
	"matching-engine/internal/models"
)

// Publisher is the external publishing collaborator. The broker wrapper
// satisfies it in production; tests substitute a fake.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

type Config struct {
	// PublishTimeout bounds the wait for one broker acknowledgment.
	PublishTimeout time.Duration
}

// Emitter serializes leads and publishes them keyed by lead id.
type Emitter struct {
	config    *Config
	publisher Publisher
	logger    logger.Logger
}

func NewEmitter(config *Config, publisher Publisher, log logger.Logger) *Emitter {
	return &Emitter{
		config:    config,
		publisher: publisher,
		logger:    log.WithFields(map[string]interface{}{"component": "lead-emitter"}),
	}
}

// Emit publishes one lead and waits for the acknowledgment up to the
// configured timeout. Failures are surfaced to the caller, never swallowed.
func (e *Emitter) Emit(ctx context.Context, l *models.Lead) error {
	payload, err := json.Marshal(l.Message())
	if err != nil {
		return apperrors.NewPublishFailedError(l.ID, fmt.Errorf("serialize lead: %w", err))
	}

	pubCtx, cancel := context.WithTimeout(ctx, e.config.PublishTimeout)
	defer cancel()

	if err := e.publisher.Publish(pubCtx, l.ID, payload); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return apperrors.NewPublishTimeoutError(l.ID)
		}
		return apperrors.NewPublishFailedError(l.ID, err)
	}

	e.logger.Info("lead published", map[string]interface{}{
		"leadId":       l.ID,
		"preferenceId": l.PreferenceID,
		"propertyId":   l.PropertyID,
		"score":        l.Score,
	})
	return nil
}
