package pipeline

import (
	"context"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

// publish retries with exponential backoff, doubling from publishBackoff
// and capped at 5s.
func (s *Service) publish(ctx context.Context, results []domain.CalculatedRecord) error {
	backoff := s.publishBackoff
	maxBackoff := 5 * time.Second

	var err error
	for attempt := 1; attempt <= s.publishAttempts; attempt++ {
		if err = s.publisher.Publish(ctx, results); err == nil {
			return nil
		}
		if attempt == s.publishAttempts || ctx.Err() != nil {
			break
		}
		s.logger.Warn("publish attempt failed", "attempt", attempt, "error", err)
		if !retry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return err
}
