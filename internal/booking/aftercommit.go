package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trainerbook/internal/logger"
	"trainerbook/internal/metrics"
)

const DefaultSideEffectTimeout = 10 * time.Second

// sideEffect is work done after a commit. It may fail; the booking stands.
type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

// runSideEffects runs every effect concurrently, each with its own deadline,
// and waits for all of them. Failures and panics are logged and counted.
func (s *Service) runSideEffects(ctx context.Context, op string, bookingID int, effects []sideEffect) {
	base := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, e := range effects {
		wg.Add(1)
		go func(e sideEffect) {
			defer wg.Done()
			err := s.runSideEffect(base, e)
			if err != nil {
				logger.Warn("side effect failed",
					"operation", op, "booking_id", bookingID, "task", e.name, "error", err)
				metrics.RecordSideEffect(e.name, "failed")
				return
			}
			metrics.RecordSideEffect(e.name, "ok")
		}(e)
	}
	wg.Wait()
}

func (s *Service) runSideEffect(base context.Context, e sideEffect) (err error) {
	ctx, cancel := context.WithTimeout(base, s.sideEffectTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return e.run(ctx)
}
