package appointments

import (
	"context"
	"sync"
	"time"

	"github.com/agendadental/clinicdesk/internal/dates"
	"github.com/agendadental/clinicdesk/pkg/logging"
)

const defaultDebounce = 300 * time.Millisecond

// AvailabilityAPI is the slice of the backend client the checker needs.
type AvailabilityAPI interface {
	CheckAvailability(ctx context.Context, profesionalID int64, fecha, hora string) (bool, error)
}

// Checker validates a (professional, date, time) triple against the backend.
// It is used twice per dialog: debounced while the time field changes, and
// once more at submit as a guard against the race between the last debounce
// tick and the submit click.
type Checker struct {
	api      AvailabilityAPI
	debounce time.Duration
	logger   *logging.Logger

	mu    sync.Mutex
	timer *time.Timer
}

func NewChecker(api AvailabilityAPI, debounce time.Duration, logger *logging.Logger) *Checker {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Checker{api: api, debounce: debounce, logger: logger}
}

// Check asks the backend whether the slot is free. hora may be HH:mm or
// HH:mm:ss; invalid input is rejected without a network call. Probe failures
// fail closed: the slot is reported unavailable rather than risking a
// double-booking on an unverified submit.
func (c *Checker) Check(ctx context.Context, profesionalID int64, fecha, hora string) (bool, error) {
	normalized, err := dates.NormalizeTime(hora)
	if err != nil {
		return false, err
	}
	available, err := c.api.CheckAvailability(ctx, profesionalID, fecha, normalized)
	if err != nil {
		c.logger.Warn("availability probe failed, treating slot as taken",
			"profesional_id", profesionalID,
			"fecha", fecha,
			"hora", normalized,
			"error", err,
		)
		return false, err
	}
	return available, nil
}

// Schedule runs Check after the debounce window, resetting any pending probe;
// only the last edit within the window reaches the backend. When professional,
// date or time is missing the pending probe is dropped and fn is not called,
// mirroring the form clearing its inline error.
func (c *Checker) Schedule(profesionalID int64, fecha, hora string, fn func(available bool, err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if profesionalID == 0 || fecha == "" || hora == "" {
		return
	}
	c.timer = time.AfterFunc(c.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		fn(c.Check(ctx, profesionalID, fecha, hora))
	})
}

// Cancel drops any pending debounced probe (view teardown).
func (c *Checker) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
