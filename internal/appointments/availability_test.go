package appointments

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAvailability struct {
	mu        sync.Mutex
	calls     int
	lastHora  string
	available bool
	err       error
}

func (f *fakeAvailability) CheckAvailability(ctx context.Context, profesionalID int64, fecha, hora string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastHora = hora
	return f.available, f.err
}

func (f *fakeAvailability) snapshot() (int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls, f.lastHora
}

func TestCheckNormalizesTime(t *testing.T) {
	api := &fakeAvailability{available: true}
	c := NewChecker(api, 0, nil)

	ok, err := c.Check(t.Context(), 7, "2024-03-10", "09:00")
	require.NoError(t, err)
	assert.True(t, ok)
	_, hora := api.snapshot()
	assert.Equal(t, "09:00:00", hora)
}

func TestCheckRejectsInvalidTimeWithoutNetworkCall(t *testing.T) {
	api := &fakeAvailability{available: true}
	c := NewChecker(api, 0, nil)

	ok, err := c.Check(t.Context(), 7, "2024-03-10", "9am")
	require.Error(t, err)
	assert.False(t, ok)
	calls, _ := api.snapshot()
	assert.Zero(t, calls)
}

func TestCheckFailsClosedOnProbeError(t *testing.T) {
	api := &fakeAvailability{available: true, err: errors.New("backend down")}
	c := NewChecker(api, 0, nil)

	ok, err := c.Check(t.Context(), 7, "2024-03-10", "09:00")
	require.Error(t, err)
	assert.False(t, ok, "probe errors must report the slot as taken")
}

func TestScheduleDebouncesToLastEdit(t *testing.T) {
	api := &fakeAvailability{available: true}
	c := NewChecker(api, 30*time.Millisecond, nil)

	results := make(chan bool, 1)
	for _, hora := range []string{"09:00", "09:30", "10:00"} {
		c.Schedule(7, "2024-03-10", hora, func(available bool, err error) {
			results <- available
		})
	}

	select {
	case available := <-results:
		assert.True(t, available)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced probe never fired")
	}

	calls, hora := api.snapshot()
	assert.Equal(t, 1, calls, "only the last edit inside the window reaches the backend")
	assert.Equal(t, "10:00:00", hora)
}

func TestScheduleSkipsIncompleteInput(t *testing.T) {
	api := &fakeAvailability{available: true}
	c := NewChecker(api, 10*time.Millisecond, nil)

	fired := make(chan struct{}, 1)
	c.Schedule(0, "2024-03-10", "09:00", func(bool, error) { fired <- struct{}{} })
	c.Schedule(7, "", "09:00", func(bool, error) { fired <- struct{}{} })
	c.Schedule(7, "2024-03-10", "", func(bool, error) { fired <- struct{}{} })

	select {
	case <-fired:
		t.Fatal("probe must not fire without professional, date and time")
	case <-time.After(100 * time.Millisecond):
	}
	calls, _ := api.snapshot()
	assert.Zero(t, calls)
}

func TestCancelDropsPendingProbe(t *testing.T) {
	api := &fakeAvailability{available: true}
	c := NewChecker(api, 20*time.Millisecond, nil)

	fired := make(chan struct{}, 1)
	c.Schedule(7, "2024-03-10", "09:00", func(bool, error) { fired <- struct{}{} })
	c.Cancel()

	select {
	case <-fired:
		t.Fatal("canceled probe must not fire")
	case <-time.After(100 * time.Millisecond):
	}
}
