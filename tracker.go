package bridge

import (
	"context"
	"sync"
	"time"
)

// Tracker timestamps successful session exchanges on the user record.
// It is strictly observational: writes run detached with their own timeout,
// and a failed write is logged, never surfaced to the authentication path.
type Tracker struct {
	store   UserStore
	logger  Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// DefaultTrackerTimeout bounds the detached metadata write.
const DefaultTrackerTimeout = 5 * time.Second

// NewTracker creates an exchange tracker over the given store.
func NewTracker(store UserStore) *Tracker {
	return &Tracker{
		store:   store,
		logger:  defLogger{},
		timeout: DefaultTrackerTimeout,
	}
}

func (t *Tracker) WithLogger(logger Logger) *Tracker {
	if logger != nil {
		t.logger = logger
	}
	return t
}

func (t *Tracker) WithTimeout(timeout time.Duration) *Tracker {
	if timeout > 0 {
		t.timeout = timeout
	}
	return t
}

// RecordExchange writes the current time into the user's
// last-session-exchange metadata field, fire and forget.
func (t *Tracker) RecordExchange(user *User) {
	if user == nil {
		return
	}

	// Work on a copy so the detached write cannot race the request-scoped
	// record the caller is still serializing.
	snapshot := *user
	snapshot.Metadata = cloneMetadata(user.Metadata)
	snapshot.SetLastExchangeAt(time.Now())

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		if err := t.store.UpdateMetadata(ctx, &snapshot); err != nil {
			t.logger.Warn(
				"exchange tracking write failed",
				"user_id", snapshot.ID.String(),
				"error", err,
			)
		}
	}()
}

// Wait blocks until every in-flight tracking write has finished. Used by
// shutdown and tests.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
