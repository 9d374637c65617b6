package service

import (
	"context"
	"sync"
	"time"

	"github.com/solscope/phoenixscope/internal/pkg/apperrors"
	"github.com/solscope/phoenixscope/internal/pkg/metrics"
)

// CreditStore is the prepaid-credit gate backed by the analytics store.
type CreditStore interface {
	// Debit takes one credit atomically; false means none remain.
	Debit(ctx context.Context, userID string) (bool, error)
}

type window struct {
	remaining int
	start     time.Time
}

// Admission is per-user admission control: a fixed quota per rolling
// window anchored at the first request in the window, then a prepaid
// credit gate. The limiter is checked first — it is local and cheap —
// and a rate-limited request never reaches the credit store.
type Admission struct {
	credits CreditStore
	quota   int
	window  time.Duration

	mu      sync.Mutex
	windows map[string]*window

	now func() time.Time
}

func NewAdmission(credits CreditStore, quota int, windowDur time.Duration) *Admission {
	if quota <= 0 {
		quota = 10
	}
	if windowDur <= 0 {
		windowDur = time.Minute
	}
	return &Admission{
		credits: credits,
		quota:   quota,
		window:  windowDur,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Admit applies both gates for one request. The window map is only held
// for the check-and-decrement; the credit call runs outside the lock.
func (a *Admission) Admit(ctx context.Context, userID string) error {
	if err := a.admitWindow(userID); err != nil {
		metrics.AdmissionRejects.WithLabelValues("rate_limited").Inc()
		return err
	}

	ok, err := a.credits.Debit(ctx, userID)
	if err != nil {
		return apperrors.New(apperrors.ErrStoreRead, "credit check failed", err)
	}
	if !ok {
		metrics.AdmissionRejects.WithLabelValues("insufficient_credits").Inc()
		return apperrors.NewInsufficientCredits(userID)
	}
	return nil
}

func (a *Admission) admitWindow(userID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	w, ok := a.windows[userID]
	if !ok {
		w = &window{remaining: a.quota, start: now}
		a.windows[userID] = w
	} else if now.Sub(w.start) >= a.window {
		w.remaining = a.quota
		w.start = now
	}

	if w.remaining == 0 {
		return apperrors.NewRateLimited()
	}
	w.remaining--
	return nil
}
