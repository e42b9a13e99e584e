package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quickshare/internal/domain/identity"
)

// ErrQuotaExceeded is returned when an identity has used up its monthly
// batch allowance.
var ErrQuotaExceeded = errors.New("monthly batch quota exceeded")

// Counter is the slice of batch persistence the tracker needs. Authenticated
// users are counted by owner, anonymous callers by IP; the two never overlap.
type Counter interface {
	CountByOwnerSince(ctx context.Context, ownerID int64, since time.Time) (int64, error)
	CountByIPSince(ctx context.Context, ip string, since time.Time) (int64, error)
}

// Limits hold the policy ceilings. Figures come from configuration, not code.
type Limits struct {
	UserMaxBatches  int
	GuestMaxBatches int
	UserMaxBytes    int64
	GuestMaxBytes   int64
}

type Status struct {
	Allowed     bool  `json:"allowed"`
	Used        int   `json:"used"`
	Remaining   int   `json:"remaining"`
	MaxBatches  int   `json:"max_batches"`
	ByteCeiling int64 `json:"byte_ceiling"`
}

// Service counts batches created per identity within the current calendar
// month and enforces the configured ceilings.
type Service struct {
	counter Counter
	limits  Limits
}

func New(counter Counter, limits Limits) *Service {
	return &Service{counter: counter, limits: limits}
}

// Check reports how much of the monthly allowance is left. Batches created
// in prior months do not count.
func (s *Service) Check(ctx context.Context, id identity.Identity) (Status, error) {
	since := startOfMonth(time.Now())

	var (
		used int64
		err  error
	)
	max := s.limits.GuestMaxBatches
	if id.Authenticated() {
		max = s.limits.UserMaxBatches
		used, err = s.counter.CountByOwnerSince(ctx, *id.UserID, since)
	} else {
		used, err = s.counter.CountByIPSince(ctx, id.IP, since)
	}
	if err != nil {
		return Status{}, fmt.Errorf("failed to count batches: %w", err)
	}

	remaining := max - int(used)
	if remaining < 0 {
		remaining = 0
	}

	return Status{
		Allowed:     int(used) < max,
		Used:        int(used),
		Remaining:   remaining,
		MaxBatches:  max,
		ByteCeiling: s.ByteCeiling(id),
	}, nil
}

// ByteCeiling returns the per-file size ceiling for an identity. It is
// enforced when a chunked upload declares its total size, independently of
// the batch-count quota.
func (s *Service) ByteCeiling(id identity.Identity) int64 {
	if id.Authenticated() {
		return s.limits.UserMaxBytes
	}
	return s.limits.GuestMaxBytes
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
