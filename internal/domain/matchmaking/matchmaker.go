// Package matchmaking searches for a human opponent of comparable power,
// widening the acceptable power window over time.
package matchmaking

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
)

// Unbounded marks a checkpoint that accepts any power.
const Unbounded = -1

// Checkpoint widens the power window to ±Window once At has elapsed.
type Checkpoint struct {
	At     time.Duration
	Window int
}

// DefaultSchedule widens the window from ±100 to unbounded over 15 seconds.
var DefaultSchedule = []Checkpoint{
	{At: 0, Window: 100},
	{At: 5 * time.Second, Window: 300},
	{At: 10 * time.Second, Window: 500},
	{At: 15 * time.Second, Window: Unbounded},
}

// DefaultTimeout bounds the whole search. Checkpoints after it are skipped.
const DefaultTimeout = 10 * time.Second

// Finder queries stored profiles by power range, excluding the seeker.
type Finder interface {
	FindOpponents(ctx context.Context, excludeUserID uuid.UUID, power, minPower, maxPower, limit int) ([]*domain.Profile, error)
}

// Config tunes a Matchmaker.
type Config struct {
	Schedule []Checkpoint
	Timeout  time.Duration
	Limit    int
}

// DefaultConfig returns the standard schedule and timeout.
func DefaultConfig() Config {
	return Config{
		Schedule: DefaultSchedule,
		Timeout:  DefaultTimeout,
		Limit:    20,
	}
}

// Option customises a Matchmaker.
type Option func(*Matchmaker)

// WithAfter replaces time.After, letting tests drive the schedule.
func WithAfter(after func(time.Duration) <-chan time.Time) Option {
	return func(m *Matchmaker) {
		m.after = after
	}
}

// Matchmaker runs opponent searches. It holds no per-search state and is
// safe for concurrent use.
type Matchmaker struct {
	finder Finder
	config Config
	after  func(time.Duration) <-chan time.Time
	logger *slog.Logger
}

// NewMatchmaker creates a Matchmaker. It panics on a nil finder.
func NewMatchmaker(finder Finder, config Config, logger *slog.Logger, opts ...Option) *Matchmaker {
	if finder == nil {
		panic("finder cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(config.Schedule) == 0 {
		config.Schedule = DefaultSchedule
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Limit <= 0 {
		config.Limit = 20
	}

	m := &Matchmaker{
		finder: finder,
		config: config,
		after:  time.After,
		logger: logger.With(slog.String("component", "matchmaker")),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Search looks for the opponent whose power is closest to power. It returns
// domain.ErrMatchNotFound when the schedule is exhausted within the timeout,
// and ctx.Err() if the caller gives up first. Finder failures are logged and
// the search moves on to the next checkpoint.
func (m *Matchmaker) Search(ctx context.Context, userID uuid.UUID, power int) (*domain.Profile, error) {
	var elapsed time.Duration

	for _, cp := range m.config.Schedule {
		if cp.At > m.config.Timeout {
			break
		}

		if wait := cp.At - elapsed; wait > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-m.after(wait):
			}
			elapsed = cp.At
		}

		lo, hi := window(power, cp.Window)
		candidates, err := m.finder.FindOpponents(ctx, userID, power, lo, hi, m.config.Limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Warn("opponent lookup failed",
				slog.Duration("checkpoint", cp.At),
				slog.String("error", err.Error()))
			continue
		}

		if best := closest(candidates, userID, power); best != nil {
			m.logger.Debug("opponent found",
				slog.Duration("checkpoint", cp.At),
				slog.String("opponent_id", best.UserID.String()),
				slog.Int("opponent_power", best.Power))
			return best, nil
		}
	}

	return nil, fmt.Errorf("%w: no opponent near power %d", domain.ErrMatchNotFound, power)
}

func window(power, width int) (lo, hi int) {
	if width == Unbounded {
		return 0, math.MaxInt32
	}
	return max(0, power-width), power + width
}

func closest(candidates []*domain.Profile, self uuid.UUID, power int) *domain.Profile {
	var best *domain.Profile
	bestGap := math.MaxInt
	for _, c := range candidates {
		if c == nil || c.UserID == self || len(c.TeamSnapshot) == 0 {
			continue
		}
		gap := c.Power - power
		if gap < 0 {
			gap = -gap
		}
		if gap < bestGap {
			best, bestGap = c, gap
		}
	}
	return best
}
