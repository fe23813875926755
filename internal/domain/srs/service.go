package srs

import (
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

// Service defines the interface for spaced-repetition scheduling.
// Implementations are pure and safe for concurrent use; each word's state is
// independent of every other.
type Service interface {
	// Review returns the state that follows answering an entry correctly or
	// incorrectly at now. The input is never modified.
	Review(current *domain.SrsState, correct bool, now time.Time) domain.SrsState

	// IsDue reports whether the state is due for review at now.
	IsDue(state *domain.SrsState, now time.Time) bool

	// MaxLevel returns the highest reachable box.
	MaxLevel() int
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new SRS service with the default schedule
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new SRS service with custom parameters
func NewServiceWithParams(params *Params) Service {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultService{
		params: params,
	}
}

func (s *defaultService) Review(current *domain.SrsState, correct bool, now time.Time) domain.SrsState {
	return calculateNextState(current, correct, now, s.params)
}

func (s *defaultService) IsDue(state *domain.SrsState, now time.Time) bool {
	return isDue(state, now)
}

func (s *defaultService) MaxLevel() int {
	return s.params.MaxLevel()
}
