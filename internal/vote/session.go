package vote

import (
	"time"

	"github.com/google/uuid"
)

type Kind int

const (
	KindOption Kind = iota
	KindKick
	KindBan
)

func (k Kind) String() string {
	switch k {
	case KindKick:
		return "kick"
	case KindBan:
		return "ban"
	default:
		return "option"
	}
}

type Enforcement int

const (
	EnforceNone Enforcement = iota
	EnforceYes
	EnforceNo
)

func (e Enforcement) String() string {
	switch e {
	case EnforceYes:
		return "yes"
	case EnforceNo:
		return "no"
	default:
		return "none"
	}
}

type Outcome int

const (
	OutcomePassed Outcome = iota
	OutcomeFailed
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeAborted:
		return "aborted"
	default:
		return "failed"
	}
}

// Session is the vote currently running. Ballots live on the players, not
// here, so a session never goes stale when someone leaves.
type Session struct {
	ID          uuid.UUID
	Kind        Kind
	Description string
	Command     string
	CreatorID   int
	// TargetID is the client a kick or ban vote is about, -1 otherwise.
	TargetID    int
	StartTime   time.Time
	CloseTime   time.Time
	Enforcement Enforcement
}

func newSession(kind Kind, creatorID, targetID int, description, command string, now time.Time, duration time.Duration) *Session {
	return &Session{
		ID:          uuid.New(),
		Kind:        kind,
		Description: description,
		Command:     command,
		CreatorID:   creatorID,
		TargetID:    targetID,
		StartTime:   now,
		CloseTime:   now.Add(duration),
	}
}

func (s *Session) TimeLeft(now time.Time) time.Duration {
	left := s.CloseTime.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Due reports whether the session should be resolved at now.
func (s *Session) Due(now time.Time) bool {
	return s.Enforcement != EnforceNone || !now.Before(s.CloseTime)
}

// Passes decides the result from the tallied ballots. Without enforcement a
// vote needs more yes than no, a majority of the total players and at least
// minYes yes ballots.
func (s *Session) Passes(yes, no, total, minYes int) bool {
	switch s.Enforcement {
	case EnforceYes:
		return true
	case EnforceNo:
		return false
	}
	return yes > no && yes >= total/2+1 && yes >= minYes
}
