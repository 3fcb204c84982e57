package metrics

import (
	"errors"
	"time"

	"github.com/siohaza/teevote/internal/player"
	"github.com/siohaza/teevote/internal/vote"
)

func (r *Registry) OnConnect(int) {
	r.RecordConnect("accepted")
}

func (r *Registry) OnVoteStarted(s *vote.Session) {
	r.VotesCalledTotal.WithLabelValues(s.Kind.String()).Inc()
	r.VoteActive.Set(1)
}

func (r *Registry) OnVoteCast(_ int, choice player.Vote) {
	label := "yes"
	if choice == player.VoteNo {
		label = "no"
	}
	r.VoteBallotsTotal.WithLabelValues(label).Inc()
}

func (r *Registry) OnVoteResolved(s *vote.Session, outcome vote.Outcome) {
	r.VotesResolvedTotal.WithLabelValues(s.Kind.String(), outcome.String()).Inc()
	r.VoteActive.Set(0)
}

// RecordVoteRejected counts a refused call-vote request.
func (r *Registry) RecordVoteRejected(err error) {
	r.VotesRejectedTotal.WithLabelValues(rejectionReason(err)).Inc()
}

func rejectionReason(err error) string {
	var cooldown *vote.CooldownError
	switch {
	case errors.Is(err, vote.ErrVoteSpam):
		return "spam"
	case errors.Is(err, vote.ErrVoteInProgress):
		return "in_progress"
	case errors.As(err, &cooldown):
		return "cooldown"
	case errors.Is(err, vote.ErrUnknownOption):
		return "unknown_option"
	case errors.Is(err, vote.ErrKickDisabled):
		return "kick_disabled"
	case errors.Is(err, vote.ErrInvalidKickTarget):
		return "invalid_target"
	case errors.Is(err, vote.ErrUnknownVoteType):
		return "unknown_type"
	default:
		return "other"
	}
}

func (r *Registry) RecordConnect(result string) {
	r.ConnectsTotal.WithLabelValues(result).Inc()
}

func (r *Registry) SetPlayersConnected(n int) {
	r.PlayersConnected.Set(float64(n))
}

func (r *Registry) OnTuningReset(cause string) {
	r.TuningResetsTotal.WithLabelValues(cause).Inc()
}

func (r *Registry) RecordTuningBroadcast() {
	r.TuningBroadcastsTotal.Inc()
}

func (r *Registry) RecordMessageReceived(msgType string) {
	r.MessagesReceivedTotal.WithLabelValues(msgType).Inc()
}

func (r *Registry) RecordMessageSent(msgType string) {
	r.MessagesSentTotal.WithLabelValues(msgType).Inc()
}

func (r *Registry) ObserveTick(d time.Duration) {
	r.TickDuration.Observe(d.Seconds())
}
