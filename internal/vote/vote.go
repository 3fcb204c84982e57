package vote

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/siohaza/teevote/internal/player"
)

const (
	DefaultDuration    = 25 * time.Second
	DefaultCooldown    = 60 * time.Second
	DefaultTryInterval = 3 * time.Second
)

type Config struct {
	Duration       time.Duration
	Cooldown       time.Duration
	TryInterval    time.Duration
	SpamProtection bool
	KickEnabled    bool
	// KickBanMinutes turns kick votes into timed bans when non-zero.
	KickBanMinutes int
	// MinYesVotes is a floor on top of the majority of all players.
	MinYesVotes int
}

func DefaultConfig() Config {
	return Config{
		Duration:       DefaultDuration,
		Cooldown:       DefaultCooldown,
		TryInterval:    DefaultTryInterval,
		SpamProtection: true,
		KickEnabled:    true,
		MinYesVotes:    1,
	}
}

// Dispatcher runs the command of a vote that passed.
type Dispatcher interface {
	Execute(line string) error
}

// Events is notified about vote lifecycle changes. Any method may be a no-op.
type Events interface {
	OnVoteStarted(s *Session)
	OnVoteCast(clientID int, choice player.Vote)
	OnVoteResolved(s *Session, outcome Outcome)
}

// Manager runs at most one vote at a time. It is driven entirely from the
// simulation goroutine: calls, casts and ticks are never concurrent.
type Manager struct {
	cfg      Config
	options  *OptionStore
	players  *player.Manager
	gateway  *Gateway
	dispatch Dispatcher
	events   Events
	logger   *slog.Logger

	active *Session
}

func NewManager(cfg Config, options *OptionStore, players *player.Manager, gateway *Gateway, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultDuration
	}
	if cfg.MinYesVotes < 1 {
		cfg.MinYesVotes = 1
	}

	return &Manager{
		cfg:     cfg,
		options: options,
		players: players,
		gateway: gateway,
		logger:  logger,
	}
}

func (m *Manager) SetDispatcher(d Dispatcher) {
	m.dispatch = d
}

func (m *Manager) SetEvents(e Events) {
	m.events = e
}

func (m *Manager) Options() *OptionStore {
	return m.options
}

func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) HasActiveVote() bool {
	return m.active != nil
}

// Active returns the running session or nil.
func (m *Manager) Active() *Session {
	return m.active
}

// CallVote validates a request from clientID and starts a vote when it
// passes every check. The returned error says why the request was refused.
func (m *Manager) CallVote(clientID int, voteType, value string, now time.Time) error {
	p, ok := m.players.Get(clientID)
	if !ok {
		return ErrUnknownClient
	}

	if m.cfg.SpamProtection && !p.LastVoteTry.IsZero() && now.Sub(p.LastVoteTry) < m.cfg.TryInterval {
		return ErrVoteSpam
	}
	p.LastVoteTry = now

	if m.active != nil {
		return ErrVoteInProgress
	}

	if !p.LastVoteCall.IsZero() {
		if remaining := p.LastVoteCall.Add(m.cfg.Cooldown).Sub(now); remaining > 0 {
			return &CooldownError{Remaining: remaining}
		}
	}

	var (
		s    *Session
		chat string
		err  error
	)

	switch strings.ToLower(voteType) {
	case "option":
		s, chat, err = m.optionSession(p, value, now)
	case "kick":
		s, chat, err = m.kickSession(p, value, now)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownVoteType, voteType)
	}
	if err != nil {
		return err
	}

	m.start(s, p, chat, now)
	return nil
}

func (m *Manager) optionSession(creator *player.Player, value string, now time.Time) (*Session, string, error) {
	opt, ok := m.options.FindByName(value)
	if !ok {
		return nil, "", &UnknownOptionError{Value: value}
	}

	chat := fmt.Sprintf("%s called vote to change server option '%s'", creator.Name, opt.Name)
	return newSession(KindOption, creator.ID, -1, opt.Name, opt.Command, now, m.cfg.Duration), chat, nil
}

func (m *Manager) start(s *Session, creator *player.Player, chat string, now time.Time) {
	m.gateway.ChatAll(chat)

	m.players.ClearVotes()
	m.active = s
	creator.Vote = player.VoteYes
	creator.LastVoteCall = now

	m.logger.Info("vote started",
		"vote", s.ID,
		"kind", s.Kind,
		"creator", creator.ID,
		"description", s.Description,
		"command", s.Command)

	m.gateway.Proposal(s, now)
	m.broadcastStatus(now)

	if m.events != nil {
		m.events.OnVoteStarted(s)
	}
}

// CastVote records a ballot. It reports false when the ballot was ignored:
// no vote is running, the client already voted, or choice is zero.
func (m *Manager) CastVote(clientID, choice int, now time.Time) bool {
	if m.active == nil || choice == 0 {
		return false
	}

	p, ok := m.players.Get(clientID)
	if !ok || p.Vote != player.VoteNone {
		return false
	}

	p.Vote = player.VoteYes
	if choice < 0 {
		p.Vote = player.VoteNo
	}

	m.logger.Debug("vote cast", "vote", m.active.ID, "client", clientID, "choice", p.Vote)
	m.broadcastStatus(now)

	if m.events != nil {
		m.events.OnVoteCast(clientID, p.Vote)
	}
	return true
}

// Enforce makes the running vote resolve on the next tick with the given
// result, regardless of ballots.
func (m *Manager) Enforce(e Enforcement) error {
	if m.active == nil {
		return ErrNoActiveVote
	}

	m.active.Enforcement = e
	m.logger.Info("forcing vote", "vote", m.active.ID, "result", e)
	return nil
}

// Tick resolves the running vote once its deadline passes or an admin has
// forced it.
func (m *Manager) Tick(now time.Time) {
	s := m.active
	if s == nil || !s.Due(now) {
		return
	}

	yes, no, total := m.players.VoteCounts()
	if s.Passes(yes, no, total, m.cfg.MinYesVotes) {
		m.finish(OutcomePassed, now)
	} else {
		m.finish(OutcomeFailed, now)
	}
}

// HandleDisconnect aborts the running vote if clientID created it or is
// the player it would kick. Call it after the player has been removed.
func (m *Manager) HandleDisconnect(clientID int, now time.Time) {
	s := m.active
	if s == nil {
		return
	}

	if s.CreatorID == clientID || (s.Kind != KindOption && s.TargetID == clientID) {
		m.finish(OutcomeAborted, now)
	}
}

func (m *Manager) finish(outcome Outcome, now time.Time) {
	s := m.active
	yes, no, _ := m.players.VoteCounts()

	m.active = nil
	m.players.ClearVotes()

	m.logger.Info("vote ended",
		"vote", s.ID,
		"outcome", outcome,
		"yes", yes,
		"no", no,
		"enforced", s.Enforcement,
		"duration", now.Sub(s.StartTime).Round(time.Millisecond))

	switch outcome {
	case OutcomePassed:
		m.runCommand(s)
		m.gateway.ChatAll("Vote passed")
	case OutcomeFailed:
		m.gateway.ChatAll("Vote failed")
	case OutcomeAborted:
		m.gateway.ChatAll("Vote aborted")
	}

	m.gateway.Cleared()
	m.broadcastStatus(now)

	if m.events != nil {
		m.events.OnVoteResolved(s, outcome)
	}
}

func (m *Manager) runCommand(s *Session) {
	if m.dispatch == nil {
		m.logger.Warn("vote passed with no command dispatcher", "vote", s.ID, "command", s.Command)
		return
	}
	if err := m.dispatch.Execute(s.Command); err != nil {
		m.logger.Warn("vote command failed", "vote", s.ID, "command", s.Command, "error", err)
	}
}

func (m *Manager) broadcastStatus(now time.Time) {
	yes, no, total := m.players.VoteCounts()
	m.gateway.Status(m.active, yes, no, total, now)
}
