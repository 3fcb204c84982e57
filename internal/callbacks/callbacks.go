package callbacks

import (
	"github.com/siohaza/teevote/internal/player"
	"github.com/siohaza/teevote/internal/vote"
)

// Callbacks observes the match. OnChatMessage may veto a chat line.
type Callbacks interface {
	OnConnect(clientID int)
	OnDisconnect(clientID int)
	OnPlayerJoin(p *player.Player)
	OnChatMessage(p *player.Player, message string) bool
	OnVoteStarted(s *vote.Session)
	OnVoteCast(clientID int, choice player.Vote)
	OnVoteResolved(s *vote.Session, outcome vote.Outcome)
	OnTuningReset(cause string)
}

type DefaultCallbacks struct{}

func (d *DefaultCallbacks) OnConnect(clientID int)                               {}
func (d *DefaultCallbacks) OnDisconnect(clientID int)                            {}
func (d *DefaultCallbacks) OnPlayerJoin(p *player.Player)                        {}
func (d *DefaultCallbacks) OnChatMessage(p *player.Player, message string) bool  { return true }
func (d *DefaultCallbacks) OnVoteStarted(s *vote.Session)                        {}
func (d *DefaultCallbacks) OnVoteCast(clientID int, choice player.Vote)          {}
func (d *DefaultCallbacks) OnVoteResolved(s *vote.Session, outcome vote.Outcome) {}
func (d *DefaultCallbacks) OnTuningReset(cause string)                           {}

// CallbackChain fans every event out to the registered callbacks in order.
// It also satisfies vote.Events.
type CallbackChain struct {
	callbacks []Callbacks
}

func NewCallbackChain() *CallbackChain {
	return &CallbackChain{
		callbacks: make([]Callbacks, 0),
	}
}

func (c *CallbackChain) Register(cb Callbacks) {
	c.callbacks = append(c.callbacks, cb)
}

func (c *CallbackChain) Len() int {
	return len(c.callbacks)
}

func (c *CallbackChain) OnConnect(clientID int) {
	for _, cb := range c.callbacks {
		cb.OnConnect(clientID)
	}
}

func (c *CallbackChain) OnDisconnect(clientID int) {
	for _, cb := range c.callbacks {
		cb.OnDisconnect(clientID)
	}
}

func (c *CallbackChain) OnPlayerJoin(p *player.Player) {
	for _, cb := range c.callbacks {
		cb.OnPlayerJoin(p)
	}
}

func (c *CallbackChain) OnChatMessage(p *player.Player, message string) bool {
	for _, cb := range c.callbacks {
		if !cb.OnChatMessage(p, message) {
			return false
		}
	}
	return true
}

func (c *CallbackChain) OnVoteStarted(s *vote.Session) {
	for _, cb := range c.callbacks {
		cb.OnVoteStarted(s)
	}
}

func (c *CallbackChain) OnVoteCast(clientID int, choice player.Vote) {
	for _, cb := range c.callbacks {
		cb.OnVoteCast(clientID, choice)
	}
}

func (c *CallbackChain) OnVoteResolved(s *vote.Session, outcome vote.Outcome) {
	for _, cb := range c.callbacks {
		cb.OnVoteResolved(s, outcome)
	}
}

func (c *CallbackChain) OnTuningReset(cause string) {
	for _, cb := range c.callbacks {
		cb.OnTuningReset(cause)
	}
}
