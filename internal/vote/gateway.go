package vote

import (
	"time"

	"github.com/siohaza/teevote/internal/protocol"
)

// Sender delivers a message to one client, or to all of them when clientID
// is protocol.BroadcastID.
type Sender interface {
	Send(clientID int, msg protocol.Message)
}

// Gateway turns vote state into client messages. Every client receives the
// same content for a given event.
type Gateway struct {
	sender Sender
}

func NewGateway(sender Sender) *Gateway {
	return &Gateway{sender: sender}
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

func (g *Gateway) Proposal(s *Session, now time.Time) {
	g.sender.Send(protocol.BroadcastID, &protocol.SvVoteSet{
		Timeout:     seconds(s.TimeLeft(now)),
		Description: s.Description,
		Command:     s.Command,
	})
}

// Status reports the tally. A nil session sends an empty status.
func (g *Gateway) Status(s *Session, yes, no, total int, now time.Time) {
	msg := &protocol.SvVoteStatus{Yes: yes, No: no, Total: total}
	if s != nil {
		msg.Description = s.Description
		msg.TimeLeft = seconds(s.TimeLeft(now))
	}
	g.sender.Send(protocol.BroadcastID, msg)
}

func (g *Gateway) Cleared() {
	g.sender.Send(protocol.BroadcastID, &protocol.SvVoteSet{})
}

// ReplayOptions sends the full option list to one client: a clear, then one
// message per option in store order.
func (g *Gateway) ReplayOptions(clientID int, options []Option) {
	g.sender.Send(clientID, &protocol.SvVoteClearOptions{})
	for _, opt := range options {
		g.sender.Send(clientID, &protocol.SvVoteOption{Command: opt.Command})
	}
}

func (g *Gateway) ChatAll(text string) {
	g.sender.Send(protocol.BroadcastID, &protocol.SvChat{
		Team:     protocol.ChatAll,
		ClientID: protocol.ServerClientID,
		Message:  text,
	})
}

func (g *Gateway) ChatTarget(clientID int, text string) {
	g.sender.Send(clientID, &protocol.SvChat{
		Team:     protocol.ChatAll,
		ClientID: protocol.ServerClientID,
		Message:  text,
	})
}
