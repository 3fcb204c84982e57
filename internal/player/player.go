package player

import (
	"time"

	"github.com/siohaza/teevote/internal/protocol"
)

type PlayerState int

const (
	PlayerStateDisconnected PlayerState = iota
	PlayerStateConnecting
	PlayerStateReady
)

func (s PlayerState) String() string {
	switch s {
	case PlayerStateConnecting:
		return "connecting"
	case PlayerStateReady:
		return "ready"
	default:
		return "disconnected"
	}
}

// Vote is a player's ballot in the running vote.
type Vote int

const (
	VoteNo   Vote = -1
	VoteNone Vote = 0
	VoteYes  Vote = 1
)

type Player struct {
	ID      int
	Name    string
	Skin    string
	Address string
	State   PlayerState

	Vote         Vote
	LastVoteCall time.Time
	LastVoteTry  time.Time
	LastChat     time.Time

	ConnectedAt time.Time
}

func New(id int, address string, now time.Time) *Player {
	return &Player{
		ID:          id,
		Name:        "(connecting)",
		Address:     address,
		State:       PlayerStateConnecting,
		ConnectedAt: now,
	}
}

func (p *Player) IsReady() bool {
	return p.State == PlayerStateReady
}

// Manager tracks connected clients by slot. It belongs to the simulation
// goroutine and does no locking of its own.
type Manager struct {
	players [protocol.MaxClients]*Player
	count   int
}

func NewManager() *Manager {
	return &Manager{}
}

func validID(id int) bool {
	return id >= 0 && id < protocol.MaxClients
}

// Add places p in its slot, replacing whatever was there.
func (m *Manager) Add(p *Player) {
	if !validID(p.ID) {
		return
	}
	if m.players[p.ID] == nil {
		m.count++
	}
	m.players[p.ID] = p
}

func (m *Manager) Remove(id int) {
	if !validID(id) || m.players[id] == nil {
		return
	}
	m.players[id].State = PlayerStateDisconnected
	m.players[id] = nil
	m.count--
}

func (m *Manager) Get(id int) (*Player, bool) {
	if !validID(id) || m.players[id] == nil {
		return nil, false
	}
	return m.players[id], true
}

func (m *Manager) Contains(id int) bool {
	_, ok := m.Get(id)
	return ok
}

func (m *Manager) Count() int {
	return m.count
}

// ForEach visits connected players in ascending slot order.
func (m *Manager) ForEach(fn func(*Player)) {
	for _, p := range m.players {
		if p != nil {
			fn(p)
		}
	}
}

// VoteCounts tallies yes and no ballots and the number of players in the
// game. Clients still connecting are not counted.
func (m *Manager) VoteCounts() (yes, no, total int) {
	m.ForEach(func(p *Player) {
		if !p.IsReady() {
			return
		}
		total++
		switch p.Vote {
		case VoteYes:
			yes++
		case VoteNo:
			no++
		}
	})
	return yes, no, total
}

func (m *Manager) ClearVotes() {
	m.ForEach(func(p *Player) {
		p.Vote = VoteNone
	})
}
