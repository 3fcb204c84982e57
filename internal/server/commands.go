package server

import (
	"fmt"
	"time"

	"github.com/siohaza/teevote/internal/network"
	"github.com/siohaza/teevote/internal/player"
	"github.com/siohaza/teevote/internal/protocol"
	"github.com/siohaza/teevote/internal/tuning"
	"github.com/siohaza/teevote/internal/validation"
	"github.com/siohaza/teevote/internal/vote"
)

func (s *Server) Tuning() *tuning.Params {
	return s.tuning
}

func (s *Server) Votes() *vote.Manager {
	return s.voteManager
}

// BroadcastTuning sends the current tuning to every player. In a pure
// gametype the defaults are restored first.
func (s *Server) BroadcastTuning() {
	s.sendTuning(protocol.BroadcastID)
	s.metrics.RecordTuningBroadcast()
}

func (s *Server) Kick(clientID int, reason string) error {
	p, ok := s.players.Get(clientID)
	if !ok {
		return fmt.Errorf("kick %d: %w", clientID, network.ErrUnknownClient)
	}

	s.gateway.ChatTarget(clientID, reason)
	s.transport.Disconnect(clientID, network.DisconnectReasonKicked)

	s.logger.Info("player kicked", "client", clientID, "name", p.Name, "reason", reason)
	return nil
}

// Ban bans the client's address and drops it. Zero minutes is permanent.
func (s *Server) Ban(clientID, minutes int) error {
	p, ok := s.players.Get(clientID)
	if !ok {
		return fmt.Errorf("ban %d: %w", clientID, network.ErrUnknownClient)
	}

	now := s.now()
	ban := s.banManager.Add(p.Address, p.Name, "Banned by vote or console", time.Duration(minutes)*time.Minute, now)

	if ban.Permanent {
		s.gateway.ChatTarget(clientID, "You have been banned")
	} else {
		s.gateway.ChatTarget(clientID, fmt.Sprintf("You have been banned for %d minutes", minutes))
	}
	s.transport.Disconnect(clientID, network.DisconnectReasonBanned)

	s.logger.Info("player banned", "client", clientID, "name", p.Name, "ip", p.Address, "minutes", minutes)
	return nil
}

func (s *Server) Unban(ip string) bool {
	if !s.banManager.Remove(ip) {
		return false
	}
	s.logger.Info("ban lifted", "ip", ip)
	return true
}

func (s *Server) SayAll(text string) {
	s.gateway.ChatAll(text)
}

func (s *Server) Broadcast(text string) {
	s.Send(protocol.BroadcastID, &protocol.SvBroadcast{Message: text})
}

// ChangeMap records the new map; loading it belongs to the engine.
func (s *Server) ChangeMap(name string) {
	s.logger.Info("changing map", "from", s.mapName, "to", name)
	s.mapName = name
	s.roundStart = s.now()
	s.gateway.ChatAll(fmt.Sprintf("Map changed to %s", name))
}

func (s *Server) Restart() {
	s.roundStart = s.now()
	s.logger.Info("round restarted", "map", s.mapName)
	s.gateway.ChatAll("Round restarted")
}

func (s *Server) Status() []string {
	now := s.now()
	lines := []string{fmt.Sprintf("map=%s gametype=%s pure=%t players=%d/%d round=%s",
		s.mapName, s.gameType, s.tuning.IsPure(s.gameType),
		s.players.Count(), s.config.Server.MaxPlayers,
		now.Sub(s.roundStart).Round(time.Second))}

	s.players.ForEach(func(p *player.Player) {
		lines = append(lines, fmt.Sprintf("id=%d addr=%s name=%q state=%s",
			p.ID, p.Address, p.Name, p.State))
	})

	if active := s.voteManager.Active(); active != nil {
		yes, no, total := s.players.VoteCounts()
		lines = append(lines, fmt.Sprintf("vote=%q yes=%d no=%d total=%d left=%s",
			active.Description, yes, no, total, active.TimeLeft(now).Round(time.Second)))
	}

	return lines
}

func (s *Server) SendChatToAll(message string) {
	s.gateway.ChatAll(message)
}

func (s *Server) SendChatToPlayer(clientID int, message string) {
	if !s.players.Contains(clientID) {
		return
	}
	s.gateway.ChatTarget(clientID, message)
}

func (s *Server) SetTuning(name string, value float64) bool {
	if !validation.IsValidTuneValue(value) || !s.tuning.Set(name, value) {
		return false
	}
	s.BroadcastTuning()
	return true
}

func (s *Server) GetTuning(name string) (float64, bool) {
	return s.tuning.Get(name)
}

func (s *Server) AddVoteOption(command string) {
	s.options.Register("", command)
}

func (s *Server) HasActiveVote() bool {
	return s.voteManager.HasActiveVote()
}

func (s *Server) PlayerName(clientID int) (string, bool) {
	p, ok := s.players.Get(clientID)
	if !ok {
		return "", false
	}
	return p.Name, true
}

func (s *Server) PlayerCount() int {
	return s.players.Count()
}

func (s *Server) ExecuteCommand(line string) error {
	return s.console.Execute(line)
}
