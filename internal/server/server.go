package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/siohaza/teevote/internal/bans"
	"github.com/siohaza/teevote/internal/callbacks"
	"github.com/siohaza/teevote/internal/console"
	"github.com/siohaza/teevote/internal/metrics"
	"github.com/siohaza/teevote/internal/network"
	"github.com/siohaza/teevote/internal/ping"
	"github.com/siohaza/teevote/internal/player"
	"github.com/siohaza/teevote/internal/protocol"
	"github.com/siohaza/teevote/internal/tuning"
	"github.com/siohaza/teevote/internal/validation"
	"github.com/siohaza/teevote/internal/vote"
	"github.com/siohaza/teevote/pkg/config"
	"github.com/siohaza/teevote/pkg/lua"
)

const (
	tickRate        = time.Second / 50
	maxEventsPerRun = 100
	consoleBacklog  = 64
	gameVersion     = "0.5"
)

var (
	_ vote.Sender         = (*Server)(nil)
	_ console.Target      = (*Server)(nil)
	_ lua.ServerInterface = (*Server)(nil)
)

// transport is the slice of network.Server the match needs.
type transport interface {
	Start() error
	Stop()
	Service(timeout time.Duration) (*network.Event, error)
	Send(clientID int, data []byte, reliable bool) error
	Disconnect(clientID int, reason uint32)
}

// Server is one running match. Everything it owns is touched only from the
// run loop, except consoleLines which other goroutines feed.
type Server struct {
	config      *config.Config
	transport   transport
	logger      *slog.Logger
	now         func() time.Time
	running     bool
	startTime   time.Time
	roundStart  time.Time
	lastSweep   time.Time
	gameType    string
	mapName     string
	players     *player.Manager
	tuning      *tuning.Params
	options     *vote.OptionStore
	gateway     *vote.Gateway
	voteManager *vote.Manager
	banManager  *bans.Manager
	console     *console.Console
	luaCommands *lua.CommandManager
	callbacks   *callbacks.CallbackChain
	metrics     *metrics.Registry
	pingHandler *ping.Handler

	consoleLines chan string
	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	netServer := network.NewServer(cfg.Server.Port, cfg.Server.MaxPlayers, logger)
	return newServer(cfg, netServer, time.Now, logger)
}

func newServer(cfg *config.Config, t transport, now func() time.Time, logger *slog.Logger) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())

	srv := &Server{
		config:       cfg,
		transport:    t,
		logger:       logger,
		now:          now,
		gameType:     cfg.Server.GameType,
		mapName:      cfg.Server.Map,
		players:      player.NewManager(),
		banManager:   bans.NewManager(),
		callbacks:    callbacks.NewCallbackChain(),
		metrics:      metrics.NewRegistry(),
		consoleLines: make(chan string, consoleBacklog),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}

	srv.tuning = tuning.New(cfg.Server.PureGametypes, logger)
	if err := srv.applyTuningOverrides(cfg.Tuning); err != nil {
		cancel()
		return nil, err
	}

	srv.options = vote.NewOptionStore(logger)
	for _, command := range cfg.Voting.Options {
		srv.options.Register("", command)
	}

	srv.gateway = vote.NewGateway(srv)
	srv.voteManager = vote.NewManager(vote.Config{
		Duration:       cfg.Voting.Duration(),
		Cooldown:       cfg.Voting.Cooldown(),
		TryInterval:    cfg.Voting.TryInterval(),
		SpamProtection: cfg.Server.SpamProtection,
		KickEnabled:    cfg.Voting.VoteKick,
		KickBanMinutes: cfg.Voting.VoteKickBantime,
		MinYesVotes:    cfg.Voting.MinYesVotes,
	}, srv.options, srv.players, srv.gateway, logger)

	srv.console = console.New(logger)
	console.RegisterBuiltins(srv.console, srv)

	srv.luaCommands = lua.NewCommandManager(logger)
	srv.console.SetScripts(srv.luaCommands)

	srv.callbacks.Register(srv.metrics)
	srv.voteManager.SetDispatcher(srv.console)
	srv.voteManager.SetEvents(srv.callbacks)

	if cfg.Server.InfoAddress != "" {
		srv.pingHandler = ping.NewHandler(cfg.Server.InfoAddress, srv.serverInfo(), logger)
	}

	return srv, nil
}

func (s *Server) applyTuningOverrides(overrides map[string]float64) error {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		value := overrides[name]
		if !validation.IsValidTuneValue(value) {
			return fmt.Errorf("invalid value for tuning parameter %s: %v", name, value)
		}
		if !s.tuning.Set(name, value) {
			return fmt.Errorf("unknown tuning parameter %q", name)
		}
	}
	return nil
}

func (s *Server) Start() error {
	if dir := s.config.Scripts.CommandsDir; dir != "" && lua.FileExists(dir) {
		if err := s.luaCommands.LoadCommands(dir, lua.NewGameAPI(s)); err != nil {
			s.logger.Warn("failed to load lua commands", "error", err)
		}
	} else if dir != "" {
		s.logger.Debug("no lua commands directory", "dir", dir)
	}

	for _, line := range s.config.Server.Exec {
		if err := s.console.Execute(line); err != nil {
			s.logger.Warn("startup command failed", "line", line, "error", err)
		}
	}

	if err := s.transport.Start(); err != nil {
		return fmt.Errorf("failed to start network: %w", err)
	}

	if s.pingHandler != nil {
		if err := s.pingHandler.Start(); err != nil {
			s.logger.Warn("failed to start info handler", "error", err)
			s.pingHandler = nil
		}
	}

	s.startTime = s.now()
	s.roundStart = s.startTime

	s.logger.Info("server started",
		"name", s.config.Server.Name,
		"gametype", s.gameType,
		"map", s.mapName,
		"pure", s.tuning.IsPure(s.gameType))

	s.running = true
	go s.run()

	return nil
}

func (s *Server) Stop() {
	s.logger.Info("stopping server")

	s.cancel()
	if !s.running {
		return
	}
	<-s.done
	s.running = false

	s.transport.Stop()

	if s.pingHandler != nil {
		s.pingHandler.Stop()
	}

	s.logger.Info("server stopped")
}

func (s *Server) Metrics() *metrics.Registry {
	return s.metrics
}

// SubmitConsole queues an admin line for the run loop. It blocks while the
// queue is full and gives up once the server stops.
func (s *Server) SubmitConsole(line string) {
	select {
	case s.consoleLines <- line:
	case <-s.ctx.Done():
	}
}

func (s *Server) run() {
	defer close(s.done)

	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Info("server context cancelled, exiting run loop")
			return

		case <-ticker.C:
			s.step()
		}
	}
}

// step is one simulation tick. Client messages are handled before the vote
// deadline is checked, so a ballot arriving on the closing tick counts.
func (s *Server) step() {
	started := time.Now()

	s.handleNetworkEvents()
	s.drainConsole()
	s.update(s.now())

	s.metrics.ObserveTick(time.Since(started))
}

func (s *Server) update(now time.Time) {
	if s.checkPureTuning() {
		s.sendTuning(protocol.BroadcastID)
	}

	s.voteManager.Tick(now)

	if now.Sub(s.lastSweep) >= time.Second {
		s.lastSweep = now
		if n := s.banManager.Cleanup(now); n > 0 {
			s.logger.Info("expired bans removed", "count", n)
		}
		if s.pingHandler != nil {
			s.pingHandler.UpdateServerInfo(s.serverInfo())
		}
	}
}

func (s *Server) drainConsole() {
	for {
		select {
		case line := <-s.consoleLines:
			s.console.Execute(line)
		default:
			return
		}
	}
}

func (s *Server) handleNetworkEvents() {
	for i := 0; i < maxEventsPerRun; i++ {
		event, err := s.transport.Service(0)
		if err != nil {
			s.logger.Error("network service error", "error", err)
			return
		}

		if event.Type == network.EventTypeNone {
			return
		}

		now := s.now()
		switch event.Type {
		case network.EventTypeConnect:
			s.handleConnect(event.ClientID, event.Address, now)

		case network.EventTypeDisconnect:
			s.handleDisconnect(event.ClientID, now)

		case network.EventTypeReceive:
			s.handleMessage(event.ClientID, event.Data, now)
		}
	}
}

func (s *Server) handleConnect(clientID int, address string, now time.Time) {
	ip := hostOnly(address)

	if ban, banned := s.banManager.IsBanned(ip, now); banned {
		s.logger.Info("banned player attempted to connect", "ip", ip, "reason", ban.Reason)
		s.metrics.RecordConnect("banned")
		s.transport.Disconnect(clientID, network.DisconnectReasonBanned)
		return
	}

	if !validation.IsValidClientID(clientID) || s.players.Contains(clientID) {
		s.logger.Warn("rejecting connection on a taken slot", "client", clientID)
		s.metrics.RecordConnect("rejected")
		s.transport.Disconnect(clientID, network.DisconnectReasonServerFull)
		return
	}

	p := player.New(clientID, ip, now)
	s.players.Add(p)

	s.callbacks.OnConnect(clientID)
	s.metrics.SetPlayersConnected(s.players.Count())

	if s.config.Server.Motd != "" {
		s.Send(clientID, &protocol.SvMotd{Message: s.config.Server.Motd})
	}

	s.logger.Info("player connected", "client", clientID, "address", ip)
}

func (s *Server) handleDisconnect(clientID int, now time.Time) {
	p, ok := s.players.Get(clientID)
	if !ok {
		return
	}

	s.logger.Info("player disconnected", "client", clientID, "name", p.Name)

	wasReady := p.IsReady()
	p.State = player.PlayerStateDisconnected
	s.players.Remove(clientID)

	s.voteManager.HandleDisconnect(clientID, now)
	s.callbacks.OnDisconnect(clientID)
	s.metrics.SetPlayersConnected(s.players.Count())

	if wasReady {
		s.gateway.ChatAll(fmt.Sprintf("'%s' has left the game", p.Name))
	}
}

func (s *Server) handleMessage(clientID int, data []byte, now time.Time) {
	p, ok := s.players.Get(clientID)
	if !ok {
		return
	}

	msg, err := protocol.Decode(data)
	if err != nil {
		s.logger.Debug("dropping malformed message", "client", clientID, "error", err)
		return
	}
	s.metrics.RecordMessageReceived(msg.Type().String())

	if _, ok := msg.(*protocol.ClStartInfo); !ok && !p.IsReady() {
		s.logger.Debug("message before start info", "client", clientID, "type", msg.Type())
		return
	}

	switch m := msg.(type) {
	case *protocol.ClStartInfo:
		s.handleStartInfo(p, m)
	case *protocol.ClSay:
		s.handleSay(p, m, now)
	case *protocol.ClCallVote:
		s.handleCallVote(p, m, now)
	case *protocol.ClVote:
		if !validation.IsValidVoteChoice(m.Vote) {
			s.logger.Debug("invalid ballot", "client", clientID, "vote", m.Vote)
			return
		}
		s.voteManager.CastVote(p.ID, m.Vote, now)
	default:
		s.logger.Debug("unexpected message from client", "client", clientID, "type", msg.Type())
	}
}

// handleStartInfo completes the handshake: the option list, the tuning and
// then ReadyToEnter, in that order.
func (s *Server) handleStartInfo(p *player.Player, m *protocol.ClStartInfo) {
	if p.State != player.PlayerStateConnecting {
		return
	}

	p.Name = validation.UniqueName(validation.SanitizeName(m.Name), func(name string) bool {
		taken := false
		s.players.ForEach(func(other *player.Player) {
			if other.ID != p.ID && other.Name == name {
				taken = true
			}
		})
		return taken
	})
	p.Skin = validation.SanitizeSkin(m.Skin)

	s.gateway.ReplayOptions(p.ID, s.options.ListAll())
	s.sendTuning(p.ID)
	s.Send(p.ID, &protocol.SvReadyToEnter{})

	p.State = player.PlayerStateReady
	s.logger.Info("player entered", "client", p.ID, "name", p.Name, "skin", p.Skin)

	s.gateway.ChatAll(fmt.Sprintf("%s entered and joined the game", p.Name))
	s.callbacks.OnPlayerJoin(p)
}

func (s *Server) handleSay(p *player.Player, m *protocol.ClSay, now time.Time) {
	if s.config.Server.SpamProtection && !p.LastChat.IsZero() && now.Sub(p.LastChat) < time.Second {
		p.LastChat = now
		return
	}
	p.LastChat = now

	message := validation.ClampChat(strings.TrimSpace(m.Message))
	if message == "" {
		return
	}

	if !s.callbacks.OnChatMessage(p, message) {
		return
	}

	team := protocol.ChatAll
	if m.Team {
		team = protocol.ChatTeam
	}

	s.logger.Info("chat message", "client", p.ID, "name", p.Name, "team", m.Team, "message", message)
	s.Send(protocol.BroadcastID, &protocol.SvChat{Team: team, ClientID: p.ID, Message: message})
}

func (s *Server) handleCallVote(p *player.Player, m *protocol.ClCallVote, now time.Time) {
	err := s.voteManager.CallVote(p.ID, m.VoteType, m.Value, now)
	if err == nil {
		return
	}

	s.metrics.RecordVoteRejected(err)

	if vote.IsSilent(err) {
		s.logger.Debug("call vote ignored", "client", p.ID, "type", m.VoteType, "error", err)
		return
	}

	s.logger.Info("call vote rejected", "client", p.ID, "type", m.VoteType, "value", m.Value, "error", err)
	s.gateway.ChatTarget(p.ID, err.Error())
}

// checkPureTuning restores default tuning when the gametype demands it.
func (s *Server) checkPureTuning() bool {
	if !s.tuning.EnforcePure(s.gameType) {
		return false
	}
	s.callbacks.OnTuningReset("pure")
	return true
}

func (s *Server) sendTuning(clientID int) {
	s.checkPureTuning()
	s.Send(clientID, &protocol.SvTuneParams{Values: s.tuning.Serialize()})
}

// Send encodes msg once and delivers it to clientID, or to every player
// that finished the handshake when clientID is protocol.BroadcastID.
func (s *Server) Send(clientID int, msg protocol.Message) {
	data, err := protocol.Encode(msg)
	if err != nil {
		s.logger.Error("failed to encode message", "type", msg.Type(), "error", err)
		return
	}

	if clientID != protocol.BroadcastID {
		s.sendData(clientID, msg.Type(), data)
		return
	}

	s.players.ForEach(func(p *player.Player) {
		if p.IsReady() {
			s.sendData(p.ID, msg.Type(), data)
		}
	})
}

func (s *Server) sendData(clientID int, t protocol.MessageType, data []byte) {
	if err := s.transport.Send(clientID, data, true); err != nil {
		s.logger.Debug("failed to send message", "client", clientID, "type", t, "error", err)
		return
	}
	s.metrics.RecordMessageSent(t.String())
}

func (s *Server) serverInfo() ping.ServerInfo {
	return ping.ServerInfo{
		Name:           s.config.Server.Name,
		PlayersCurrent: s.players.Count(),
		PlayersMax:     s.config.Server.MaxPlayers,
		Map:            s.mapName,
		GameType:       s.gameType,
		Version:        gameVersion,
		Pure:           s.tuning.IsPure(s.gameType),
		VoteActive:     s.voteManager.HasActiveVote(),
	}
}

func hostOnly(address string) string {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}
	return host
}
