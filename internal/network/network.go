package network

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codecat/go-enet"
)

// Disconnect reasons sent with the ENet disconnect.
const (
	DisconnectReasonNone uint32 = iota
	DisconnectReasonKicked
	DisconnectReasonBanned
	DisconnectReasonServerFull
	DisconnectReasonShutdown
)

var ErrUnknownClient = errors.New("unknown client")

// Server is an ENet host that hands out a client slot to every peer, so the
// rest of the server only ever deals in client IDs.
type Server struct {
	host       enet.Host
	port       uint16
	maxClients int
	peers      []enet.Peer
	logger     *slog.Logger
}

type Event struct {
	Type     EventType
	ClientID int
	Address  string
	Data     []byte
}

type EventType int

const (
	EventTypeNone EventType = iota
	EventTypeConnect
	EventTypeDisconnect
	EventTypeReceive
)

func NewServer(port int, maxClients int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		port:       uint16(port),
		maxClients: maxClients,
		peers:      make([]enet.Peer, maxClients),
		logger:     logger,
	}
}

func (s *Server) Start() error {
	address := enet.NewListenAddress(s.port)

	var err error
	s.host, err = enet.NewHost(address, uint64(s.maxClients+1), 1, 0, 0)
	if err != nil {
		return fmt.Errorf("failed to create ENet host: %w", err)
	}

	if err := s.host.CompressWithRangeCoder(); err != nil {
		return fmt.Errorf("failed to setup range coder compression: %w", err)
	}

	s.logger.Info("network started", "port", s.port, "max_clients", s.maxClients)
	return nil
}

func (s *Server) Stop() {
	if s.host == nil {
		return
	}

	for id, peer := range s.peers {
		if peer != nil {
			peer.DisconnectNow(DisconnectReasonShutdown)
			s.peers[id] = nil
		}
	}

	s.host.Destroy()
	s.host = nil
	s.logger.Info("network stopped")
}

func (s *Server) clientID(peer enet.Peer) int {
	for id, p := range s.peers {
		if p != nil && p == peer {
			return id
		}
	}
	return -1
}

func (s *Server) freeSlot() int {
	for id, p := range s.peers {
		if p == nil {
			return id
		}
	}
	return -1
}

// Service polls the host once. Peers that cannot get a slot are turned
// away here and never surface as events.
func (s *Server) Service(timeout time.Duration) (*Event, error) {
	if s.host == nil {
		return nil, fmt.Errorf("server not started")
	}

	enetEvent := s.host.Service(uint32(timeout.Milliseconds()))
	if enetEvent == nil {
		return &Event{Type: EventTypeNone}, nil
	}

	peer := enetEvent.GetPeer()

	switch enetEvent.GetType() {
	case enet.EventConnect:
		address := peer.GetAddress().String()
		id := s.freeSlot()
		if id < 0 {
			s.logger.Info("rejecting peer, server full", "address", address)
			peer.DisconnectNow(DisconnectReasonServerFull)
			return &Event{Type: EventTypeNone}, nil
		}

		s.peers[id] = peer
		s.logger.Debug("peer connected", "client", id, "address", address)
		return &Event{Type: EventTypeConnect, ClientID: id, Address: address}, nil

	case enet.EventDisconnect:
		id := s.clientID(peer)
		if id < 0 {
			return &Event{Type: EventTypeNone}, nil
		}

		s.peers[id] = nil
		s.logger.Debug("peer disconnected", "client", id)
		return &Event{Type: EventTypeDisconnect, ClientID: id}, nil

	case enet.EventReceive:
		packet := enetEvent.GetPacket()
		if packet == nil {
			return &Event{Type: EventTypeNone}, nil
		}
		defer packet.Destroy()

		id := s.clientID(peer)
		if id < 0 {
			return &Event{Type: EventTypeNone}, nil
		}

		data := append([]byte(nil), packet.GetData()...)
		return &Event{Type: EventTypeReceive, ClientID: id, Data: data}, nil
	}

	return &Event{Type: EventTypeNone}, nil
}

func (s *Server) Send(clientID int, data []byte, reliable bool) error {
	if clientID < 0 || clientID >= len(s.peers) || s.peers[clientID] == nil {
		return fmt.Errorf("send to %d: %w", clientID, ErrUnknownClient)
	}

	flags := enet.PacketFlagUnsequenced
	if reliable {
		flags = enet.PacketFlagReliable
	}

	packet, err := enet.NewPacket(data, flags)
	if err != nil {
		return fmt.Errorf("failed to create packet: %w", err)
	}

	if err := s.peers[clientID].SendPacket(packet, 0); err != nil {
		return fmt.Errorf("failed to send packet: %w", err)
	}

	return nil
}

// Disconnect drops a client gracefully. The slot is released when the
// disconnect event arrives.
func (s *Server) Disconnect(clientID int, reason uint32) {
	if clientID < 0 || clientID >= len(s.peers) || s.peers[clientID] == nil {
		return
	}
	s.peers[clientID].Disconnect(reason)
}
