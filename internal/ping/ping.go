// Package ping answers server-list style UDP queries with a JSON snapshot of
// the match.
package ping

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"sync"
)

const (
	requestPing = "PING"
	requestInfo = "INFO"
	replyPing   = "PONG"
)

type Handler struct {
	conn          *net.UDPConn
	logger        *slog.Logger
	stopChan      chan struct{}
	listenAddress string

	mu         sync.RWMutex
	serverInfo ServerInfo
}

type ServerInfo struct {
	Name           string `json:"name"`
	PlayersCurrent int    `json:"players_current"`
	PlayersMax     int    `json:"players_max"`
	Map            string `json:"map"`
	GameType       string `json:"game_type"`
	Version        string `json:"version"`
	Pure           bool   `json:"pure"`
	VoteActive     bool   `json:"vote_active"`
}

func NewHandler(address string, info ServerInfo, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		serverInfo:    info,
		logger:        logger,
		stopChan:      make(chan struct{}),
		listenAddress: address,
	}
}

func (h *Handler) Start() error {
	addr, err := net.ResolveUDPAddr("udp", h.listenAddress)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}

	h.conn = conn
	h.logger.Info("info handler started", "address", conn.LocalAddr().String())

	go h.handlePackets()

	return nil
}

func (h *Handler) Stop() {
	close(h.stopChan)
	if h.conn != nil {
		h.conn.Close()
	}
	h.logger.Info("info handler stopped")
}

// Addr is the bound address, or nil before Start.
func (h *Handler) Addr() net.Addr {
	if h.conn == nil {
		return nil
	}
	return h.conn.LocalAddr()
}

// UpdateServerInfo is called from the simulation goroutine while the
// handler goroutine may be reading.
func (h *Handler) UpdateServerInfo(info ServerInfo) {
	h.mu.Lock()
	h.serverInfo = info
	h.mu.Unlock()
}

func (h *Handler) ServerInfo() ServerInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.serverInfo
}

func (h *Handler) handlePackets() {
	buffer := make([]byte, 1024)

	for {
		select {
		case <-h.stopChan:
			return
		default:
			n, addr, err := h.conn.ReadFromUDP(buffer)
			if err != nil {
				select {
				case <-h.stopChan:
					return
				default:
					h.logger.Error("failed to read UDP packet", "error", err)
					continue
				}
			}

			if n > 0 {
				h.handlePacket(buffer[:n], addr)
			}
		}
	}
}

func (h *Handler) handlePacket(data []byte, addr *net.UDPAddr) {
	switch string(data) {
	case requestPing:
		h.reply([]byte(replyPing), addr)
	case requestInfo:
		jsonData, err := json.Marshal(h.ServerInfo())
		if err != nil {
			h.logger.Error("failed to marshal server info", "error", err)
			return
		}
		h.reply(jsonData, addr)
	}
}

func (h *Handler) reply(data []byte, addr *net.UDPAddr) {
	if _, err := h.conn.WriteToUDP(data, addr); err != nil {
		h.logger.Error("failed to send info response", "error", err, "addr", addr)
		return
	}
	h.logger.Debug("sent info response", "addr", addr, "bytes", len(data))
}
