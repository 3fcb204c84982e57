package vote

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/siohaza/teevote/internal/player"
)

func (m *Manager) kickSession(creator *player.Player, value string, now time.Time) (*Session, string, error) {
	if !m.cfg.KickEnabled {
		return nil, "", ErrKickDisabled
	}

	targetID, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, "", ErrInvalidKickTarget
	}
	target, ok := m.players.Get(targetID)
	if !ok || !target.IsReady() {
		return nil, "", ErrInvalidKickTarget
	}

	chat := fmt.Sprintf("%s called for vote to kick '%s'", creator.Name, target.Name)
	description := fmt.Sprintf("Kick '%s'", target.Name)

	kind := KindKick
	command := fmt.Sprintf("kick %d", targetID)
	if m.cfg.KickBanMinutes > 0 {
		kind = KindBan
		command = fmt.Sprintf("ban %d %d", targetID, m.cfg.KickBanMinutes)
	}

	return newSession(kind, creator.ID, targetID, description, command, now, m.cfg.Duration), chat, nil
}
