// Package bans keeps the address bans issued by admins and ban votes for
// the lifetime of the process.
package bans

import (
	"cmp"
	"slices"
	"time"
)

type Ban struct {
	IP        string
	Name      string
	Reason    string
	BannedAt  time.Time
	ExpiresAt time.Time
	Permanent bool
}

func (b *Ban) Expired(now time.Time) bool {
	return !b.Permanent && !now.Before(b.ExpiresAt)
}

// Remaining is zero for permanent bans.
func (b *Ban) Remaining(now time.Time) time.Duration {
	if b.Permanent {
		return 0
	}
	return max(b.ExpiresAt.Sub(now), 0)
}

type Manager struct {
	byIP map[string]*Ban
}

func NewManager() *Manager {
	return &Manager{
		byIP: make(map[string]*Ban),
	}
}

// Add bans ip. A zero duration bans permanently. An existing ban on the
// same address is replaced.
func (m *Manager) Add(ip, name, reason string, duration time.Duration, now time.Time) *Ban {
	ban := &Ban{
		IP:        ip,
		Name:      name,
		Reason:    reason,
		BannedAt:  now,
		Permanent: duration <= 0,
	}
	if duration > 0 {
		ban.ExpiresAt = now.Add(duration)
	}

	m.byIP[ip] = ban
	return ban
}

func (m *Manager) IsBanned(ip string, now time.Time) (*Ban, bool) {
	ban, ok := m.byIP[ip]
	if !ok || ban.Expired(now) {
		return nil, false
	}
	return ban, true
}

func (m *Manager) Remove(ip string) bool {
	if _, ok := m.byIP[ip]; !ok {
		return false
	}
	delete(m.byIP, ip)
	return true
}

// List returns active bans, oldest first.
func (m *Manager) List(now time.Time) []*Ban {
	out := make([]*Ban, 0, len(m.byIP))
	for _, ban := range m.byIP {
		if !ban.Expired(now) {
			out = append(out, ban)
		}
	}
	slices.SortFunc(out, func(a, b *Ban) int {
		return cmp.Or(a.BannedAt.Compare(b.BannedAt), cmp.Compare(a.IP, b.IP))
	})
	return out
}

// Cleanup drops expired bans and returns how many were removed.
func (m *Manager) Cleanup(now time.Time) int {
	removed := 0
	for ip, ban := range m.byIP {
		if ban.Expired(now) {
			delete(m.byIP, ip)
			removed++
		}
	}
	return removed
}
