package validation

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/siohaza/teevote/internal/protocol"
)

const (
	// MaxNameLength counts bytes, like the client's name buffer minus its
	// terminator.
	MaxNameLength = 15
	MaxChatLength = 255
	MaxSkinLength = 23

	DefaultName = "nameless tee"
	DefaultSkin = "default"
)

func IsValidClientID(id int) bool {
	return id >= 0 && id < protocol.MaxClients
}

func IsValidVoteChoice(v int) bool {
	return v == 1 || v == -1
}

// IsValidTuneValue rejects values that would not survive the fixed point
// wire encoding.
func IsValidTuneValue(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return math.Abs(v) <= math.MaxInt32/100
}

// SanitizeName trims and truncates a requested player name. Blank names get
// DefaultName.
func SanitizeName(name string) string {
	name = truncate(strings.TrimSpace(name), MaxNameLength)
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	return name
}

func SanitizeSkin(skin string) string {
	skin = truncate(strings.TrimSpace(skin), MaxSkinLength)
	if skin == "" {
		return DefaultSkin
	}
	return skin
}

func ClampChat(message string) string {
	return truncate(message, MaxChatLength)
}

// UniqueName prefixes name with "(n)" until taken reports it free.
func UniqueName(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for i := 1; ; i++ {
		prefix := fmt.Sprintf("(%d)", i)
		candidate := prefix + truncate(name, MaxNameLength-len(prefix))
		if !taken(candidate) {
			return candidate
		}
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
