package vote

import (
	"io"
	"log/slog"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/siohaza/teevote/internal/protocol"
)

func newTestStore() *OptionStore {
	return NewOptionStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFindByNameFirstMatchWins(t *testing.T) {
	s := newTestStore()
	s.Register("Next Map", "sv_map dm2")
	s.Register("next map", "sv_map ctf1")
	s.Register("", "restart")

	opt, ok := s.FindByName("NEXT MAP")
	if !ok || opt.Command != "sv_map dm2" {
		t.Errorf("FindByName() = %+v, %v; want the first registration", opt, ok)
	}

	opt, ok = s.FindByName("Restart")
	if !ok || opt.Name != "restart" {
		t.Errorf("FindByName(Restart) = %+v, %v", opt, ok)
	}

	if _, ok := s.FindByName("next"); ok {
		t.Error("prefix matched an option")
	}
}

func TestFindByNameFoldsUnicode(t *testing.T) {
	s := newTestStore()
	s.Register("Élan", "sv_map elan")

	if _, ok := s.FindByName("éLAN"); !ok {
		t.Error("case folding did not match éLAN")
	}
}

func TestListAllIsACopy(t *testing.T) {
	s := newTestStore()
	s.Register("", "a")

	list := s.ListAll()
	list[0].Command = "changed"

	if s.ListAll()[0].Command != "a" {
		t.Error("ListAll exposed internal storage")
	}
}

func TestListAllKeepsRegistrationOrder(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("options come back in the order they were added", prop.ForAll(
		func(commands []string) bool {
			s := newTestStore()
			for _, c := range commands {
				s.Register("", c)
			}

			list := s.ListAll()
			if len(list) != len(commands) {
				return false
			}
			for i, c := range commands {
				if list[i].Command != c || list[i].Name != c {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestReplayOptions(t *testing.T) {
	s := newTestStore()
	s.Register("", "sv_map dm1")
	s.Register("", "sv_map dm2")

	sender := &recordingSender{}
	NewGateway(sender).ReplayOptions(4, s.ListAll())

	if len(sender.messages) != 3 {
		t.Fatalf("sent %d messages, want 3", len(sender.messages))
	}
	if _, ok := sender.messages[0].msg.(*protocol.SvVoteClearOptions); !ok {
		t.Errorf("first message = %T, want clear options", sender.messages[0].msg)
	}
	for i, want := range []string{"sv_map dm1", "sv_map dm2"} {
		m := sender.messages[i+1]
		opt, ok := m.msg.(*protocol.SvVoteOption)
		if !ok || opt.Command != want || m.clientID != 4 {
			t.Errorf("message %d = %+v to %d", i+1, m.msg, m.clientID)
		}
	}
}
