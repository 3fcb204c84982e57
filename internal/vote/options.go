package vote

import (
	"log/slog"

	"golang.org/x/text/cases"
)

// Option is a server command players may propose by name.
type Option struct {
	Name    string
	Command string

	key string
}

// OptionStore keeps vote options in registration order. Names are not
// unique; lookups return the earliest match.
type OptionStore struct {
	options []Option
	fold    cases.Caser
	logger  *slog.Logger
}

func NewOptionStore(logger *slog.Logger) *OptionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &OptionStore{
		fold:   cases.Fold(),
		logger: logger,
	}
}

// Register appends an option. An empty name means the command doubles as
// its name, which is how options added from the console are named.
func (s *OptionStore) Register(name, command string) Option {
	if name == "" {
		name = command
	}
	opt := Option{
		Name:    name,
		Command: command,
		key:     s.fold.String(name),
	}
	s.options = append(s.options, opt)
	s.logger.Info("added option", "name", name, "command", command)
	return opt
}

// FindByName does a case-insensitive lookup.
func (s *OptionStore) FindByName(name string) (Option, bool) {
	key := s.fold.String(name)
	for _, opt := range s.options {
		if opt.key == key {
			return opt, true
		}
	}
	return Option{}, false
}

func (s *OptionStore) ListAll() []Option {
	out := make([]Option, len(s.options))
	copy(out, s.options)
	return out
}

func (s *OptionStore) Len() int {
	return len(s.options)
}
