package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/siohaza/teevote/internal/tuning"
	"github.com/siohaza/teevote/internal/validation"
	"github.com/siohaza/teevote/internal/vote"
)

var ErrNoSuchTuning = errors.New("No such tuning parameter")

// Target is the match the built-in commands act on.
type Target interface {
	Tuning() *tuning.Params
	Votes() *vote.Manager
	BroadcastTuning()
	Kick(clientID int, reason string) error
	Ban(clientID, minutes int) error
	Unban(ip string) bool
	SayAll(text string)
	Broadcast(text string)
	ChangeMap(name string)
	Restart()
	Status() []string
}

func RegisterBuiltins(c *Console, t Target) {
	c.Register(Command{
		Name:        "tune",
		Usage:       "tune <name> <value>",
		Description: "Change a tuning parameter",
		MinArgs:     2,
		Handler: func(args []string) ([]string, error) {
			value, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q: %w", args[1], err)
			}
			if !validation.IsValidTuneValue(value) {
				return nil, fmt.Errorf("invalid value %q", args[1])
			}
			if !t.Tuning().Set(args[0], value) {
				return nil, ErrNoSuchTuning
			}
			t.BroadcastTuning()
			return []string{fmt.Sprintf("%s changed to %.2f", args[0], value)}, nil
		},
	})

	c.Register(Command{
		Name:        "tune_reset",
		Usage:       "tune_reset",
		Description: "Reset all tuning parameters to their defaults",
		Handler: func([]string) ([]string, error) {
			t.Tuning().Reset()
			t.BroadcastTuning()
			return []string{"tuning reset"}, nil
		},
	})

	c.Register(Command{
		Name:        "tune_dump",
		Usage:       "tune_dump",
		Description: "List every tuning parameter",
		Handler: func([]string) ([]string, error) {
			dump := t.Tuning().Dump()
			out := make([]string, len(dump))
			for i, p := range dump {
				out[i] = fmt.Sprintf("%s %.2f", p.Name, p.Value)
			}
			return out, nil
		},
	})

	c.Register(Command{
		Name:        "addvote",
		Usage:       "addvote <command>",
		Description: "Add a vote option",
		MinArgs:     1,
		Rest:        true,
		Handler: func(args []string) ([]string, error) {
			t.Votes().Options().Register("", args[0])
			return nil, nil
		},
	})

	c.Register(Command{
		Name:        "vote",
		Usage:       "vote yes|no",
		Description: "Force the running vote",
		MinArgs:     1,
		Handler: func(args []string) ([]string, error) {
			var e vote.Enforcement
			switch strings.ToLower(args[0]) {
			case "yes":
				e = vote.EnforceYes
			case "no":
				e = vote.EnforceNo
			default:
				return nil, fmt.Errorf("%w: vote yes|no", ErrUsage)
			}
			if err := t.Votes().Enforce(e); err != nil {
				return nil, err
			}
			return nil, nil
		},
	})

	c.Register(Command{
		Name:        "kick",
		Usage:       "kick <id>",
		Description: "Disconnect a client",
		MinArgs:     1,
		Handler: func(args []string) ([]string, error) {
			id, err := parseClientID(args[0])
			if err != nil {
				return nil, err
			}
			return nil, t.Kick(id, "Kicked by console")
		},
	})

	c.Register(Command{
		Name:        "ban",
		Usage:       "ban <id> <minutes>",
		Description: "Ban a client's address; 0 minutes is permanent",
		MinArgs:     2,
		Handler: func(args []string) ([]string, error) {
			id, err := parseClientID(args[0])
			if err != nil {
				return nil, err
			}
			minutes, err := strconv.Atoi(args[1])
			if err != nil || minutes < 0 {
				return nil, fmt.Errorf("invalid ban duration %q", args[1])
			}
			return nil, t.Ban(id, minutes)
		},
	})

	c.Register(Command{
		Name:        "unban",
		Usage:       "unban <address>",
		Description: "Lift a ban",
		MinArgs:     1,
		Handler: func(args []string) ([]string, error) {
			if !t.Unban(args[0]) {
				return nil, fmt.Errorf("%s is not banned", args[0])
			}
			return []string{fmt.Sprintf("unbanned %s", args[0])}, nil
		},
	})

	c.Register(Command{
		Name:        "say",
		Usage:       "say <text>",
		Description: "Chat to everyone as the server",
		MinArgs:     1,
		Rest:        true,
		Handler: func(args []string) ([]string, error) {
			t.SayAll(args[0])
			return nil, nil
		},
	})

	c.Register(Command{
		Name:        "broadcast",
		Usage:       "broadcast <text>",
		Description: "Show a centered message to everyone",
		MinArgs:     1,
		Rest:        true,
		Handler: func(args []string) ([]string, error) {
			t.Broadcast(args[0])
			return nil, nil
		},
	})

	changeMap := func(args []string) ([]string, error) {
		t.ChangeMap(args[0])
		return nil, nil
	}
	c.Register(Command{
		Name:        "change_map",
		Usage:       "change_map <map>",
		Description: "Switch to another map",
		MinArgs:     1,
		Handler:     changeMap,
	})
	c.Register(Command{
		Name:        "sv_map",
		Usage:       "sv_map <map>",
		Description: "Alias of change_map",
		MinArgs:     1,
		Handler:     changeMap,
	})

	c.Register(Command{
		Name:        "restart",
		Usage:       "restart",
		Description: "Restart the round",
		Handler: func([]string) ([]string, error) {
			t.Restart()
			return nil, nil
		},
	})

	c.Register(Command{
		Name:        "status",
		Usage:       "status",
		Description: "List connected clients",
		Handler: func([]string) ([]string, error) {
			return t.Status(), nil
		},
	})

	c.Register(Command{
		Name:        "help",
		Usage:       "help",
		Description: "List console commands",
		Handler: func([]string) ([]string, error) {
			var out []string
			for _, cmd := range c.Commands() {
				out = append(out, fmt.Sprintf("%s - %s", cmd.Usage, cmd.Description))
			}
			return out, nil
		},
	})
}

func parseClientID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid client id %q", s)
	}
	return id, nil
}
