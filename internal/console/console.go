// Package console parses and runs admin command lines. The same dispatcher
// runs lines typed by the operator, startup exec lines and the commands of
// votes that pass.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// Command is a built-in console command. When Rest is set the final
// argument takes the remainder of the line verbatim.
type Command struct {
	Name        string
	Usage       string
	Description string
	MinArgs     int
	Rest        bool
	Handler     func(args []string) ([]string, error)
}

// ScriptCommands resolves names the built-ins don't know.
type ScriptCommands interface {
	Has(name string) bool
	Execute(name string, args []string) (string, error)
}

type Console struct {
	commands map[string]*Command
	scripts  ScriptCommands
	logger   *slog.Logger
}

func New(logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{
		commands: make(map[string]*Command),
		logger:   logger,
	}
}

func (c *Console) Register(cmd Command) {
	cmd.Name = strings.ToLower(cmd.Name)
	c.commands[cmd.Name] = &cmd
}

func (c *Console) SetScripts(s ScriptCommands) {
	c.scripts = s
}

// Commands returns the built-in commands sorted by name.
func (c *Console) Commands() []Command {
	out := make([]Command, 0, len(c.commands))
	for _, cmd := range c.commands {
		out = append(out, *cmd)
	}
	slices.SortFunc(out, func(a, b Command) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}

// Run executes one line and returns its output lines.
func (c *Console) Run(line string) ([]string, error) {
	name, rest := splitCommand(line)
	if name == "" {
		return nil, nil
	}
	name = strings.ToLower(name)

	if cmd, ok := c.commands[name]; ok {
		args := parseArgs(rest, cmd.Rest, cmd.MinArgs)
		if len(args) < cmd.MinArgs {
			return nil, fmt.Errorf("%w: %s", ErrUsage, cmd.Usage)
		}
		return cmd.Handler(args)
	}

	if c.scripts != nil && c.scripts.Has(name) {
		out, err := c.scripts.Execute(name, parseArgs(rest, false, 0))
		if err != nil {
			return nil, err
		}
		if out == "" {
			return nil, nil
		}
		return []string{out}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// Execute runs line and logs its output. Passed votes dispatch their
// commands through it.
func (c *Console) Execute(line string) error {
	out, err := c.Run(line)
	if err != nil {
		c.logger.Warn("console error", "line", line, "error", err)
		return err
	}
	for _, l := range out {
		c.logger.Info("console", "output", l)
	}
	return nil
}

func splitCommand(line string) (name, rest string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", ""
	}

	if i := strings.IndexAny(line, " \t"); i >= 0 {
		return line[:i], strings.TrimSpace(line[i+1:])
	}
	return line, ""
}

// parseArgs splits s on whitespace, honouring double quotes and backslash
// escapes inside them. With rest set, the argument at position minArgs-1
// swallows the remainder of the line.
func parseArgs(s string, rest bool, minArgs int) []string {
	var args []string

	for s = strings.TrimSpace(s); s != ""; s = strings.TrimSpace(s) {
		if rest && len(args) == max(minArgs-1, 0) {
			args = append(args, unquote(s))
			break
		}

		var arg string
		arg, s = nextArg(s)
		args = append(args, arg)
	}

	return args
}

func nextArg(s string) (arg, remainder string) {
	if s[0] != '"' {
		if i := strings.IndexAny(s, " \t"); i >= 0 {
			return s[:i], s[i+1:]
		}
		return s, ""
	}

	var b strings.Builder
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i])
			}
		case '"':
			return b.String(), s[i+1:]
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), ""
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		arg, remainder := nextArg(s)
		if remainder == "" {
			return arg
		}
	}
	return s
}
