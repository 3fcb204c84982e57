package lua

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// LuaCommand is a console command implemented by a script. A script sets
// the globals name, aliases, description, usage and handler, and defines
// the handler function (execute by default).
type LuaCommand struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handler     string
	VM          *VM
}

type CommandManager struct {
	commands map[string]*LuaCommand
	aliases  map[string]string
	logger   *slog.Logger
}

func NewCommandManager(logger *slog.Logger) *CommandManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandManager{
		commands: make(map[string]*LuaCommand),
		aliases:  make(map[string]string),
		logger:   logger,
	}
}

func (cm *CommandManager) LoadCommands(commandsDir string, api *GameAPI) error {
	files, err := os.ReadDir(commandsDir)
	if err != nil {
		return fmt.Errorf("failed to read commands directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".lua") {
			continue
		}

		commandPath := filepath.Join(commandsDir, file.Name())
		if err := cm.LoadCommandFile(commandPath, api); err != nil {
			cm.logger.Warn("failed to load command file", "file", file.Name(), "error", err)
			continue
		}
	}

	cm.logger.Info("loaded lua commands", "count", len(cm.commands))
	return nil
}

func (cm *CommandManager) LoadCommandFile(path string, api *GameAPI) error {
	return cm.load(api, func(vm *VM) error { return vm.LoadFile(path) })
}

// LoadCommandString registers a command from source held in memory.
func (cm *CommandManager) LoadCommandString(code string, api *GameAPI) error {
	return cm.load(api, func(vm *VM) error { return vm.LoadString(code) })
}

func (cm *CommandManager) load(api *GameAPI, run func(*VM) error) error {
	vm := NewVM()

	if api != nil {
		api.RegisterFunctions(vm)
	}

	if err := run(vm); err != nil {
		return err
	}

	name, err := vm.GetGlobalString("name")
	if err != nil {
		return fmt.Errorf("command missing 'name': %w", err)
	}

	cmd := &LuaCommand{
		Name:    strings.ToLower(name),
		Handler: "execute",
		VM:      vm,
	}

	if aliases, err := vm.GetGlobalString("aliases"); err == nil {
		for _, alias := range strings.Split(aliases, ",") {
			if alias = strings.TrimSpace(alias); alias != "" {
				cmd.Aliases = append(cmd.Aliases, strings.ToLower(alias))
			}
		}
	}

	if desc, err := vm.GetGlobalString("description"); err == nil {
		cmd.Description = desc
	}

	if usage, err := vm.GetGlobalString("usage"); err == nil {
		cmd.Usage = usage
	}

	if handler, err := vm.GetGlobalString("handler"); err == nil {
		cmd.Handler = handler
	}

	if !vm.HasFunction(cmd.Handler) {
		return fmt.Errorf("command %s: handler %s is not defined", cmd.Name, cmd.Handler)
	}

	cm.Register(cmd)
	return nil
}

func (cm *CommandManager) Register(cmd *LuaCommand) {
	cm.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		cm.aliases[alias] = cmd.Name
	}
}

func (cm *CommandManager) Get(name string) *LuaCommand {
	name = strings.ToLower(name)
	if canonical, ok := cm.aliases[name]; ok {
		return cm.commands[canonical]
	}
	return cm.commands[name]
}

func (cm *CommandManager) Has(name string) bool {
	return cm.Get(name) != nil
}

// Execute runs a script command. args[0] in the script is the name the
// command was invoked with; the arguments follow from index 1.
func (cm *CommandManager) Execute(cmdName string, args []string) (string, error) {
	cmd := cm.Get(cmdName)
	if cmd == nil {
		return "", fmt.Errorf("unknown command: %s", cmdName)
	}

	result, err := cmd.VM.CallFunction(cmd.Handler, append([]string{cmdName}, args...))
	if err != nil {
		return "", fmt.Errorf("command execution failed: %w", err)
	}

	return result, nil
}

// List returns the loaded commands sorted by name.
func (cm *CommandManager) List() []*LuaCommand {
	commands := make([]*LuaCommand, 0, len(cm.commands))
	for _, cmd := range cm.commands {
		commands = append(commands, cmd)
	}
	slices.SortFunc(commands, func(a, b *LuaCommand) int {
		return strings.Compare(a.Name, b.Name)
	})
	return commands
}
