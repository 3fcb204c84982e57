package lua

import (
	"fmt"
	"os"

	"github.com/Shopify/go-lua"
)

// VM is one sandboxed Lua state. It is not safe for concurrent use.
type VM struct {
	state *lua.State
}

func NewVM() *VM {
	state := lua.NewState()
	openSafeLibraries(state)
	return &VM{state: state}
}

func openSafeLibraries(state *lua.State) {
	lua.OpenLibraries(state)

	for _, name := range []string{"io", "os", "debug", "dofile", "loadfile", "require"} {
		state.PushNil()
		state.SetGlobal(name)
	}
}

func (vm *VM) LoadFile(path string) error {
	if err := lua.DoFile(vm.state, path); err != nil {
		return fmt.Errorf("failed to load lua file %s: %w", path, err)
	}
	return nil
}

func (vm *VM) LoadString(code string) error {
	if err := lua.DoString(vm.state, code); err != nil {
		return fmt.Errorf("failed to load lua string: %w", err)
	}
	return nil
}

func (vm *VM) GetGlobalString(name string) (string, error) {
	vm.state.Global(name)
	defer vm.state.Pop(1)

	if !vm.state.IsString(-1) {
		return "", fmt.Errorf("global %s is not a string", name)
	}
	value, _ := vm.state.ToString(-1)
	return value, nil
}

func (vm *VM) HasFunction(name string) bool {
	vm.state.Global(name)
	isFunc := vm.state.IsFunction(-1)
	vm.state.Pop(1)
	return isFunc
}

// CallFunction calls the global function name with string arguments packed
// into a single array table (index 0 holds the command name) and returns
// its result when that is a string.
func (vm *VM) CallFunction(name string, args []string) (string, error) {
	vm.state.Global(name)
	if !vm.state.IsFunction(-1) {
		vm.state.Pop(1)
		return "", fmt.Errorf("global %s is not a function", name)
	}

	vm.state.NewTable()
	for i, arg := range args {
		vm.state.PushString(arg)
		vm.state.RawSetInt(-2, i)
	}

	if err := vm.state.ProtectedCall(1, 1, 0); err != nil {
		return "", fmt.Errorf("[Lua Error] function %s: %w", name, err)
	}

	result := ""
	if vm.state.IsString(-1) {
		result, _ = vm.state.ToString(-1)
	}
	vm.state.Pop(1)

	return result, nil
}

func (vm *VM) RegisterFunction(name string, fn lua.Function) {
	vm.state.Register(name, fn)
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
