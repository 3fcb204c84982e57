package lua

import (
	"github.com/Shopify/go-lua"
)

// ServerInterface is the part of the match that scripts may touch.
type ServerInterface interface {
	SendChatToAll(message string)
	SendChatToPlayer(clientID int, message string)
	SetTuning(name string, value float64) bool
	GetTuning(name string) (float64, bool)
	AddVoteOption(command string)
	HasActiveVote() bool
	PlayerName(clientID int) (string, bool)
	PlayerCount() int
	ExecuteCommand(line string) error
}

type GameAPI struct {
	server ServerInterface
}

func NewGameAPI(srv ServerInterface) *GameAPI {
	return &GameAPI{server: srv}
}

func (api *GameAPI) RegisterFunctions(vm *VM) {
	vm.RegisterFunction("say", api.say)
	vm.RegisterFunction("send_chat", api.sendChat)
	vm.RegisterFunction("tune", api.tune)
	vm.RegisterFunction("get_tune", api.getTune)
	vm.RegisterFunction("add_vote", api.addVote)
	vm.RegisterFunction("has_active_vote", api.hasActiveVote)
	vm.RegisterFunction("get_player_name", api.getPlayerName)
	vm.RegisterFunction("get_player_count", api.getPlayerCount)
	vm.RegisterFunction("exec", api.exec)
}

func (api *GameAPI) say(state *lua.State) int {
	message := lua.CheckString(state, 1)
	api.server.SendChatToAll(message)
	return 0
}

func (api *GameAPI) sendChat(state *lua.State) int {
	clientID := lua.CheckInteger(state, 1)
	message := lua.CheckString(state, 2)
	api.server.SendChatToPlayer(clientID, message)
	return 0
}

func (api *GameAPI) tune(state *lua.State) int {
	name := lua.CheckString(state, 1)
	value := lua.CheckNumber(state, 2)
	state.PushBoolean(api.server.SetTuning(name, value))
	return 1
}

func (api *GameAPI) getTune(state *lua.State) int {
	name := lua.CheckString(state, 1)
	value, ok := api.server.GetTuning(name)
	if !ok {
		state.PushNil()
		return 1
	}
	state.PushNumber(value)
	return 1
}

func (api *GameAPI) addVote(state *lua.State) int {
	command := lua.CheckString(state, 1)
	api.server.AddVoteOption(command)
	return 0
}

func (api *GameAPI) hasActiveVote(state *lua.State) int {
	state.PushBoolean(api.server.HasActiveVote())
	return 1
}

func (api *GameAPI) getPlayerName(state *lua.State) int {
	id := lua.CheckInteger(state, 1)

	name, ok := api.server.PlayerName(id)
	if !ok {
		state.PushString("")
		return 1
	}

	state.PushString(name)
	return 1
}

func (api *GameAPI) getPlayerCount(state *lua.State) int {
	state.PushInteger(api.server.PlayerCount())
	return 1
}

// exec runs a console line and returns true, or false and the error text.
func (api *GameAPI) exec(state *lua.State) int {
	line := lua.CheckString(state, 1)

	if err := api.server.ExecuteCommand(line); err != nil {
		state.PushBoolean(false)
		state.PushString(err.Error())
		return 2
	}

	state.PushBoolean(true)
	state.PushString("")
	return 2
}
