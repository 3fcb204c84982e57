// Package tuning holds the physics parameters the server pushes to clients.
//
// The schema is fixed: names, order and count are part of the network
// protocol, so parameters are only ever read, overwritten or reset, never
// added or removed at runtime.
package tuning

import (
	"log/slog"
	"slices"

	"github.com/siohaza/teevote/internal/protocol"
)

type Param struct {
	Name  string
	Value float64
}

var schema = [...]Param{
	{"ground_control_speed", 10.0},
	{"ground_control_accel", 2.0},
	{"ground_friction", 0.5},
	{"ground_jump_impulse", 13.2},
	{"air_jump_impulse", 12.0},
	{"air_control_speed", 5.0},
	{"air_control_accel", 1.5},
	{"air_friction", 0.95},
	{"hook_length", 380.0},
	{"hook_fire_speed", 80.0},
	{"hook_drag_accel", 3.0},
	{"hook_drag_speed", 15.0},
	{"gravity", 0.5},
	{"velramp_start", 550},
	{"velramp_range", 2000},
	{"velramp_curvature", 1.4},
	{"gun_curvature", 1.25},
	{"gun_speed", 2200.0},
	{"gun_lifetime", 2.0},
	{"shotgun_curvature", 1.25},
	{"shotgun_speed", 2750.0},
	{"shotgun_speeddiff", 0.8},
	{"shotgun_lifetime", 0.20},
	{"grenade_curvature", 7.0},
	{"grenade_speed", 1000.0},
	{"grenade_lifetime", 2.0},
	{"laser_reach", 800.0},
	{"laser_bounce_delay", 150},
	{"laser_bounce_num", 1},
	{"laser_bounce_cost", 0},
	{"laser_damage", 5},
	{"player_collision", 1},
	{"player_hooking", 1},
}

// DefaultPureGametypes are the stock modes that must run with default physics.
var DefaultPureGametypes = []string{"DM", "TDM", "CTF"}

// Count returns the number of parameters in the schema.
func Count() int {
	return len(schema)
}

// Names returns the parameter names in declaration order.
func Names() []string {
	names := make([]string, len(schema))
	for i, p := range schema {
		names[i] = p.Name
	}
	return names
}

func index(name string) int {
	for i, p := range schema {
		if p.Name == name {
			return i
		}
	}
	return -1
}

type Params struct {
	values [len(schema)]float64
	pure   []string
	logger *slog.Logger
}

// New returns a parameter set holding the defaults. pureGametypes lists the
// game types that force defaults; nil means DefaultPureGametypes.
func New(pureGametypes []string, logger *slog.Logger) *Params {
	if logger == nil {
		logger = slog.Default()
	}
	if pureGametypes == nil {
		pureGametypes = DefaultPureGametypes
	}

	p := &Params{
		pure:   slices.Clone(pureGametypes),
		logger: logger,
	}
	p.Reset()
	return p
}

// Set changes one parameter. Names are matched exactly; an unknown name
// leaves every value untouched and returns false.
func (p *Params) Set(name string, value float64) bool {
	i := index(name)
	if i < 0 {
		return false
	}
	p.values[i] = value
	return true
}

func (p *Params) Get(name string) (float64, bool) {
	i := index(name)
	if i < 0 {
		return 0, false
	}
	return p.values[i], true
}

func (p *Params) Reset() {
	for i, def := range schema {
		p.values[i] = def.Value
	}
}

func (p *Params) IsDefault() bool {
	for i, def := range schema {
		if protocol.ToFixed(p.values[i]) != protocol.ToFixed(def.Value) {
			return false
		}
	}
	return true
}

// Dump returns every parameter with its current value in declaration order.
func (p *Params) Dump() []Param {
	out := make([]Param, len(schema))
	for i, def := range schema {
		out[i] = Param{Name: def.Name, Value: p.values[i]}
	}
	return out
}

// Serialize returns the values in declaration order. The slice always has
// Count() entries.
func (p *Params) Serialize() []float64 {
	out := make([]float64, len(schema))
	copy(out, p.values[:])
	return out
}

func (p *Params) IsPure(gametype string) bool {
	return slices.Contains(p.pure, gametype)
}

// EnforcePure resets to defaults when gametype is a pure mode and any value
// has drifted. It reports whether a reset happened.
func (p *Params) EnforcePure(gametype string) bool {
	if !p.IsPure(gametype) || p.IsDefault() {
		return false
	}

	p.logger.Info("resetting tuning due to pure server", "gametype", gametype)
	p.Reset()
	return true
}
