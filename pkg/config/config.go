package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// MaxPlayers is the protocol's client slot limit.
const MaxPlayers = 16

type Config struct {
	Server  ServerConfig       `toml:"server"`
	Voting  VotingConfig       `toml:"voting"`
	Tuning  map[string]float64 `toml:"tuning"`
	Metrics MetricsConfig      `toml:"metrics"`
	Scripts ScriptsConfig      `toml:"scripts"`
}

type ServerConfig struct {
	Name       string `toml:"name"`
	Port       int    `toml:"port"`
	MaxPlayers int    `toml:"max_players"`
	Map        string `toml:"map"`
	GameType   string `toml:"gametype"`
	Motd       string `toml:"motd"`

	// gametypes that force default tuning; empty means DM, TDM and CTF
	PureGametypes []string `toml:"pure_gametypes"`

	SpamProtection bool `toml:"spam_protection"`

	// UDP address of the JSON info responder, empty to disable
	InfoAddress string `toml:"info_address"`

	// console lines run once at startup
	Exec []string `toml:"exec"`

	// logging configuration
	LogToFile bool `toml:"log_to_file"`
}

type VotingConfig struct {
	VoteKick        bool     `toml:"vote_kick"`
	VoteKickBantime int      `toml:"vote_kick_bantime"`
	VoteDuration    int      `toml:"vote_duration"`
	VoteCooldown    int      `toml:"vote_cooldown"`
	VoteTryInterval int      `toml:"vote_try_interval"`
	MinYesVotes     int      `toml:"min_yes_votes"`
	Options         []string `toml:"options"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

type ScriptsConfig struct {
	CommandsDir string `toml:"commands_dir"`
}

// Default returns the configuration used for every key a file leaves out.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Name:           "unnamed teevote server",
			Port:           8303,
			MaxPlayers:     8,
			Map:            "dm1",
			GameType:       "DM",
			SpamProtection: true,
		},
		Voting: VotingConfig{
			VoteKick:        true,
			VoteDuration:    25,
			VoteCooldown:    60,
			VoteTryInterval: 3,
		},
		Metrics: MetricsConfig{
			Address: ":9103",
		},
		Scripts: ScriptsConfig{
			CommandsDir: "scripts/commands",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(string(data))
}

// Parse decodes TOML on top of Default. Keys that map to nothing are an
// error so typos don't silently fall back to defaults.
func Parse(data string) (*Config, error) {
	config := Default()

	md, err := toml.Decode(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	if config.Server.GameType == "" {
		config.Server.GameType = "dm"
	}
	config.Server.GameType = strings.ToUpper(config.Server.GameType)
	for i, g := range config.Server.PureGametypes {
		config.Server.PureGametypes[i] = strings.ToUpper(g)
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.MaxPlayers <= 0 || c.Server.MaxPlayers > MaxPlayers {
		return fmt.Errorf("max_players must be between 1 and %d", MaxPlayers)
	}

	if c.Server.Map == "" {
		return fmt.Errorf("map cannot be empty")
	}

	if slices.Contains(c.Server.PureGametypes, "") {
		return fmt.Errorf("pure_gametypes cannot contain an empty name")
	}

	if c.Voting.VoteDuration <= 0 {
		return fmt.Errorf("vote_duration must be positive")
	}

	if c.Voting.VoteCooldown < 0 || c.Voting.VoteTryInterval < 0 {
		return fmt.Errorf("vote_cooldown and vote_try_interval cannot be negative")
	}

	if c.Voting.VoteKickBantime < 0 {
		return fmt.Errorf("vote_kick_bantime cannot be negative")
	}

	if c.Voting.MinYesVotes < 0 || c.Voting.MinYesVotes > c.Server.MaxPlayers {
		return fmt.Errorf("min_yes_votes must be between 0 and max_players")
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics address cannot be empty when metrics are enabled")
	}

	return nil
}

func (v VotingConfig) Duration() time.Duration {
	return time.Duration(v.VoteDuration) * time.Second
}

func (v VotingConfig) Cooldown() time.Duration {
	return time.Duration(v.VoteCooldown) * time.Second
}

func (v VotingConfig) TryInterval() time.Duration {
	return time.Duration(v.VoteTryInterval) * time.Second
}
