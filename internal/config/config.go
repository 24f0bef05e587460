// Package config provides Viper-based configuration loading for the battle server.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/vnbattle/internal/game/combat"
	"github.com/cory-johannsen/vnbattle/internal/game/qte"
)

// EnvPrefix prefixes every environment override, e.g. VNB_BATTLE_FLEE_DC.
const EnvPrefix = "VNB"

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// RedisConfig holds the encounter snapshot store settings.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// SnapshotTTL bounds how long an abandoned encounter can be resumed.
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds the battle service listener settings.
type GameServerConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
	// DebugAddr is the chi debug/metrics listener; empty disables it.
	DebugAddr string `mapstructure:"debug_addr"`
	// ActionsPerSecond and ActionBurst rate limit each session's Act calls.
	ActionsPerSecond float64 `mapstructure:"actions_per_second"`
	ActionBurst      int     `mapstructure:"action_burst"`
	// IdleTimeout evicts sessions with no activity; 0 disables eviction.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// QTEConfig tunes the timing minigame.
type QTEConfig struct {
	// Mode is "targeted" or "centered" ("legacy" is accepted for centered).
	Mode        string  `mapstructure:"mode"`
	PerfectHalf float64 `mapstructure:"perfect_half"`
	GoodHalf    float64 `mapstructure:"good_half"`
	NormalHalf  float64 `mapstructure:"normal_half"`
	Difficulty  float64 `mapstructure:"difficulty"`
}

// Widths converts the configured half-widths.
func (q QTEConfig) Widths() qte.Widths {
	return qte.Widths{Perfect: q.PerfectHalf, Good: q.GoodHalf, Normal: q.NormalHalf}
}

// BattleConfig holds the combat tuning constants.
type BattleConfig struct {
	DefendACBonus       int     `mapstructure:"defend_ac_bonus"`
	DefendCooldown      int     `mapstructure:"defend_cooldown"`
	FleeDC              int     `mapstructure:"flee_dc"`
	FleeBonus           int     `mapstructure:"flee_bonus"`
	CritMultiplier      int     `mapstructure:"crit_multiplier"`
	MinDamage           int     `mapstructure:"min_damage"`
	BarrierReduction    float64 `mapstructure:"barrier_reduction"`
	BarrierStacksPerHit int     `mapstructure:"barrier_stacks_per_hit"`
	// DevMode enables forced dice on the battle service.
	DevMode bool      `mapstructure:"dev_mode"`
	QTE     QTEConfig `mapstructure:"qte"`
}

// Rules converts the configuration into combat rules.
func (b BattleConfig) Rules() combat.Rules {
	return combat.Rules{
		DefendACBonus:       b.DefendACBonus,
		DefendCooldown:      b.DefendCooldown,
		FleeDC:              b.FleeDC,
		FleeBonus:           b.FleeBonus,
		CritMultiplier:      b.CritMultiplier,
		MinDamage:           b.MinDamage,
		BarrierReduction:    b.BarrierReduction,
		BarrierStacksPerHit: b.BarrierStacksPerHit,
		QTEMode:             qte.ParseMode(b.QTE.Mode),
		QTEWidths:           b.QTE.Widths(),
		QTEDifficulty:       b.QTE.Difficulty,
	}
}

// PlayerConfig describes the combatant a new player starts with.
type PlayerConfig struct {
	Name          string         `mapstructure:"name"`
	MaxHP         int            `mapstructure:"max_hp"`
	MaxMana       int            `mapstructure:"max_mana"`
	AC            int            `mapstructure:"ac"`
	AttackBonus   int            `mapstructure:"attack_bonus"`
	Damage        string         `mapstructure:"damage"`
	BarrierStacks int            `mapstructure:"barrier_stacks"`
	Skills        []string       `mapstructure:"skills"`
	Items         map[string]int `mapstructure:"items"`
}

// ContentConfig locates the YAML and Lua content directories.
type ContentConfig struct {
	Conditions string `mapstructure:"conditions"`
	Items      string `mapstructure:"items"`
	Skills     string `mapstructure:"skills"`
	Enemies    string `mapstructure:"enemies"`
	Scripts    string `mapstructure:"scripts"`
	Domains    string `mapstructure:"domains"`
	// InstructionLimit caps Lua opcodes per hook call; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Battle     BattleConfig     `mapstructure:"battle"`
	Player     PlayerConfig     `mapstructure:"player"`
	Content    ContentConfig    `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateLogging(c.Logging),
		validateDatabase(c.Database),
		validateRedis(c.Redis),
		validateGameServer(c.GameServer),
		validateBattle(c.Battle),
		validatePlayer(c.Player),
		validateContent(c.Content),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func joined(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	return joined(errs)
}

func validateRedis(r RedisConfig) error {
	var errs []string
	if r.Addr == "" {
		errs = append(errs, "redis.addr must not be empty")
	}
	if r.DB < 0 {
		errs = append(errs, fmt.Sprintf("redis.db must be >= 0, got %d", r.DB))
	}
	if r.SnapshotTTL < 0 {
		errs = append(errs, "redis.snapshot_ttl must not be negative")
	}
	return joined(errs)
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.ActionsPerSecond <= 0 {
		errs = append(errs, fmt.Sprintf("gameserver.actions_per_second must be > 0, got %g", g.ActionsPerSecond))
	}
	if g.ActionBurst < 1 {
		errs = append(errs, fmt.Sprintf("gameserver.action_burst must be >= 1, got %d", g.ActionBurst))
	}
	if g.IdleTimeout < 0 {
		errs = append(errs, "gameserver.idle_timeout must not be negative")
	}
	return joined(errs)
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.DefendACBonus < 0 {
		errs = append(errs, fmt.Sprintf("battle.defend_ac_bonus must be >= 0, got %d", b.DefendACBonus))
	}
	if b.DefendCooldown < 0 {
		errs = append(errs, fmt.Sprintf("battle.defend_cooldown must be >= 0, got %d", b.DefendCooldown))
	}
	if b.FleeDC < 1 || b.FleeDC > 20 {
		errs = append(errs, fmt.Sprintf("battle.flee_dc must be 1-20, got %d", b.FleeDC))
	}
	if b.CritMultiplier < 1 {
		errs = append(errs, fmt.Sprintf("battle.crit_multiplier must be >= 1, got %d", b.CritMultiplier))
	}
	if b.MinDamage < 0 {
		errs = append(errs, fmt.Sprintf("battle.min_damage must be >= 0, got %d", b.MinDamage))
	}
	if b.BarrierReduction < 0 || b.BarrierReduction > 1 {
		errs = append(errs, fmt.Sprintf("battle.barrier_reduction must be in [0, 1], got %g", b.BarrierReduction))
	}
	if b.BarrierStacksPerHit < 1 {
		errs = append(errs, fmt.Sprintf("battle.barrier_stacks_per_hit must be >= 1, got %d", b.BarrierStacksPerHit))
	}
	switch b.QTE.Mode {
	case "targeted", "centered", "legacy":
	default:
		errs = append(errs, fmt.Sprintf("battle.qte.mode must be one of [targeted, centered, legacy], got %q", b.QTE.Mode))
	}
	if err := b.QTE.Widths().Validate(); err != nil {
		errs = append(errs, "battle.qte: "+err.Error())
	}
	if b.QTE.Difficulty <= 0 {
		errs = append(errs, fmt.Sprintf("battle.qte.difficulty must be > 0, got %g", b.QTE.Difficulty))
	}
	return joined(errs)
}

func validatePlayer(p PlayerConfig) error {
	var errs []string
	if p.Name == "" {
		errs = append(errs, "player.name must not be empty")
	}
	if p.MaxHP < 1 {
		errs = append(errs, fmt.Sprintf("player.max_hp must be >= 1, got %d", p.MaxHP))
	}
	if p.MaxMana < 0 {
		errs = append(errs, fmt.Sprintf("player.max_mana must be >= 0, got %d", p.MaxMana))
	}
	if p.AC < 1 {
		errs = append(errs, fmt.Sprintf("player.ac must be >= 1, got %d", p.AC))
	}
	if p.Damage == "" {
		errs = append(errs, "player.damage must not be empty")
	}
	for id, qty := range p.Items {
		if qty < 0 {
			errs = append(errs, fmt.Sprintf("player.items.%s must be >= 0, got %d", id, qty))
		}
	}
	return joined(errs)
}

func validateContent(c ContentConfig) error {
	var errs []string
	for name, dir := range map[string]string{
		"conditions": c.Conditions,
		"items":      c.Items,
		"skills":     c.Skills,
		"enemies":    c.Enemies,
	} {
		if dir == "" {
			errs = append(errs, fmt.Sprintf("content.%s must not be empty", name))
		}
	}
	if c.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("content.instruction_limit must be >= 0, got %d", c.InstructionLimit))
	}
	// map iteration order is random
	sort.Strings(errs)
	return joined(errs)
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := NewViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// NewViper returns a Viper instance with defaults and VNB_ environment
// overrides installed but no config file.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "vnbattle")
	v.SetDefault("database.password", "vnbattle")
	v.SetDefault("database.name", "vnbattle")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_ttl", "30m")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50051)
	v.SetDefault("gameserver.debug_addr", "127.0.0.1:8081")
	v.SetDefault("gameserver.actions_per_second", 5)
	v.SetDefault("gameserver.action_burst", 3)
	v.SetDefault("gameserver.idle_timeout", "15m")

	rules := combat.DefaultRules()
	v.SetDefault("battle.defend_ac_bonus", rules.DefendACBonus)
	v.SetDefault("battle.defend_cooldown", rules.DefendCooldown)
	v.SetDefault("battle.flee_dc", rules.FleeDC)
	v.SetDefault("battle.flee_bonus", rules.FleeBonus)
	v.SetDefault("battle.crit_multiplier", rules.CritMultiplier)
	v.SetDefault("battle.min_damage", rules.MinDamage)
	v.SetDefault("battle.barrier_reduction", rules.BarrierReduction)
	v.SetDefault("battle.barrier_stacks_per_hit", rules.BarrierStacksPerHit)
	v.SetDefault("battle.dev_mode", false)
	v.SetDefault("battle.qte.mode", rules.QTEMode.String())
	v.SetDefault("battle.qte.perfect_half", rules.QTEWidths.Perfect)
	v.SetDefault("battle.qte.good_half", rules.QTEWidths.Good)
	v.SetDefault("battle.qte.normal_half", rules.QTEWidths.Normal)
	v.SetDefault("battle.qte.difficulty", rules.QTEDifficulty)

	v.SetDefault("player.name", "Protagonist")
	v.SetDefault("player.max_hp", 30)
	v.SetDefault("player.max_mana", 10)
	v.SetDefault("player.ac", 12)
	v.SetDefault("player.attack_bonus", 3)
	v.SetDefault("player.damage", "1d8+1")
	v.SetDefault("player.barrier_stacks", 0)

	v.SetDefault("content.conditions", "content/conditions")
	v.SetDefault("content.items", "content/items")
	v.SetDefault("content.skills", "content/skills")
	v.SetDefault("content.enemies", "content/enemies")
	v.SetDefault("content.scripts", "content/scripts")
	v.SetDefault("content.domains", "content/ai")
	v.SetDefault("content.instruction_limit", 0)
}
