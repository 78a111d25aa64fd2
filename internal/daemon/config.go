// Package daemon wires the pocket money stores together: configuration,
// logging, storage, and the one place every store is constructed.
package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"

	"github.com/tutu-network/pocketmoney/internal/app/commendation"
	"github.com/tutu-network/pocketmoney/internal/app/inventory"
	"github.com/tutu-network/pocketmoney/internal/app/isolation"
	"github.com/tutu-network/pocketmoney/internal/app/ledger"
	"github.com/tutu-network/pocketmoney/internal/app/tags"
	"github.com/tutu-network/pocketmoney/internal/infra/observability"
)

// ─── Configuration ──────────────────────────────────────────────────────────

// Config is the full daemon configuration, read from config.toml.
type Config struct {
	Storage      StorageConfig      `toml:"storage"`
	Ledger       LedgerConfig       `toml:"ledger"`
	Inventory    InventoryConfig    `toml:"inventory"`
	Commendation CommendationConfig `toml:"commendation"`
	Context      ContextConfig      `toml:"context"`
	Engine       EngineConfig       `toml:"engine"`
	API          APIConfig          `toml:"api"`
	Log          LogConfig          `toml:"log"`
}

// StorageConfig locates the database.
type StorageConfig struct {
	Dir string `toml:"dir"` // empty = $POCKET_HOME/data
}

// LedgerConfig bounds the ledger and sets the weekly allowance day.
type LedgerConfig struct {
	InitialBalance float64 `toml:"initial_balance"`
	MaxRecords     int     `toml:"max_records"`
	MaxNotes       int     `toml:"max_notes"`
	AllowanceDay   int     `toml:"allowance_day"` // 1 = Monday ... 7 = Sunday
}

// InventoryConfig sets slot capacities.
type InventoryConfig struct {
	MaxSharedSlots int `toml:"max_shared_slots"`
	MaxUserSlots   int `toml:"max_user_slots"`
}

// CommendationConfig sets the bonus range and sender retention.
type CommendationConfig struct {
	MinBonus      int64 `toml:"min_bonus"`
	MaxBonus      int64 `toml:"max_bonus"`
	RetentionDays int   `toml:"retention_days"`
}

// ContextConfig sizes the status context handed to the persona.
type ContextConfig struct {
	IncomeRecords  int `toml:"income_records"`
	ExpenseRecords int `toml:"expense_records"`
}

// EngineConfig configures tag processing.
type EngineConfig struct {
	Persona           string `toml:"persona"`
	SeenCapacity      int    `toml:"seen_capacity"`
	FingerprintPrefix int    `toml:"fingerprint_prefix"`
	JournalSize       int    `toml:"journal_size"`
}

// APIConfig configures the HTTP surface.
type APIConfig struct {
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
	Metrics bool   `toml:"metrics"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Ledger: LedgerConfig{
			InitialBalance: 0,
			MaxRecords:     100,
			MaxNotes:       20,
			AllowanceDay:   1,
		},
		Inventory: InventoryConfig{
			MaxSharedSlots: 10,
			MaxUserSlots:   3,
		},
		Commendation: CommendationConfig{
			MinBonus:      1,
			MaxBonus:      10,
			RetentionDays: 7,
		},
		Context: ContextConfig{
			IncomeRecords:  2,
			ExpenseRecords: 5,
		},
		Engine: EngineConfig{
			Persona:           "Beta",
			SeenCapacity:      1024,
			FingerprintPrefix: 200,
			JournalSize:       1000,
		},
		API: APIConfig{
			Host:    "127.0.0.1",
			Port:    8765,
			Metrics: true,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  true,
		},
	}
}

// ─── Paths ──────────────────────────────────────────────────────────────────

// HomeDir returns $POCKET_HOME, or ~/.pocketmoney.
func HomeDir() string {
	if h := os.Getenv("POCKET_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pocketmoney"
	}
	return filepath.Join(home, ".pocketmoney")
}

// ConfigPath returns the default config file location.
func ConfigPath() string { return filepath.Join(HomeDir(), "config.toml") }

// DataDir returns the effective storage directory.
func (c Config) DataDir() string {
	if c.Storage.Dir != "" {
		return c.Storage.Dir
	}
	return filepath.Join(HomeDir(), "data")
}

// ─── Loading ────────────────────────────────────────────────────────────────

// LoadConfig reads path (ConfigPath when empty) over the defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = ConfigPath()
	}
	_, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no store can work with.
func (c Config) Validate() error {
	switch {
	case c.Ledger.InitialBalance < 0:
		return errors.New("ledger.initial_balance must be >= 0")
	case c.Ledger.AllowanceDay < 1 || c.Ledger.AllowanceDay > 7:
		return fmt.Errorf("ledger.allowance_day %d out of range 1-7", c.Ledger.AllowanceDay)
	case c.Context.IncomeRecords < 0 || c.Context.ExpenseRecords < 0:
		return errors.New("context record counts must be >= 0")
	case c.Inventory.MaxSharedSlots < 0 || c.Inventory.MaxUserSlots < 0:
		return errors.New("inventory slots must be >= 0")
	case c.Commendation.MinBonus > c.Commendation.MaxBonus:
		return errors.New("commendation.min_bonus exceeds max_bonus")
	case c.API.Port < 0 || c.API.Port > 65535:
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	return nil
}

// ─── Store Configs ──────────────────────────────────────────────────────────

// LedgerStoreConfig converts to the ledger package config.
func (c Config) LedgerStoreConfig() ledger.Config {
	return ledger.Config{
		InitialBalance: decimal.NewFromFloat(c.Ledger.InitialBalance),
		MaxRecords:     c.Ledger.MaxRecords,
		MaxNotes:       c.Ledger.MaxNotes,
	}
}

// InventoryStoreConfig converts to the inventory package config.
func (c Config) InventoryStoreConfig() inventory.Config {
	return inventory.Config{
		MaxSharedSlots: c.Inventory.MaxSharedSlots,
		MaxUserSlots:   c.Inventory.MaxUserSlots,
	}
}

// CommendationTrackerConfig converts to the commendation package config.
func (c Config) CommendationTrackerConfig() commendation.Config {
	return commendation.Config{
		RetentionDays: c.Commendation.RetentionDays,
		MinBonus:      c.Commendation.MinBonus,
		MaxBonus:      c.Commendation.MaxBonus,
	}
}

// IsolationConfig converts to the isolation package config.
func (c Config) IsolationConfig() isolation.Config {
	return isolation.Config{
		Ledger:    c.LedgerStoreConfig(),
		Inventory: c.InventoryStoreConfig(),
	}
}

// TagsConfig converts to the tags package config.
func (c Config) TagsConfig() tags.Config {
	return tags.Config{
		Persona:           c.Engine.Persona,
		SeenCapacity:      c.Engine.SeenCapacity,
		FingerprintPrefix: c.Engine.FingerprintPrefix,
	}
}

// JournalConfig converts to the observability journal config.
func (c Config) JournalConfig() observability.JournalConfig {
	return observability.JournalConfig{
		Enabled:   c.Engine.JournalSize > 0,
		MaxEvents: c.Engine.JournalSize,
	}
}
