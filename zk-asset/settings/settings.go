package settings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

const (
	DefaultNumberOfOutputNotes = 2
	DefaultAccountCacheTTL     = time.Minute
)

// Provider hands out the user settings the engine depends on.
type Provider interface {
	NumberOfOutputNotes(ctx context.Context) (int, error)
}

type Settings struct {
	// NumberOfOutputNotes is the default count of notes minted per recipient.
	// Zero leaves recipients without an explicit count unpaid.
	NumberOfOutputNotes int

	// NumberOfInputNotes is passed to the note store as a hint; zero lets
	// the store decide.
	NumberOfInputNotes int

	AccountCacheTTL time.Duration
	LogLevel        zerolog.Level
}

func Default() Settings {
	return Settings{
		NumberOfOutputNotes: DefaultNumberOfOutputNotes,
		AccountCacheTTL:     DefaultAccountCacheTTL,
		LogLevel:            zerolog.InfoLevel,
	}
}

type fileConfig struct {
	NumberOfOutputNotes int    `toml:"number_of_output_notes"`
	NumberOfInputNotes  int    `toml:"number_of_input_notes"`
	AccountCacheTTL     string `toml:"account_cache_ttl"`
	LogLevel            string `toml:"log_level"`
}

// Load reads a TOML settings file. Keys absent from the file keep their
// default values.
func Load(path string) (Settings, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return fromFile(raw, meta)
}

// Decode is Load over an in-memory document.
func Decode(doc string) (Settings, error) {
	var raw fileConfig
	meta, err := toml.Decode(doc, &raw)
	if err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return fromFile(raw, meta)
}

func fromFile(raw fileConfig, meta toml.MetaData) (Settings, error) {
	cfg := Default()

	if meta.IsDefined("number_of_output_notes") {
		if raw.NumberOfOutputNotes < 0 {
			return Settings{}, fmt.Errorf("number_of_output_notes must not be negative: %d", raw.NumberOfOutputNotes)
		}
		cfg.NumberOfOutputNotes = raw.NumberOfOutputNotes
	}

	if meta.IsDefined("number_of_input_notes") {
		if raw.NumberOfInputNotes < 0 {
			return Settings{}, fmt.Errorf("number_of_input_notes must not be negative: %d", raw.NumberOfInputNotes)
		}
		cfg.NumberOfInputNotes = raw.NumberOfInputNotes
	}

	if meta.IsDefined("account_cache_ttl") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.AccountCacheTTL))
		if err != nil {
			return Settings{}, fmt.Errorf("parse account_cache_ttl: %w", err)
		}
		cfg.AccountCacheTTL = d
	}

	if meta.IsDefined("log_level") {
		lvl, err := zerolog.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return Settings{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = lvl
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Settings{}, fmt.Errorf("unknown settings key: %s", undecoded[0])
	}
	return cfg, nil
}

// Store is a Provider whose values can change while the engine runs.
type Store struct {
	mtx sync.RWMutex
	cfg Settings
}

var _ Provider = (*Store)(nil)

func NewStore(cfg Settings) *Store {
	return &Store{cfg: cfg}
}

func (s *Store) NumberOfOutputNotes(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.cfg.NumberOfOutputNotes, nil
}

func (s *Store) SetNumberOfOutputNotes(n int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.cfg.NumberOfOutputNotes = n
}

func (s *Store) Settings() Settings {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.cfg
}
