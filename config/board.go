package config

import (
	"fmt"
	"strings"
	"time"
)

// BoardSource selects where the board snapshot comes from.
type BoardSource string

const (
	// BoardSourcePostgres reads departments and contracts from the database.
	BoardSourcePostgres BoardSource = "postgres"
	// BoardSourceSample serves the built-in sample board from memory.
	BoardSourceSample BoardSource = "sample"
)

// UnmarshalText implements encoding.TextUnmarshaler for BoardSource.
func (b *BoardSource) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "postgres", "sample":
		*b = BoardSource(v)
		return nil
	default:
		return fmt.Errorf("invalid BoardSource: %q (valid options: postgres, sample)", v)
	}
}

// BoardConfig contains board settings (BOARD_ prefix).
type BoardConfig struct {
	Source BoardSource `env:"SOURCE" envDefault:"postgres"`

	// UrgentDays is the remaining-days threshold at or below which an item is urgent.
	UrgentDays int `env:"URGENT_DAYS" envDefault:"30"`

	// StateTTL bounds how long an idle session board is kept.
	StateTTL time.Duration `env:"STATE_TTL" envDefault:"30m"`

	// DragTTL bounds how long a drag ticket stays valid.
	DragTTL time.Duration `env:"DRAG_TTL" envDefault:"2m"`

	// PersistMoves writes dropped items back to contratos. Only honored for the postgres source.
	PersistMoves bool `env:"PERSIST_MOVES" envDefault:"true"`
}

// Sanitize applies guardrails to board configuration values.
func (b *BoardConfig) Sanitize() {
	if b.UrgentDays <= 0 {
		b.UrgentDays = 30
	}
	if b.StateTTL <= 0 {
		b.StateTTL = 30 * time.Minute
	}
	if b.DragTTL <= 0 {
		b.DragTTL = 2 * time.Minute
	}
}

// Validate checks the board source.
func (b *BoardConfig) Validate() error {
	switch b.Source {
	case BoardSourcePostgres, BoardSourceSample:
		return nil
	default:
		return fmt.Errorf("unsupported BOARD_SOURCE %q", b.Source)
	}
}

// PersistEnabled reports whether moves are written back to the database.
func (b *BoardConfig) PersistEnabled() bool {
	return b.PersistMoves && b.Source == BoardSourcePostgres
}
