// Package location screens raw position fixes before they reach a
// navigation engine.
package location

import (
	"errors"
	"fmt"
	"time"

	"github.com/richxcame/navigator/internal/navigation"
	"github.com/richxcame/navigator/pkg/geo"
)

var (
	ErrStaleFix          = errors.New("location fix is too old")
	ErrInaccurateFix     = errors.New("location fix accuracy is out of range")
	ErrBelowDisplacement = errors.New("location fix is too close to the previous one")
)

const (
	DefaultMaxAge            = 5 * time.Second
	DefaultMaxAccuracyMeters = 50.0
)

// Config holds the thresholds a fix must pass.
type Config struct {
	MaxAge                time.Duration
	MaxAccuracyMeters     float64
	MinDisplacementMeters float64 // 0 disables the check
}

// DefaultConfig matches a high-accuracy, every-fix location source.
func DefaultConfig() Config {
	return Config{MaxAge: DefaultMaxAge, MaxAccuracyMeters: DefaultMaxAccuracyMeters}
}

// Filter remembers the last accepted fix. One filter serves one traveler and
// is not safe for concurrent use.
type Filter struct {
	cfg  Config
	last *geo.Coordinate
}

func NewFilter(cfg Config) *Filter {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxAccuracyMeters <= 0 {
		cfg.MaxAccuracyMeters = DefaultMaxAccuracyMeters
	}
	return &Filter{cfg: cfg}
}

// Accept returns nil when fix should be fed to the engine and records it as
// the last accepted position.
func (f *Filter) Accept(fix navigation.Fix, now time.Time) error {
	if age := now.Sub(fix.Timestamp); age > f.cfg.MaxAge {
		return fmt.Errorf("%w: %s old", ErrStaleFix, age.Truncate(time.Millisecond))
	}
	if fix.Accuracy <= 0 || fix.Accuracy > f.cfg.MaxAccuracyMeters {
		return fmt.Errorf("%w: %.1f m", ErrInaccurateFix, fix.Accuracy)
	}
	if f.cfg.MinDisplacementMeters > 0 && f.last != nil {
		if moved := geo.Haversine(*f.last, fix.Position); moved < f.cfg.MinDisplacementMeters {
			return fmt.Errorf("%w: moved %.1f m", ErrBelowDisplacement, moved)
		}
	}

	pos := fix.Position
	f.last = &pos
	return nil
}

// Reset forgets the last accepted fix.
func (f *Filter) Reset() {
	f.last = nil
}
