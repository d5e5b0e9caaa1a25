// Package config defines the engine's configuration surface (spec.md §3,
// §7.1) and its validation. Aggregating multiple independent validation
// failures into a single error, rather than stopping at the first one, is
// grounded on the retrieval pack's use of
// github.com/hashicorp/go-multierror (see
// wwsheng009-yao/sui/storages/local/build.go, which accumulates page-build
// errors with multierror.Append instead of returning on the first
// failure) — a caller fixing a misconfigured engine wants every problem at
// once, not one-at-a-time round trips.
package config

import (
	"time"

	"github.com/hashicorp/go-multierror"
)

// SizeMode selects whether items are uniformly or individually sized
// (spec.md §3 "Size spec").
type SizeMode int

const (
	SizeFixed SizeMode = iota
	SizeVariable
)

// SizeSpec configures the size cache (component A).
type SizeSpec struct {
	Mode         SizeMode
	FixedSize    float64           // used when Mode == SizeFixed
	EstimateFunc func(index int) float64 // declared size of each item, used when Mode == SizeVariable
}

// SelectionConfig configures the selection subsystem (component "selection").
type SelectionConfig struct {
	Mode            int // mirrors selection.Mode without importing it, to keep config dependency-free
	RestoreByIdentity bool
}

// Config is the full set of knobs an Engine is constructed with (spec.md §6
// "new(config)").
type Config[T any] struct {
	Size SizeSpec

	ChunkWidth    int
	StoreCap      int
	EvictBuffer   int

	Overscan int

	IdleTimeout   time.Duration
	HardLimit     float64 // scale engine activation threshold; <= 0 uses scale.DefaultHardLimit

	Selection SelectionConfig

	// Reverse enables chat-style scrollback (spec.md §6 "reverse"): the
	// engine starts scrolled to the end, AppendItems auto-sticks to the new
	// bottom when the caller was already there, and PrependItems shifts the
	// scroll position by the prepended size so the visible content doesn't
	// jump.
	Reverse bool

	// Horizontal selects the horizontal scroll axis (spec.md §6
	// "horizontal"); false (the default) scrolls vertically.
	Horizontal bool

	// ScrollElement selects window mode (spec.md §6 "scrollElement"): the
	// engine passes scroll.ModeWindow to its scroll controller, which records
	// the mode. In every mode the scroll position is the value given to
	// Engine.HandleScroll; nothing derives it from an element rectangle.
	ScrollElement bool

	IDPrefix string // stamped into recycled slot ids

	ConcurrentFetches int
	FetchRateLimit    float64 // fetches/sec, <= 0 disables throttling

	VelocityCancelThreshold  float64
	VelocityPreloadThreshold float64
	PreloadAhead             int
}

// Validate checks c for internally inconsistent or out-of-range values,
// returning every problem found rather than only the first (spec.md §7.1
// "configuration is validated eagerly at construction").
func Validate[T any](c Config[T]) error {
	var result *multierror.Error

	if c.Size.Mode == SizeFixed && c.Size.FixedSize <= 0 {
		result = multierror.Append(result, errf("size.fixedSize must be > 0 when mode is fixed"))
	}
	if c.Size.Mode == SizeVariable && c.Size.EstimateFunc == nil {
		result = multierror.Append(result, errf("size.estimateFunc is required when mode is variable"))
	}
	if c.ChunkWidth < 0 {
		result = multierror.Append(result, errf("chunkWidth must be >= 0"))
	}
	if c.StoreCap < 0 {
		result = multierror.Append(result, errf("storeCap must be >= 0"))
	}
	if c.EvictBuffer < 0 {
		result = multierror.Append(result, errf("evictBuffer must be >= 0"))
	}
	if c.Overscan < 0 {
		result = multierror.Append(result, errf("overscan must be >= 0"))
	}
	if c.IdleTimeout < 0 {
		result = multierror.Append(result, errf("idleTimeout must be >= 0"))
	}
	if c.ConcurrentFetches < 0 {
		result = multierror.Append(result, errf("concurrentFetches must be >= 0"))
	}
	if c.VelocityCancelThreshold < 0 {
		result = multierror.Append(result, errf("velocityCancelThreshold must be >= 0"))
	}
	if c.VelocityPreloadThreshold < 0 {
		result = multierror.Append(result, errf("velocityPreloadThreshold must be >= 0"))
	}
	if c.VelocityPreloadThreshold > c.VelocityCancelThreshold && c.VelocityCancelThreshold > 0 {
		result = multierror.Append(result, errf("velocityPreloadThreshold must not exceed velocityCancelThreshold"))
	}
	if c.PreloadAhead < 0 {
		result = multierror.Append(result, errf("preloadAhead must be >= 0"))
	}

	return result.ErrorOrNil()
}

// Default returns a Config with spec.md's documented defaults filled in,
// suitable as a starting point before the caller overrides what it needs.
func Default[T any]() Config[T] {
	return Config[T]{
		Size:                     SizeSpec{Mode: SizeFixed, FixedSize: 1},
		ChunkWidth:               100,
		StoreCap:                 5000,
		EvictBuffer:              200,
		Overscan:                 3,
		IdleTimeout:              150 * time.Millisecond,
		IDPrefix:                 "vlist",
		ConcurrentFetches:        4,
		VelocityCancelThreshold:  25,
		VelocityPreloadThreshold: 2,
		PreloadAhead:             50,
	}
}

type validationError string

func (e validationError) Error() string { return string(e) }

func errf(msg string) error { return validationError(msg) }
