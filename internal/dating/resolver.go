package dating

import (
	"context"
	"log/slog"
	"time"

	"mediasort/internal/logging"
	"mediasort/internal/media"
)

// Resolver applies the date priority chain to files.
type Resolver struct {
	steps  []Step
	decode DecodeFunc
	loc    *time.Location
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*resolverConfig)

type resolverConfig struct {
	preferBirth bool
	stat        StatFunc
	decode      DecodeFunc
	loc         *time.Location
	logger      *slog.Logger
	steps       []Step
}

// WithBirthTime selects creation time (true) or modification time (false)
// for the filesystem fallback. Defaults to true.
func WithBirthTime(prefer bool) Option {
	return func(c *resolverConfig) { c.preferBirth = prefer }
}

// WithStatFunc replaces the filesystem timestamp lookup.
func WithStatFunc(stat StatFunc) Option {
	return func(c *resolverConfig) { c.stat = stat }
}

// WithDecoder replaces the EXIF decoder.
func WithDecoder(decode DecodeFunc) Option {
	return func(c *resolverConfig) { c.decode = decode }
}

// WithLocation sets the zone used to turn timestamps into calendar days.
func WithLocation(loc *time.Location) Option {
	return func(c *resolverConfig) { c.loc = loc }
}

// WithLogger sets the logger for step misses.
func WithLogger(logger *slog.Logger) Option {
	return func(c *resolverConfig) { c.logger = logger }
}

// WithSteps replaces the default chain entirely.
func WithSteps(steps ...Step) Option {
	return func(c *resolverConfig) { c.steps = steps }
}

// NewResolver builds the default chain: DateTimeOriginal, DateTime,
// filesystem timestamp.
func NewResolver(opts ...Option) *Resolver {
	cfg := resolverConfig{preferBirth: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	steps := cfg.steps
	if len(steps) == 0 {
		steps = []Step{
			CaptureOriginal(),
			CaptureModified(),
			FileSystemTime(cfg.stat, cfg.preferBirth),
		}
	}
	loc := cfg.loc
	if loc == nil {
		loc = time.Local
	}
	return &Resolver{
		steps:  steps,
		decode: cfg.decode,
		loc:    loc,
		logger: logging.NewComponentLogger(cfg.logger, "dating"),
	}
}

// Resolve returns the best-known date for f. It never fails; misses are
// logged at debug level and the result falls back to Unknown.
func (r *Resolver) Resolve(ctx context.Context, f media.File) Resolved {
	probe := NewProbe(f, r.decode, r.loc)
	res, misses := FirstOf(probe, r.steps...)

	logger := logging.WithContext(ctx, r.logger)
	if logger.Enabled(ctx, slog.LevelDebug) {
		for _, miss := range misses {
			logger.Debug("date source skipped",
				logging.String(logging.FieldFile, f.Name()),
				logging.String("step", miss.Step),
				logging.Error(miss.Err),
			)
		}
	}
	return res
}
