package sorter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mediasort/internal/config"
	"mediasort/internal/dating"
	"mediasort/internal/fileutil"
	"mediasort/internal/logging"
	"mediasort/internal/media"
	"mediasort/internal/planner"
)

// maxMoveAttempts bounds re-planning when a name is taken between the
// planner's check and the rename.
const maxMoveAttempts = 3

// MoveFunc performs the single mutating operation for one file.
type MoveFunc func(src, dst string, opts fileutil.MoveOptions) error

// Options are the engine knobs. The zero value sorts sequentially, moves for
// real, and files undated media under "Unknown".
type Options struct {
	Workers         int
	UnknownDir      string
	Extensions      []string
	SkipHidden      bool
	CrossDeviceCopy bool
	DryRun          bool
	// PreferModTime uses the modification time instead of the creation time
	// for the filesystem fallback.
	PreferModTime bool
}

// OptionsFromConfig maps the [sort] section onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{CrossDeviceCopy: true}
	}
	return Options{
		Workers:         cfg.Sort.Workers,
		UnknownDir:      cfg.Sort.UnknownDir,
		Extensions:      cfg.Sort.Extensions,
		SkipHidden:      cfg.Sort.SkipHidden,
		CrossDeviceCopy: cfg.Sort.CrossDeviceCopy,
		DryRun:          cfg.Sort.DryRun,
		PreferModTime:   cfg.Sort.Timestamp == config.TimestampModified,
	}
}

// Sorter runs sorts. A Sorter may be reused for several runs but not
// concurrently on the same destination; the destination lock enforces that
// across processes as well.
type Sorter struct {
	opts     Options
	logger   *slog.Logger
	observer Observer
	resolver *dating.Resolver
	move     MoveFunc
	now      func() time.Time
	newID    func() string
}

// Option configures a Sorter.
type Option func(*Sorter)

// WithOptions sets the engine options.
func WithOptions(opts Options) Option {
	return func(s *Sorter) { s.opts = opts }
}

// WithLogger sets the logger for per-file records.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sorter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver registers a presentation hook.
func WithObserver(observer Observer) Option {
	return func(s *Sorter) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithResolver replaces the date resolver built from the options.
func WithResolver(resolver *dating.Resolver) Option {
	return func(s *Sorter) { s.resolver = resolver }
}

// WithMoveFunc replaces fileutil.Move.
func WithMoveFunc(move MoveFunc) Option {
	return func(s *Sorter) {
		if move != nil {
			s.move = move
		}
	}
}

// WithClock overrides the clock used for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sorter) {
		if now != nil {
			s.now = now
		}
	}
}

// New returns a Sorter.
func New(opts ...Option) *Sorter {
	s := &Sorter{
		opts:     Options{CrossDeviceCopy: true},
		logger:   logging.NewNop(),
		observer: NopObserver{},
		move:     fileutil.Move,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "sorter")
	if s.resolver == nil {
		s.resolver = dating.NewResolver(
			dating.WithBirthTime(!s.opts.PreferModTime),
			dating.WithLogger(s.logger),
		)
	}
	return s
}

// Run sorts the direct files of src into dated folders under dst.
//
// The returned error is non-nil only when the run could not start (a
// DirectoryAccessError) or was cancelled. Per-file failures are reported in
// the Report. On cancellation the Report holds the outcomes of the files
// processed so far.
func (s *Sorter) Run(ctx context.Context, src, dst string) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	srcRoot, dstRoot, err := s.prepare(src, dst)
	if err != nil {
		return nil, err
	}

	var lock *destinationLock
	if !s.opts.DryRun {
		lock, err = acquireLock(dstRoot)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.release(); err != nil {
				s.logger.Warn("failed to release destination lock", logging.Error(err))
			}
		}()
	}

	files, err := media.Scan(srcRoot, media.ScanOptions{
		Extensions: config.NormalizeExtensions(s.opts.Extensions),
		SkipHidden: s.opts.SkipHidden,
	})
	if err != nil {
		return nil, err
	}
	if srcRoot == dstRoot {
		files = withoutLockFile(files, dstRoot)
	}

	report := &Report{
		RunID:       s.newID(),
		Source:      srcRoot,
		Destination: dstRoot,
		DryRun:      s.opts.DryRun,
		StartedAt:   s.now(),
	}
	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("sort started",
		logging.String("source", srcRoot),
		logging.String("destination", dstRoot),
		logging.Int("files", len(files)),
		logging.Int("workers", s.workers()),
		logging.Bool("dry_run", s.opts.DryRun),
	)
	s.observer.RunStarted(report.RunID, len(files))

	plan := planner.New(dstRoot,
		planner.WithUnknownDir(s.opts.UnknownDir),
		planner.WithDryRun(s.opts.DryRun),
	)
	outcomes := make([]Outcome, len(files))
	processed := make([]bool, len(files))
	var done atomic.Int64
	sampler := logging.NewProgressSampler(10)
	handle := func(i int) {
		outcomes[i] = s.process(ctx, logger, plan, files[i])
		processed[i] = true
		n := int(done.Add(1))
		s.observer.FileDone(outcomes[i], n, len(files))
		if percent, ok := sampler.Sample(n, len(files)); ok {
			logger.Info("sort progress",
				logging.Int("done", n),
				logging.Int("total", len(files)),
				logging.Int("percent", int(percent)),
			)
		}
	}

	if workers := s.workers(); workers <= 1 {
		for i := range files {
			if ctx.Err() != nil {
				break
			}
			handle(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(workers)
		for i := range files {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				handle(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, ok := range processed {
		if ok {
			report.Outcomes = append(report.Outcomes, outcomes[i])
		}
	}
	report.FinishedAt = s.now()
	report.summarize()

	logger.Info("sort finished",
		logging.Int("total", report.Summary.Total),
		logging.Int("moved", report.Summary.Moved),
		logging.Int("planned", report.Summary.Planned),
		logging.Int("failed", report.Summary.Failed),
		logging.Duration("duration", report.Duration()),
	)
	s.observer.RunFinished(report)

	if err := ctx.Err(); err != nil {
		logger.Warn("sort interrupted",
			logging.Int("processed", report.Summary.Total),
			logging.Int("remaining", len(files)-report.Summary.Total),
		)
		return report, fmt.Errorf("sort interrupted: %w", err)
	}
	return report, nil
}

func (s *Sorter) workers() int {
	if s.opts.Workers < 1 {
		return 1
	}
	return s.opts.Workers
}

// prepare resolves both roots and checks them before any file is touched.
// A missing destination is created unless this is a dry run.
func (s *Sorter) prepare(src, dst string) (string, string, error) {
	srcRoot, err := filepath.Abs(src)
	if err != nil {
		return "", "", &media.DirectoryAccessError{Role: "source", Path: src, Reason: "cannot resolve path", Err: err}
	}
	if err := media.CheckDirectory("source", srcRoot); err != nil {
		return "", "", err
	}

	dstRoot, err := filepath.Abs(dst)
	if err != nil {
		return "", "", &media.DirectoryAccessError{Role: "destination", Path: dst, Reason: "cannot resolve path", Err: err}
	}
	info, err := os.Stat(dstRoot)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", "", &media.DirectoryAccessError{Role: "destination", Path: dstRoot, Reason: "is not a directory"}
		}
	case errors.Is(err, fs.ErrNotExist):
		if !s.opts.DryRun {
			if err := os.MkdirAll(dstRoot, 0o755); err != nil {
				return "", "", &media.DirectoryAccessError{Role: "destination", Path: dstRoot, Reason: "cannot create", Err: err}
			}
		}
	default:
		return "", "", &media.DirectoryAccessError{Role: "destination", Path: dstRoot, Reason: "cannot stat", Err: err}
	}
	return srcRoot, dstRoot, nil
}

// process takes one file to a terminal state. It never returns an error;
// failures are recorded on the Outcome.
func (s *Sorter) process(ctx context.Context, logger *slog.Logger, p *planner.Planner, f media.File) Outcome {
	res := s.resolver.Resolve(ctx, f)
	out := newOutcome(f, res)

	for attempt := 1; ; attempt++ {
		plan, err := p.Plan(f, res)
		if err != nil {
			out.fail(StagePlan, err)
			break
		}
		out.Destination = plan.Path
		out.Collided = plan.Collided()

		if s.opts.DryRun {
			out.State = StatePlanned
			break
		}

		err = s.move(f.Path, plan.Path, fileutil.MoveOptions{CrossDeviceCopy: s.opts.CrossDeviceCopy})
		if err == nil {
			out.State = StateMoved
			break
		}
		// The name appeared on disk after the planner checked it. It stays
		// reserved and the next Plan picks another.
		if fileutil.KindOf(err) == fileutil.KindDestinationExists && attempt < maxMoveAttempts {
			logger.Debug("destination taken during move, replanning",
				logging.String(logging.FieldFile, f.Name()),
				logging.String("destination", plan.Path),
			)
			continue
		}
		p.Release(plan)
		out.fail(StageMove, err)
		break
	}

	s.logOutcome(logger, out)
	return out
}

func (s *Sorter) logOutcome(logger *slog.Logger, out Outcome) {
	attrs := []logging.Attr{
		logging.String(logging.FieldFile, out.File.Name()),
		logging.String("date", out.DateText),
		logging.String("date_source", string(out.DateSource)),
	}
	if out.DateField != "" {
		attrs = append(attrs, logging.String("date_field", out.DateField))
	}
	switch out.State {
	case StateMoved:
		attrs = append(attrs,
			logging.String("destination", out.Destination),
			logging.String(logging.FieldEventType, "file_moved"),
		)
		if out.Collided {
			attrs = append(attrs, logging.Bool("renamed", true))
		}
		logger.Info("file moved", logging.Args(attrs...)...)
	case StatePlanned:
		attrs = append(attrs,
			logging.String("destination", out.Destination),
			logging.String(logging.FieldEventType, "file_planned"),
		)
		logger.Info("file planned", logging.Args(attrs...)...)
	default:
		attrs = append(attrs,
			logging.String("stage", out.Stage),
			logging.String("error_kind", out.Kind),
			logging.Error(out.Err),
			logging.String(logging.FieldErrorHint, hintFor(out)),
			logging.String(logging.FieldImpact, "file left in source directory"),
		)
		logging.WarnWithContext(logger, "file not sorted", "file_failed", attrs...)
	}
}

func hintFor(out Outcome) string {
	switch fileutil.Kind(out.Kind) {
	case fileutil.KindPermission:
		return "check permissions on the source file and destination folder"
	case fileutil.KindCrossDevice:
		return "enable sort.cross_device_copy or use a destination on the same filesystem"
	case fileutil.KindNotFound:
		return "the file was removed while sorting; rerun to pick up remaining files"
	case fileutil.KindNameTooLong:
		return "shorten the file name"
	}
	if out.Stage == StagePlan {
		return "check that the destination folder is writable"
	}
	return "rerun to retry files left in the source directory"
}

func withoutLockFile(files []media.File, root string) []media.File {
	lockPath := filepath.Join(root, LockFileName)
	out := files[:0]
	for _, f := range files {
		if f.Path != lockPath {
			out = append(out, f)
		}
	}
	return out
}
