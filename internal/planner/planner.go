package planner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"mediasort/internal/dating"
	"mediasort/internal/media"
)

// DefaultUnknownDir is the folder for files without a resolvable date.
const DefaultUnknownDir = "Unknown"

const maxCollisionAttempts = 10000

var (
	// ErrPlan marks files that could not be given a destination.
	ErrPlan = errors.New("plan error")
	// ErrCollisionsExhausted means every suffix up to the attempt limit is taken.
	ErrCollisionsExhausted = errors.New("collision suffixes exhausted")
)

// Plan is the destination computed for one file.
type Plan struct {
	Source media.File
	// Folder is the date folder name, e.g. "2022-01-15" or "Unknown".
	Folder string
	Dir    string
	Name   string
	Path   string
	// Suffix is the collision counter; 0 when the original name was free.
	Suffix int
}

// Collided reports whether the original name had to be disambiguated.
func (p Plan) Collided() bool { return p.Suffix > 0 }

// Planner allocates destination paths under a root directory.
type Planner struct {
	root       string
	unknownDir string
	createDirs bool
	lstat      func(string) (fs.FileInfo, error)
	mkdirAll   func(string, fs.FileMode) error

	mu   sync.Mutex
	dirs map[string]*dirState
}

type dirState struct {
	mu       sync.Mutex
	reserved map[string]struct{}
}

// Option configures a Planner.
type Option func(*Planner)

// WithUnknownDir overrides the folder name used for unknown dates.
func WithUnknownDir(name string) Option {
	return func(p *Planner) {
		if name != "" {
			p.unknownDir = name
		}
	}
}

// WithDryRun plans without creating directories. Reservations still apply,
// so a dry run reports the same names a real run would.
func WithDryRun(dryRun bool) Option {
	return func(p *Planner) { p.createDirs = !dryRun }
}

// New returns a Planner rooted at root.
func New(root string, opts ...Option) *Planner {
	p := &Planner{
		root:       filepath.Clean(root),
		unknownDir: DefaultUnknownDir,
		createDirs: true,
		lstat:      os.Lstat,
		mkdirAll:   os.MkdirAll,
		dirs:       make(map[string]*dirState),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Root returns the destination root.
func (p *Planner) Root() string { return p.root }

// FolderFor returns the date folder name for res.
func (p *Planner) FolderFor(res dating.Resolved) string {
	if !res.Known() {
		return p.unknownDir
	}
	return res.Date.String()
}

// Plan computes and reserves the destination for f. The date folder is
// created if missing (unless dry-run).
func (p *Planner) Plan(f media.File, res dating.Resolved) (Plan, error) {
	folder := p.FolderFor(res)
	dir := filepath.Join(p.root, folder)

	state := p.dirState(dir)
	state.mu.Lock()
	defer state.mu.Unlock()

	// MkdirAll on every plan recreates a folder removed during the run.
	if p.createDirs {
		if err := p.mkdirAll(dir, 0o755); err != nil {
			return Plan{}, fmt.Errorf("%w: create %s: %w", ErrPlan, dir, err)
		}
	}

	stem, ext := f.Stem(), f.Ext()
	for n := 0; n < maxCollisionAttempts; n++ {
		name := CandidateName(stem, ext, n)
		if _, taken := state.reserved[name]; taken {
			continue
		}
		candidate := filepath.Join(dir, name)
		exists, err := p.exists(candidate)
		if err != nil {
			return Plan{}, fmt.Errorf("%w: inspect %s: %w", ErrPlan, candidate, err)
		}
		if exists {
			continue
		}
		state.reserved[name] = struct{}{}
		return Plan{
			Source: f,
			Folder: folder,
			Dir:    dir,
			Name:   name,
			Path:   candidate,
			Suffix: n,
		}, nil
	}
	return Plan{}, fmt.Errorf("%w: %w: %s in %s", ErrPlan, ErrCollisionsExhausted, f.Name(), dir)
}

// Release drops the reservation held by plan, typically after its move
// failed, so the name can be handed out again.
func (p *Planner) Release(plan Plan) {
	if plan.Dir == "" || plan.Name == "" {
		return
	}
	state := p.dirState(plan.Dir)
	state.mu.Lock()
	delete(state.reserved, plan.Name)
	state.mu.Unlock()
}

func (p *Planner) dirState(dir string) *dirState {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.dirs[dir]
	if !ok {
		state = &dirState{reserved: make(map[string]struct{})}
		p.dirs[dir] = state
	}
	return state
}

// exists uses Lstat so a dangling symlink still counts as taken.
func (p *Planner) exists(path string) (bool, error) {
	if _, err := p.lstat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CandidateName returns name for n == 0, otherwise stem_n + ext.
func CandidateName(stem, ext string, n int) string {
	if n == 0 {
		return stem + ext
	}
	return stem + "_" + strconv.Itoa(n) + ext
}
