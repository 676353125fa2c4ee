package sorter_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/djherbis/times"

	"mediasort/internal/dating"
	"mediasort/internal/fileutil"
	"mediasort/internal/media"
	"mediasort/internal/sorter"
	"mediasort/internal/testsupport"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.Local)
}

func newSorter(opts sorter.Options, extra ...sorter.Option) *sorter.Sorter {
	opts.PreferModTime = true
	return sorter.New(append([]sorter.Option{sorter.WithOptions(opts)}, extra...)...)
}

// failingStat fails for the named files and uses the real stat otherwise.
func failingStat(names ...string) dating.StatFunc {
	return func(path string) (times.Timespec, error) {
		if slices.Contains(names, filepath.Base(path)) {
			return nil, fmt.Errorf("stat %s: %w", path, os.ErrPermission)
		}
		return times.Stat(path)
	}
}

func TestRunSortsByBestAvailableDate(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "sorted")

	testsupport.WriteExifJPEG(t, filepath.Join(src, "a.jpg"), testsupport.ExifDates{DateTimeOriginal: "2022:01:15 09:30:00"})
	testsupport.WriteFileAt(t, filepath.Join(src, "b.jpg"), "no metadata", day(2023, time.March, 2))
	testsupport.WriteFile(t, filepath.Join(src, "c.jpg"), "no metadata, no stat")

	resolver := dating.NewResolver(dating.WithBirthTime(false), dating.WithStatFunc(failingStat("c.jpg")))
	s := newSorter(sorter.Options{}, sorter.WithResolver(resolver))

	report, err := s.Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.OK() || report.Summary.Moved != 3 {
		t.Fatalf("expected 3 moved, got %+v", report.Summary)
	}

	testsupport.AssertExists(t, filepath.Join(dst, "2022-01-15", "a.jpg"))
	testsupport.AssertExists(t, filepath.Join(dst, "2023-03-02", "b.jpg"))
	testsupport.AssertExists(t, filepath.Join(dst, "Unknown", "c.jpg"))
	if got := testsupport.ListDir(t, src); len(got) != 0 {
		t.Fatalf("expected empty source, got %v", got)
	}

	sources := map[string]dating.Source{}
	for _, out := range report.Outcomes {
		sources[out.File.Name()] = out.DateSource
	}
	want := map[string]dating.Source{
		"a.jpg": dating.SourceCaptureMetadata,
		"b.jpg": dating.SourceFileSystem,
		"c.jpg": dating.SourceUnknown,
	}
	for name, source := range want {
		if sources[name] != source {
			t.Fatalf("%s: expected source %s, got %s", name, source, sources[name])
		}
	}
}

func TestRunRenamesOnCollisionWithExistingFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	date := day(2024, time.May, 1)

	testsupport.WriteFileAt(t, filepath.Join(dst, "2024-05-01", "img.jpg"), "already sorted", date)
	testsupport.WriteFileAt(t, filepath.Join(src, "img.jpg"), "new arrival", date)

	report, err := newSorter(sorter.Options{}).Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := report.Outcomes[0]
	want := filepath.Join(dst, "2024-05-01", "img_1.jpg")
	if out.State != sorter.StateMoved || out.Destination != want || !out.Collided {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dst, "2024-05-01", "img.jpg")); got != "already sorted" {
		t.Fatalf("existing file was overwritten: %q", got)
	}
	if got := testsupport.ReadFile(t, want); got != "new arrival" {
		t.Fatalf("unexpected content at %s: %q", want, got)
	}
}

func TestRunRepeatedArrivalsGetSequentialSuffixes(t *testing.T) {
	dst := t.TempDir()
	date := day(2024, time.May, 1)

	for i := range 3 {
		src := t.TempDir()
		testsupport.WriteFileAt(t, filepath.Join(src, "img.jpg"), fmt.Sprintf("copy %d", i), date)
		if _, err := newSorter(sorter.Options{}).Run(context.Background(), src, dst); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	got := testsupport.ListDir(t, filepath.Join(dst, "2024-05-01"))
	want := []string{"img.jpg", "img_1.jpg", "img_2.jpg"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	testsupport.WriteFileAt(t, filepath.Join(src, "a.jpg"), "a", day(2021, time.July, 4))
	testsupport.WriteFileAt(t, filepath.Join(src, "b.jpg"), "b", day(2021, time.July, 5))

	s := newSorter(sorter.Options{})
	first, err := s.Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Summary.Moved != 2 {
		t.Fatalf("expected 2 moves on first run, got %+v", first.Summary)
	}

	second, err := s.Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Summary.Total != 0 || second.Summary.Moved != 0 {
		t.Fatalf("expected no work on second run, got %+v", second.Summary)
	}
	if first.RunID == second.RunID {
		t.Fatalf("expected distinct run ids, got %s twice", first.RunID)
	}
}

func TestRunIsolatesCorruptFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	testsupport.WriteCorruptJPEG(t, filepath.Join(src, "broken.jpg"))
	testsupport.WriteExifJPEG(t, filepath.Join(src, "good.jpg"), testsupport.ExifDates{DateTimeOriginal: "2020:02:29 10:00:00"})
	if err := os.Chtimes(filepath.Join(src, "broken.jpg"), day(2019, time.June, 1), day(2019, time.June, 1)); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	report, err := newSorter(sorter.Options{}).Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.Moved != 2 {
		t.Fatalf("expected both files moved, got %+v", report.Summary)
	}
	testsupport.AssertExists(t, filepath.Join(dst, "2020-02-29", "good.jpg"))
	testsupport.AssertExists(t, filepath.Join(dst, "2019-06-01", "broken.jpg"))
}

func TestRunContinuesAfterMoveFailure(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	date := day(2022, time.October, 10)
	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		testsupport.WriteFileAt(t, filepath.Join(src, name), name, date)
	}

	move := func(src, dst string, opts fileutil.MoveOptions) error {
		if filepath.Base(src) == "b.jpg" {
			return &fileutil.MoveError{Kind: fileutil.KindPermission, Src: src, Dst: dst, Err: syscall.EACCES}
		}
		return fileutil.Move(src, dst, opts)
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	report, err := newSorter(sorter.Options{}, sorter.WithMoveFunc(move), sorter.WithLogger(logger)).Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.Moved != 2 || report.Summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].File.Name() != "b.jpg" {
		t.Fatalf("unexpected failures %+v", failures)
	}
	if failures[0].Stage != sorter.StageMove || failures[0].Kind != string(fileutil.KindPermission) {
		t.Fatalf("unexpected failure classification %+v", failures[0])
	}
	if !errors.Is(failures[0].Err, fileutil.ErrMove) {
		t.Fatalf("expected ErrMove, got %v", failures[0].Err)
	}
	testsupport.AssertExists(t, filepath.Join(src, "b.jpg"))
	testsupport.AssertExists(t, filepath.Join(dst, "2022-10-10", "c.jpg"))
	if !strings.Contains(logs.String(), `"event_type":"file_failed"`) {
		t.Fatalf("expected a file_failed record, got %s", logs.String())
	}
}

func TestRunReplansWhenNameAppearsDuringMove(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	date := day(2022, time.October, 10)
	testsupport.WriteFileAt(t, filepath.Join(src, "a.jpg"), "a", date)

	var calls int
	move := func(src, dst string, opts fileutil.MoveOptions) error {
		calls++
		if calls == 1 {
			// Another writer takes the name first.
			testsupport.WriteFile(t, dst, "intruder")
			return &fileutil.MoveError{Kind: fileutil.KindDestinationExists, Src: src, Dst: dst, Err: os.ErrExist}
		}
		return fileutil.Move(src, dst, opts)
	}

	report, err := newSorter(sorter.Options{}, sorter.WithMoveFunc(move)).Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := report.Outcomes[0]
	if out.State != sorter.StateMoved || filepath.Base(out.Destination) != "a_1.jpg" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if got := testsupport.ReadFile(t, filepath.Join(dst, "2022-10-10", "a.jpg")); got != "intruder" {
		t.Fatalf("intruder overwritten: %q", got)
	}
}

func TestRunParallelKeepsNamesDistinctAndOrder(t *testing.T) {
	dst := t.TempDir()
	date := day(2024, time.May, 1)

	// Every name is already taken in the destination, so each file needs a suffix.
	src := t.TempDir()
	var names []string
	for i := range 20 {
		name := fmt.Sprintf("photo%02d.jpg", i)
		names = append(names, name)
		testsupport.WriteFileAt(t, filepath.Join(src, name), name, date)
		testsupport.WriteFileAt(t, filepath.Join(dst, "2024-05-01", name), "existing", date)
	}

	report, err := newSorter(sorter.Options{Workers: 4}).Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.Moved != len(names) {
		t.Fatalf("expected %d moved, got %+v", len(names), report.Summary)
	}
	seen := map[string]bool{}
	for i, out := range report.Outcomes {
		if out.File.Name() != names[i] {
			t.Fatalf("outcome %d out of scan order: %s", i, out.File.Name())
		}
		if seen[out.Destination] {
			t.Fatalf("destination %s assigned twice", out.Destination)
		}
		seen[out.Destination] = true
		wantName := strings.TrimSuffix(names[i], ".jpg") + "_1.jpg"
		if filepath.Base(out.Destination) != wantName {
			t.Fatalf("expected %s, got %s", wantName, out.Destination)
		}
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "not-yet")
	date := day(2018, time.December, 24)
	testsupport.WriteFileAt(t, filepath.Join(src, "a.jpg"), "a", date)
	testsupport.WriteFileAt(t, filepath.Join(src, "b.jpg"), "b", date)

	report, err := newSorter(sorter.Options{DryRun: true}).Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.DryRun || report.Summary.Planned != 2 || report.Summary.Moved != 0 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	for _, out := range report.Outcomes {
		if out.State != sorter.StatePlanned {
			t.Fatalf("expected planned, got %+v", out)
		}
		if filepath.Dir(out.Destination) != filepath.Join(dst, "2018-12-24") {
			t.Fatalf("unexpected destination %s", out.Destination)
		}
	}
	testsupport.AssertMissing(t, dst)
	if got := testsupport.ListDir(t, src); len(got) != 2 {
		t.Fatalf("expected source untouched, got %v", got)
	}
}

func TestRunRejectsUnusableDirectories(t *testing.T) {
	base := t.TempDir()
	file := filepath.Join(base, "file.txt")
	testsupport.WriteFile(t, file, "x")

	tests := []struct {
		name string
		src  string
		dst  string
	}{
		{name: "missing source", src: filepath.Join(base, "missing"), dst: filepath.Join(base, "out")},
		{name: "source is file", src: file, dst: filepath.Join(base, "out")},
		{name: "destination is file", src: base, dst: file},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newSorter(sorter.Options{}).Run(context.Background(), tc.src, tc.dst)
			if !errors.Is(err, media.ErrDirectoryAccess) {
				t.Fatalf("expected ErrDirectoryAccess, got %v", err)
			}
		})
	}
	testsupport.AssertExists(t, file)
}

func TestRunRefusesLockedDestination(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	testsupport.WriteFileAt(t, filepath.Join(src, "a.jpg"), "a", day(2020, time.January, 1))

	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	blocking := func(src, dst string, opts fileutil.MoveOptions) error {
		once.Do(func() { close(entered) })
		<-release
		return fileutil.Move(src, dst, opts)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := newSorter(sorter.Options{}, sorter.WithMoveFunc(blocking)).Run(context.Background(), src, dst)
		errCh <- err
	}()
	<-entered

	_, err := newSorter(sorter.Options{}).Run(context.Background(), t.TempDir(), dst)
	close(release)
	if !errors.Is(err, sorter.ErrDestinationBusy) || !errors.Is(err, media.ErrDirectoryAccess) {
		t.Fatalf("expected busy destination, got %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("first run: %v", err)
	}
}

func TestRunSameSourceAndDestinationSkipsLockFile(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFileAt(t, filepath.Join(dir, "a.jpg"), "a", day(2020, time.January, 1))

	report, err := newSorter(sorter.Options{}).Run(context.Background(), dir, dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.Total != 1 || report.Summary.Moved != 1 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	testsupport.AssertExists(t, filepath.Join(dir, "2020-01-01", "a.jpg"))
	testsupport.AssertExists(t, filepath.Join(dir, sorter.LockFileName))
}

func TestRunStopsSchedulingOnCancel(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	for i := range 5 {
		testsupport.WriteFileAt(t, filepath.Join(src, fmt.Sprintf("f%d.jpg", i)), "x", day(2020, time.January, 1))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := &recordingObserver{onFile: func(done int) {
		if done == 2 {
			cancel()
		}
	}}

	report, err := newSorter(sorter.Options{}, sorter.WithObserver(obs)).Run(ctx, src, dst)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if report == nil || report.Summary.Total != 2 {
		t.Fatalf("expected 2 processed outcomes, got %+v", report)
	}
	if got := testsupport.ListDir(t, src); len(got) != 3 {
		t.Fatalf("expected 3 files left in source, got %v", got)
	}
	if obs.finished == nil {
		t.Fatal("expected RunFinished on interrupted run")
	}
}

func TestRunNotifiesObserver(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	testsupport.WriteFileAt(t, filepath.Join(src, "a.jpg"), "a", day(2020, time.January, 1))
	testsupport.WriteFileAt(t, filepath.Join(src, "b.jpg"), "b", day(2020, time.January, 2))

	obs := &recordingObserver{}
	report, err := newSorter(sorter.Options{Workers: 2}, sorter.WithObserver(obs)).Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if obs.runID != report.RunID || obs.total != 2 {
		t.Fatalf("unexpected start event id=%q total=%d", obs.runID, obs.total)
	}
	if obs.files != 2 || obs.finished != report {
		t.Fatalf("expected 2 file events and the final report, got %d / %v", obs.files, obs.finished)
	}
}

func TestRunFiltersExtensions(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	testsupport.WriteFileAt(t, filepath.Join(src, "a.JPG"), "a", day(2020, time.January, 1))
	testsupport.WriteFileAt(t, filepath.Join(src, "notes.txt"), "n", day(2020, time.January, 1))

	report, err := newSorter(sorter.Options{Extensions: []string{"jpg"}}).Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Summary.Total != 1 {
		t.Fatalf("expected only the jpg, got %+v", report.Outcomes)
	}
	testsupport.AssertExists(t, filepath.Join(dst, "2020-01-01", "a.JPG"))
	testsupport.AssertExists(t, filepath.Join(src, "notes.txt"))
}

type recordingObserver struct {
	mu       sync.Mutex
	runID    string
	total    int
	files    int
	finished *sorter.Report
	onFile   func(done int)
}

func (o *recordingObserver) RunStarted(runID string, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.runID, o.total = runID, total
}

func (o *recordingObserver) FileDone(_ sorter.Outcome, done, _ int) {
	o.mu.Lock()
	o.files++
	o.mu.Unlock()
	if o.onFile != nil {
		o.onFile(done)
	}
}

func (o *recordingObserver) RunFinished(report *sorter.Report) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.finished = report
}
