package dating

import (
	"fmt"

	"github.com/djherbis/times"
)

// StatFunc reports filesystem timestamps for path.
type StatFunc func(path string) (times.Timespec, error)

// FileSystemTime reads the filesystem timestamp. With preferBirth the
// creation time is used where the platform records one; otherwise, or when
// it is unavailable, the modification time.
func FileSystemTime(stat StatFunc, preferBirth bool) Step {
	if stat == nil {
		stat = times.Stat
	}
	return Step{
		Name: "filesystem",
		Try: func(p *Probe) (Resolved, error) {
			ts, err := stat(p.File.Path)
			if err != nil {
				return Resolved{}, fmt.Errorf("%w: %w", ErrStat, err)
			}
			if preferBirth && ts.HasBirthTime() {
				if bt := ts.BirthTime(); !bt.IsZero() {
					return Resolved{Date: DateOf(bt.In(p.loc)), Source: SourceFileSystem, Field: FieldBirthTime}, nil
				}
			}
			mt := ts.ModTime()
			if mt.IsZero() {
				return Resolved{}, fmt.Errorf("%w: zero modification time", ErrStat)
			}
			return Resolved{Date: DateOf(mt.In(p.loc)), Source: SourceFileSystem, Field: FieldModTime}, nil
		},
	}
}
