package dating

import (
	"fmt"
	"time"
)

// Source records which evidence produced a date.
type Source string

const (
	SourceUnknown         Source = "unknown"
	SourceCaptureMetadata Source = "capture_metadata"
	SourceFileSystem      Source = "filesystem"
)

// Field names reported in Resolved.Field.
const (
	FieldDateTimeOriginal = "DateTimeOriginal"
	FieldDateTime         = "DateTime"
	FieldBirthTime        = "birth_time"
	FieldModTime          = "mod_time"
)

// Date is a calendar day without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Resolved is the outcome of date resolution for one file.
type Resolved struct {
	Date   Date
	Source Source
	// Field names the metadata field or timestamp the date came from.
	Field string
}

// Unknown is the resolution used when every step misses.
func Unknown() Resolved {
	return Resolved{Source: SourceUnknown}
}

// Known reports whether a date was found.
func (r Resolved) Known() bool {
	return r.Source != SourceUnknown && r.Source != "" && !r.Date.IsZero()
}

// String renders "2022-01-15 (capture_metadata:DateTimeOriginal)" or "unknown".
func (r Resolved) String() string {
	if !r.Known() {
		return string(SourceUnknown)
	}
	if r.Field == "" {
		return fmt.Sprintf("%s (%s)", r.Date, r.Source)
	}
	return fmt.Sprintf("%s (%s:%s)", r.Date, r.Source, r.Field)
}
