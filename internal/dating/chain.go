package dating

import (
	"errors"
	"fmt"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"mediasort/internal/media"
)

// Step is one link of the resolution chain. Try returns an error when the
// step has nothing to offer; errors never abort the chain.
type Step struct {
	Name string
	Try  func(*Probe) (Resolved, error)
}

// Probe carries per-file state shared by the steps of one resolution, so the
// EXIF block is decoded at most once.
type Probe struct {
	File media.File

	loc     *time.Location
	decode  DecodeFunc
	decoded bool
	exif    *exif.Exif
	exifErr error
}

// NewProbe prepares a probe for f. A nil decode uses DecodeExif and a nil loc
// uses time.Local.
func NewProbe(f media.File, decode DecodeFunc, loc *time.Location) *Probe {
	if decode == nil {
		decode = DecodeExif
	}
	if loc == nil {
		loc = time.Local
	}
	return &Probe{File: f, decode: decode, loc: loc}
}

// Exif returns the decoded metadata, decoding on first use.
func (p *Probe) Exif() (*exif.Exif, error) {
	if !p.decoded {
		p.decoded = true
		p.exif, p.exifErr = p.decode(p.File.Path)
	}
	if p.exifErr == nil && p.exif == nil {
		return nil, fmt.Errorf("%w: no metadata", ErrMetadataRead)
	}
	return p.exif, p.exifErr
}

// Miss describes a step that produced nothing.
type Miss struct {
	Step string
	Err  error
}

// FirstOf runs steps in order and returns the first successful resolution.
// When every step misses it returns Unknown. Misses lists every step that was
// tried and failed, in order.
func FirstOf(p *Probe, steps ...Step) (Resolved, []Miss) {
	var misses []Miss
	for _, step := range steps {
		res, err := tryStep(p, step)
		if err == nil && res.Known() {
			return res, misses
		}
		if err == nil {
			err = errors.New("step returned no date")
		}
		misses = append(misses, Miss{Step: step.Name, Err: err})
	}
	return Unknown(), misses
}

func tryStep(p *Probe, step Step) (res Resolved, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Resolved{}
			err = fmt.Errorf("step panic: %v", r)
		}
	}()
	return step.Try(p)
}
