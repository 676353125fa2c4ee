package dating

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ExifLayout is the fixed EXIF date/time layout ("2022:01:15 12:34:56").
const ExifLayout = "2006:01:02 15:04:05"

// maxMetadataScan caps how much of a file the EXIF decoder may read. APP1
// sits at the start of a JPEG and IFD0 at the start of a TIFF.
const maxMetadataScan = 1 << 20

var (
	jpegMagic      = []byte{0xFF, 0xD8}
	tiffMagicLE    = []byte("II*\x00")
	tiffMagicBE    = []byte("MM\x00*")
	errNotExifFile = fmt.Errorf("%w: not a JPEG or TIFF file", ErrMetadataRead)
)

// DecodeFunc decodes embedded EXIF metadata from the file at path.
type DecodeFunc func(path string) (*exif.Exif, error)

// DecodeExif opens path and decodes its EXIF block. Only JPEG and TIFF files
// are decoded, and at most maxMetadataScan bytes are read. Non-critical decode
// errors still return the usable portion. Decoder panics on corrupt input are
// converted to ErrMetadataRead.
func DecodeExif(path string) (x *exif.Exif, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataRead, err)
	}
	defer f.Close()

	header := make([]byte, 4)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, errNotExifFile
	}
	if !hasExifMagic(header) {
		return nil, errNotExifFile
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMetadataRead, err)
	}

	defer func() {
		if r := recover(); r != nil {
			x = nil
			err = fmt.Errorf("%w: decoder panic: %v", ErrMetadataRead, r)
		}
	}()

	x, err = exif.Decode(io.LimitReader(f, maxMetadataScan))
	if err != nil {
		if x != nil && !exif.IsCriticalError(err) {
			return x, nil
		}
		return nil, fmt.Errorf("%w: %w", ErrMetadataRead, err)
	}
	return x, nil
}

func hasExifMagic(header []byte) bool {
	return bytes.HasPrefix(header, jpegMagic) ||
		bytes.Equal(header, tiffMagicLE) ||
		bytes.Equal(header, tiffMagicBE)
}

// ParseExifTime parses an EXIF date/time value in loc. Trailing NULs and
// surrounding spaces written by some cameras are ignored.
func ParseExifTime(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	trimmed := strings.TrimSpace(strings.TrimRight(value, "\x00"))
	t, err := time.ParseInLocation(ExifLayout, trimmed, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparsableDate, trimmed)
	}
	return t, nil
}

// exifField reads one EXIF string field as a date.
func exifField(name exif.FieldName, field string) Step {
	return Step{
		Name: "exif:" + field,
		Try: func(p *Probe) (Resolved, error) {
			x, err := p.Exif()
			if err != nil {
				return Resolved{}, err
			}
			tag, err := x.Get(name)
			if err != nil {
				return Resolved{}, fmt.Errorf("%w: %s", ErrFieldMissing, field)
			}
			raw, err := tag.StringVal()
			if err != nil {
				return Resolved{}, fmt.Errorf("%w: %s: %w", ErrUnparsableDate, field, err)
			}
			t, err := ParseExifTime(raw, p.loc)
			if err != nil {
				return Resolved{}, err
			}
			return Resolved{Date: DateOf(t), Source: SourceCaptureMetadata, Field: field}, nil
		},
	}
}

// CaptureOriginal reads EXIF DateTimeOriginal.
func CaptureOriginal() Step {
	return exifField(exif.DateTimeOriginal, FieldDateTimeOriginal)
}

// CaptureModified reads the generic EXIF DateTime field, used when the
// original capture time is absent or unreadable.
func CaptureModified() Step {
	return exifField(exif.DateTime, FieldDateTime)
}
