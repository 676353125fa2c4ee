package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// ExifDates selects which date fields the fixture carries. Empty values are
// omitted.
type ExifDates struct {
	// DateTimeOriginal lives in the EXIF sub-IFD, e.g. "2022:01:15 12:34:56".
	DateTimeOriginal string
	// DateTime lives in IFD0.
	DateTime string
}

const (
	tagOrientation      = 0x0112
	tagDateTime         = 0x0132
	tagExifIFDPointer   = 0x8769
	tagDateTimeOriginal = 0x9003

	typeASCII = 2
	typeShort = 3
	typeLong  = 4
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32
}

// ExifTIFF builds a little-endian TIFF block holding the requested fields.
func ExifTIFF(dates ExifDates) []byte {
	le := binary.LittleEndian

	ifd0Count := 1
	if dates.DateTime != "" {
		ifd0Count++
	}
	if dates.DateTimeOriginal != "" {
		ifd0Count++
	}
	ifd0Off := uint32(8)
	ifd0Size := uint32(2 + 12*ifd0Count + 4)
	exifOff := ifd0Off + ifd0Size
	exifSize := uint32(0)
	if dates.DateTimeOriginal != "" {
		exifSize = 2 + 12 + 4
	}
	dataOff := exifOff + exifSize

	var data bytes.Buffer
	ascii := func(s string) (uint32, uint32) {
		off := dataOff + uint32(data.Len())
		data.WriteString(s)
		data.WriteByte(0)
		return off, uint32(len(s) + 1)
	}

	entries := []ifdEntry{{tag: tagOrientation, typ: typeShort, count: 1, value: 1}}
	if dates.DateTime != "" {
		off, n := ascii(dates.DateTime)
		entries = append(entries, ifdEntry{tag: tagDateTime, typ: typeASCII, count: n, value: off})
	}
	var exifEntries []ifdEntry
	if dates.DateTimeOriginal != "" {
		entries = append(entries, ifdEntry{tag: tagExifIFDPointer, typ: typeLong, count: 1, value: exifOff})
		off, n := ascii(dates.DateTimeOriginal)
		exifEntries = append(exifEntries, ifdEntry{tag: tagDateTimeOriginal, typ: typeASCII, count: n, value: off})
	}

	var out bytes.Buffer
	out.WriteString("II")
	_ = binary.Write(&out, le, uint16(42))
	_ = binary.Write(&out, le, ifd0Off)

	writeIFD := func(list []ifdEntry) {
		_ = binary.Write(&out, le, uint16(len(list)))
		for _, e := range list {
			_ = binary.Write(&out, le, e.tag)
			_ = binary.Write(&out, le, e.typ)
			_ = binary.Write(&out, le, e.count)
			if e.typ == typeShort {
				_ = binary.Write(&out, le, uint16(e.value))
				_ = binary.Write(&out, le, uint16(0))
			} else {
				_ = binary.Write(&out, le, e.value)
			}
		}
		_ = binary.Write(&out, le, uint32(0))
	}
	writeIFD(entries)
	if len(exifEntries) > 0 {
		writeIFD(exifEntries)
	}
	out.Write(data.Bytes())
	return out.Bytes()
}

// ExifJPEG wraps a TIFF block in a minimal JPEG: SOI, APP1 "Exif", EOI.
func ExifJPEG(dates ExifDates) []byte {
	payload := append([]byte("Exif\x00\x00"), ExifTIFF(dates)...)

	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}

// WriteExifJPEG writes an ExifJPEG fixture to path, creating parents.
func WriteExifJPEG(t testing.TB, path string, dates ExifDates) {
	t.Helper()
	writeBytes(t, path, ExifJPEG(dates))
}

// WriteCorruptJPEG writes a file with a JPEG/EXIF header followed by garbage.
func WriteCorruptJPEG(t testing.TB, path string) {
	t.Helper()
	payload := append([]byte("Exif\x00\x00"), []byte("MM\x00*\xff\xff\xff\xfftruncated")...)
	var out bytes.Buffer
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(&out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	writeBytes(t, path, out.Bytes())
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
