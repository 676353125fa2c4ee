package dating

import "errors"

var (
	// ErrMetadataRead marks files whose embedded metadata cannot be decoded.
	ErrMetadataRead = errors.New("metadata read error")
	// ErrFieldMissing marks decoded metadata that lacks the requested field.
	ErrFieldMissing = errors.New("metadata field missing")
	// ErrUnparsableDate marks a field whose value is not YYYY:MM:DD HH:MM:SS.
	ErrUnparsableDate = errors.New("unparsable date")
	// ErrStat marks filesystem timestamp lookups that failed.
	ErrStat = errors.New("stat error")
)
