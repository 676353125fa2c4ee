// Package dating resolves the best-known calendar date for a media file.
//
// Resolution is a priority chain of Steps composed by FirstOf: the embedded
// EXIF DateTimeOriginal, then the EXIF DateTime field, then the filesystem
// creation or modification time. Every step failure is contained; a file that
// yields nothing resolves to SourceUnknown instead of an error.
package dating
