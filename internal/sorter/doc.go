// Package sorter is the single entry point of the sorting engine.
//
// Run validates the source and destination directories, scans the source,
// and pushes every file through date resolution, destination planning, and
// the move. Each file ends in exactly one Outcome; a failure is recorded and
// the run continues with the next file. Only directory problems detected
// before any file is touched abort a run.
//
// Files are processed sequentially by default. With more than one worker they
// run concurrently; destination names are still allocated one at a time per
// date folder, and Outcomes keep scan order either way.
package sorter
