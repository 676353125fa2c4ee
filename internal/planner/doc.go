// Package planner computes collision-free destination paths.
//
// A Plan places a file at <root>/<YYYY-MM-DD|Unknown>/<name>, appending _1,
// _2, ... between stem and extension while the candidate exists on disk or was
// already handed out earlier in the same run. Allocation is serialized per
// destination directory, so concurrent callers never receive the same path.
//
// The existence check is not atomic with respect to other processes or
// external edits: a path can appear between Plan and the move. Callers must
// move with no-replace semantics and treat a late collision as a per-file
// failure.
package planner
