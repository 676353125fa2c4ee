// Package preflight provides readiness checks for the directories and state
// files a sort run depends on.
//
// The CLI "mediasort check" command runs them before a sort so permission
// problems show up as one readable report instead of a run where every file
// fails. The sort engine does not depend on these checks; it validates its
// own inputs.
package preflight
