// Package media models the files mediasort sorts and enumerates them.
//
// Scan lists the regular files directly inside a source directory. It never
// recurses and never opens file contents; entries are read-only evidence of
// pre-existing filesystem objects.
package media
