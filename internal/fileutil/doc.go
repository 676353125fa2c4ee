// Package fileutil performs the one mutating operation of a sort run: moving a
// file to its planned destination.
//
// Moves never replace an existing destination. A failed move leaves the source
// where it was and no partial destination behind.
package fileutil
