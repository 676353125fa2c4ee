// Package main hosts the mediasort CLI entrypoint and command graph.
//
// The Cobra-based command tree is a thin shell around the sorting engine: it
// resolves configuration, builds the logger, validates the directories given
// on the command line, and renders the engine's report as a table or JSON.
// It also records each run in the history ledger and exposes that ledger,
// preflight checks, and configuration scaffolding as subcommands.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
