// Package main hosts the sockpoke CLI entrypoint and command graph.
//
// The Cobra command tree binds or dials a Unix stream socket and hands the
// connection to the exchange package, which drives the interactive hex loop.
// Configuration resolution, logger construction and transcript wiring live in
// the shared command context so subcommands only translate flags.
package main
