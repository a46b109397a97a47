// Package main hosts the rollsink CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into sink
// operations: collecting stdin into the rotating file set, querying and
// tailing the written records, sweeping retention, inspecting the lifecycle
// journal, and configuration scaffolding. It centralizes configuration
// resolution and logger setup so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
