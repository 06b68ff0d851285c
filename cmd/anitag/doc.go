// Package main hosts the anitag CLI entrypoint and command graph.
//
// The Cobra command tree covers the batch operations (tag, normalize, run),
// single-title resolution for troubleshooting, title cache maintenance,
// configuration scaffolding and the interactive menu. Configuration loading
// and logger setup live in commandContext so subcommands only deal with
// output.
//
// Keep this package thin: behavior belongs in internal/workflow and the
// identification packages, and commands here only wire flags to them and
// render results.
package main
