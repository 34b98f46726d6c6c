// Package main hosts the dailyshorts CLI entrypoint and command graph.
//
// The Cobra command tree runs the pipeline once, starts the scheduling daemon,
// inspects run history, performs preflight checks, and handles one-time setup
// such as writing a sample config and authorizing YouTube uploads. Commands
// stay thin: the work lives in the internal packages.
package main
