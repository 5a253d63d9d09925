// Package main provides the entry point for the districtstats CLI tool.
package main

import (
	"github.com/vchiuchiolo/district-stats/cmd/districtstats/cmd"
)

// Version information populated by goreleaser.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
