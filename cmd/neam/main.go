// Package main provides the entry point for the neam CLI.
package main

import "github.com/gonkalabs/neam-go/cmd/neam/cmd"

// Version information populated at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd.Execute(version, commit)
}
