// Package main is the entry point for the pitchstream CLI, which ingests raw
// positional sensor streams of football matches and derives events and
// statistics.
package main

import "github.com/pable/go-pitch-stream/cmd"

func main() {
	cmd.Execute()
}
