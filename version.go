package clozekit

import (
	_ "embed"
)

// Version of the library and the CLI.
//
//go:embed VERSION
var Version string
