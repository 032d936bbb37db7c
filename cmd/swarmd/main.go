// Package main is the single-binary entrypoint for swarmd, the
// distributed agent orchestration runtime.
package main

import "github.com/tutu-network/swarmd/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
