// Package main is the entry point for the replan CLI.
package main

import (
	"github.com/anthropics/replan/internal/cmd"
)

func main() {
	cmd.Execute()
}
