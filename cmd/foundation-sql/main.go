// Package main provides the foundation-sql CLI.
package main

import (
	"os"

	"github.com/rishipradeep-think41/foundation-sql/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
