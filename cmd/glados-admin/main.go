// Package main provides the glados-admin CLI tool for managing the GLaDOS registry.
package main

import (
	"os"

	"github.com/sirosfoundation/glados-registry/cmd/glados-admin/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
