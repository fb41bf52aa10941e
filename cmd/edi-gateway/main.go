// Package main is the entry point for the edi-gateway CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/edi-gateway/cmd/edi-gateway/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
