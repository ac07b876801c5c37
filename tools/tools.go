//go:build tools

// Package tools pins the development tools used by the asyncq module.
package tools

import (
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
)
