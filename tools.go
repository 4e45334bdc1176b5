//go:build tools

// Package tools pins code-generation tool dependencies so `go mod tidy`
// doesn't drop them: nothing here is part of the build, only imported so
// `go.mod` keeps a direct require for `go generate` to resolve.
package tools

import (
	_ "golang.org/x/tools/cmd/stringer"
)
