//go:build tools

// Package tools tracks the code generators run by go generate so go.mod pins their versions.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
