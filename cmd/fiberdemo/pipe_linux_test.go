//go:build linux

package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestApp_Pipe verifies the reactor-driven reader drains every message
// Given: the demo app on linux
// When: the pipe scenario writes three messages
// Then: the reader finishes after the writer closes the pipe
func TestApp_Pipe(t *testing.T) {
	err := runApp(t, "--workers", "1", "--log-level", "error", "pipe", "--messages", "3", "--interval", "5ms")
	require.NoError(t, err)
}
