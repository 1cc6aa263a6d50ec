package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCommand(t *testing.T) {
	var out bytes.Buffer
	normalizeCmd.SetOut(&out)
	t.Cleanup(func() { normalizeCmd.SetOut(nil) })

	require.NoError(t, normalizeCmd.RunE(normalizeCmd, []string{"b positive", "O -ve", "i dont know"}))

	s := out.String()
	assert.Contains(t, s, "RAW")
	assert.Regexp(t, `"b positive"\s+B\+`, s)
	assert.Regexp(t, `"O -ve"\s+O-`, s)
	assert.Contains(t, s, "(unknown)")
}
