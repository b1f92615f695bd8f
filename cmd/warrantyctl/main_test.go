package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCardID(t *testing.T) {
	id, err := parseCardID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := parseCardID(bad)
		assert.Error(t, err, bad)
	}
}

func TestRootCmd_Commands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"migrate", "issue", "render", "pdf", "settings"})
}

func TestRootCmd_ArgValidation(t *testing.T) {
	for _, args := range [][]string{
		{"issue"},
		{"render"},
		{"render", "nope"},
		{"pdf", "0"},
		{"settings", "set", "company.name"},
	} {
		root := newRootCmd()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetErr(&out)
		root.SetArgs(args)
		assert.Error(t, root.Execute(), args)
	}
}
