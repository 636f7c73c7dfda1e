package main

import (
	"os"
	"path/filepath"
	"testing"

	"resumeflow/internal/models"

	"github.com/stretchr/testify/require"
)

func TestBuildProcessInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Ana Lima CV.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 body"), 0o644))

	in, err := buildProcessInput(path, "user-42", models.ModeOnboarding, 1024)
	require.NoError(t, err)
	require.NotEmpty(t, in.RunID)
	require.Equal(t, "Ana Lima CV.pdf", in.FileName)
	require.Equal(t, "user-42", in.OwnerID)
	require.Equal(t, models.ModeOnboarding, in.Mode)
	require.Equal(t, []byte("%PDF-1.4 body"), in.Content)

	_, err = buildProcessInput(path, "user-42", models.ModeFull, 4)
	require.Error(t, err)

	_, err = buildProcessInput(filepath.Join(t.TempDir(), "missing.pdf"), "user-42", models.ModeFull, 0)
	require.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := parseMode("")
	require.NoError(t, err)
	require.Equal(t, models.ModeFull, m)

	m, err = parseMode("onboarding")
	require.NoError(t, err)
	require.Equal(t, models.ModeOnboarding, m)

	_, err = parseMode("summary")
	require.Error(t, err)
}

func TestCommandsAreRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	require.True(t, names["process"])
	require.True(t, names["status"])
	require.True(t, names["reextract"])
}
