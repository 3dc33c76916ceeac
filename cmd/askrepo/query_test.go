package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCmd_Use(t *testing.T) {
	assert.Equal(t, "query [question]", queryCmd.Use)
}

func TestQueryCmd_Flags(t *testing.T) {
	repo := queryCmd.Flags().Lookup("repo")
	require.NotNil(t, repo)
	assert.Equal(t, "r", repo.Shorthand)

	maxIter := queryCmd.Flags().Lookup("max-iterations")
	require.NotNil(t, maxIter)
	assert.Equal(t, "3", maxIter.DefValue)

	jsonFlag := queryCmd.Flags().Lookup("json")
	require.NotNil(t, jsonFlag)
	assert.Equal(t, "false", jsonFlag.DefValue)
}

func TestQueryCmd_RequiresExactlyOneArg(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "--repo", "myrepo"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestQueryCmd_RequiresRepoFlag(t *testing.T) {
	repo := queryCmd.Flags().Lookup("repo")
	require.NotNil(t, repo)
	repo.Changed = false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "how does auth work?"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "repo")
}

func TestQueryCmd_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ASKREPO_DATA_DIR", t.TempDir())
	t.Setenv("CHROMA_HOST", "")
	t.Setenv("LOG_LEVEL", "info")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"query", "how does auth work?", "--repo", "myrepo"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}
