package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestCommandsShareFileStore(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	cfg := fmt.Sprintf("region = \"local\"\n\n[storage]\nbackend = \"file\"\npath = %q\n", filepath.Join(dir, "feed.json"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))
	t.Setenv("DATABASE_URL", "")

	userA, err := run(t, cfgPath, "login", "A")
	require.NoError(t, err)
	again, err := run(t, cfgPath, "login", "A")
	require.NoError(t, err)
	assert.Equal(t, userA, again)

	postID, err := run(t, cfgPath, "post", userA, "hello world", "--youtube", "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	require.NotEmpty(t, postID)

	userB, err := run(t, cfgPath, "login", "B")
	require.NoError(t, err)
	retweetID, err := run(t, cfgPath, "retweet", userB, postID)
	require.NoError(t, err)

	liked, err := run(t, cfgPath, "like", userB, postID)
	require.NoError(t, err)
	assert.Equal(t, "true", liked)

	_, err = run(t, cfgPath, "comment", postID, "nice")
	require.NoError(t, err)

	_, err = run(t, cfgPath, "retweet", userA, retweetID)
	assert.Error(t, err)
	_, err = run(t, cfgPath, "post", userA)
	assert.Error(t, err)

	out, err := run(t, cfgPath, "feed")
	require.NoError(t, err)
	assert.Contains(t, out, "@A")
	assert.Contains(t, out, "@B")
	assert.Contains(t, out, "https://www.youtube.com/embed/dQw4w9WgXcQ")
	assert.Less(t, strings.Index(out, retweetID), strings.Index(out, postID+"  "))

	out, err = run(t, cfgPath, "feed", "--json", "-q", "HELLO")
	require.NoError(t, err)
	assert.Len(t, strings.Split(out, "\n"), 2)
}
