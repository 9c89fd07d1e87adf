package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func policyYAML(id string) string {
	return "id: " + id + "\nname: " + id + " policy\nladder:\n  - id: anyone\n    order: 1\n    base_score: 5\n"
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFileSource_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weekday.yaml")
	writeFile(t, path, policyYAML("weekday"))

	s := NewFileSource(path)
	policies, err := s.LoadPolicies(context.Background())
	require.NoError(t, err)
	require.Len(t, policies, 1)
	assert.Equal(t, "weekday", policies[0].ID)
	assert.Equal(t, path, policies[0].SourceFile)
	assert.Equal(t, "file:"+path, s.Name())
}

func TestFileSource_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.yaml"), policyYAML("b"))
	writeFile(t, filepath.Join(dir, "a.yml"), policyYAML("a"))
	writeFile(t, filepath.Join(dir, "nested", "c.YAML"), policyYAML("c"))
	writeFile(t, filepath.Join(dir, "README.md"), "# not a policy")
	writeFile(t, filepath.Join(dir, ".draft.yaml"), "broken: [")
	writeFile(t, filepath.Join(dir, ".git", "x.yaml"), "broken: [")

	policies, err := NewFileSource(dir).LoadPolicies(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, p := range policies {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestFileSource_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := NewFileSource(filepath.Join(t.TempDir(), "nope")).LoadPolicies(context.Background())
		var le *LoadError
		require.ErrorAs(t, err, &le)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := NewFileSource(t.TempDir()).LoadPolicies(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no policy files found")
	})

	t.Run("one bad file fails the load", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "good.yaml"), policyYAML("good"))
		writeFile(t, filepath.Join(dir, "bad.yaml"), "id: bad\nrules: []\n")

		policies, err := NewFileSource(dir).LoadPolicies(context.Background())
		require.Error(t, err)
		assert.Nil(t, policies)
		assert.Contains(t, err.Error(), "bad.yaml")
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "latin1.yaml")
		writeFile(t, path, "id: caf\xe9\n")

		_, err := NewFileSource(path).LoadPolicies(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "UTF-8")
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "a.yaml"), policyYAML("a"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewFileSource(dir).LoadPolicies(ctx)
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestIsPolicyFile(t *testing.T) {
	assert.True(t, IsPolicyFile("a/b.yaml"))
	assert.True(t, IsPolicyFile("b.YML"))
	assert.False(t, IsPolicyFile("b.json"))
	assert.False(t, IsPolicyFile("yaml"))
}

func TestFileSource_Watch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), policyYAML("a"))

	ctx, cancel := context.WithCancel(context.Background())
	events, err := NewFileSource(dir).Watch(ctx)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "b.yaml"), policyYAML("b"))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			if ev.Path != filepath.Join(dir, "b.yaml") {
				assert.NotEqual(t, filepath.Join(dir, "notes.txt"), ev.Path)
				continue
			}
			assert.Contains(t, []EventType{EventCreated, EventModified}, ev.Type)
			cancel()
			for range events {
			}
			return
		case <-deadline:
			cancel()
			t.Fatal("timed out waiting for policy file event")
		}
	}
}

func TestFileSource_WatchMissingPath(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing")).Watch(context.Background())
	assert.Error(t, err)
}
