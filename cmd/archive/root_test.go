package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chatarchive/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	a := newApp(func() (*config.Config, error) {
		return &config.Config{
			Environment:  "test",
			StoreBackend: config.StoreMemory,
			AWSRegion:    "us-west-2",
			LogLevel:     "error",
		}, nil
	})
	t.Cleanup(a.Close)
	return a
}

func run(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test", a)
	root.SetArgs(args)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, a *app, args ...string) string {
	t.Helper()
	out, err := run(t, a, args...)
	require.NoError(t, err, out)
	return out
}

const sampleImport = `[
  {"id": "a", "title": "Golang channels", "summary": "goroutines select statements", "tags": ["go"], "sourceLabel": "Claude"},
  {"id": "b", "title": "Channels in golang", "summary": "select statements and goroutines", "tags": ["go"], "sourceLabel": "ChatGPT"},
  {"id": "c", "title": "Sourdough starter", "summary": "feeding schedule for bread", "tags": ["baking"], "sourceLabel": "Gemini"}
]`

func TestRootCmd_NoBackendForHelp(t *testing.T) {
	a := newApp(func() (*config.Config, error) {
		t.Fatal("help must not load configuration")
		return nil, nil
	})

	out := mustRun(t, a, "--help")
	assert.Contains(t, out, "import")
	assert.Contains(t, out, "graph")
}

func TestArchiveWorkflow(t *testing.T) {
	a := newTestApp(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "entries.json")
	require.NoError(t, os.WriteFile(input, []byte(sampleImport), 0o600))

	out := mustRun(t, a, "import", input, "--detect")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "b "), lines[1])
	assert.Contains(t, lines[1], "linked=1")

	var related struct {
		Related []struct {
			Entry struct {
				ID string `json:"id"`
			} `json:"entry"`
			Score float64 `json:"score"`
		} `json:"related"`
	}
	out = mustRun(t, a, "related", "a", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &related))
	require.Len(t, related.Related, 1)
	assert.Equal(t, "b", related.Related[0].Entry.ID)

	out = mustRun(t, a, "link", "a", "c")
	assert.Equal(t, "linked a <-> c\n", out)

	out = mustRun(t, a, "related", "c")
	assert.Contains(t, out, "manual")
	assert.Contains(t, out, "Golang channels")

	out = mustRun(t, a, "graph")
	assert.True(t, strings.HasPrefix(out, "3 nodes, 2 edges"), out)

	svg := filepath.Join(dir, "graph.svg")
	mustRun(t, a, "graph", "--svg", svg, "--focus", "a", "--width", "640", "--height", "480")
	doc, err := os.ReadFile(svg)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<svg")
	assert.Equal(t, 3, strings.Count(string(doc), "<circle"))

	mustRun(t, a, "unlink", "c", "a")
	out = mustRun(t, a, "related", "c", "--json")
	require.NoError(t, json.Unmarshal([]byte(out), &related))
	assert.Empty(t, related.Related)

	mustRun(t, a, "delete", "b")
	_, err = run(t, a, "show", "b")
	assert.Error(t, err)

	out = mustRun(t, a, "show", "a")
	assert.Contains(t, out, "Golang channels")
	assert.Contains(t, out, "source:  Claude")
}

func TestDetectCmd(t *testing.T) {
	a := newTestApp(t)
	mustRun(t, a, "import", writeTemp(t, sampleImport))

	t.Run("requires an id or --all", func(t *testing.T) {
		_, err := run(t, a, "detect")
		assert.Error(t, err)
		_, err = run(t, a, "detect", "a", "--all")
		assert.Error(t, err)
	})

	t.Run("single entry", func(t *testing.T) {
		out := mustRun(t, a, "detect", "a")
		assert.Contains(t, out, "COMPARED")
		assert.Regexp(t, `a\s+2\s+1\s+0\s+0`, out)
	})

	t.Run("all entries", func(t *testing.T) {
		var results []struct {
			EntryID  string `json:"entryId"`
			Compared int    `json:"compared"`
		}
		out := mustRun(t, a, "detect", "--all", "--json")
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		assert.Len(t, results, 3)

		out = mustRun(t, a, "graph")
		assert.True(t, strings.HasPrefix(out, "3 nodes, 1 edges"), out)
	})

	t.Run("unknown entry is reported, not failed", func(t *testing.T) {
		out := mustRun(t, a, "detect", "ghost")
		assert.Contains(t, out, "not found")
	})
}

func TestRelatedCmd_Suggestions(t *testing.T) {
	a := newTestApp(t)
	mustRun(t, a, "import", writeTemp(t, sampleImport))

	out := mustRun(t, a, "related", "a", "--suggest")
	assert.Contains(t, out, "LINKED")
	assert.Contains(t, out, "Channels in golang")

	_, err := run(t, a, "related", "a", "--limit", "500")
	assert.Error(t, err)
}

func TestDecodeImports(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int
		wantErr bool
	}{
		{name: "single object", raw: `{"title": "One"}`, want: 1},
		{name: "array", raw: sampleImport, want: 3},
		{name: "leading whitespace", raw: "\n  [{\"title\": \"One\"}]", want: 1},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "malformed", raw: `[{"title":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeImports([]byte(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestImportCmd_Stdin(t *testing.T) {
	a := newTestApp(t)
	root := NewRootCmd("test", a)
	root.SetArgs([]string{"import", "-", "--json"})
	root.SetIn(strings.NewReader(`{"id": "solo", "title": "Only entry", "sourceLabel": "Claude"}`))
	var out bytes.Buffer
	root.SetOut(&out)
	require.NoError(t, root.Execute())

	var results []struct {
		EntryID string `json:"entryId"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "solo", results[0].EntryID)
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "entries.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
