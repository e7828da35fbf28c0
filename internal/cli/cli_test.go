package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ecsgraph/pkg/cache"
)

const topology = `{
  "nodes": [
    {"id": "gw", "name": "gateway"},
    {"id": "app"},
    {"id": "db"}
  ],
  "edges": [
    {"from": "gw", "to": "app", "name": "http"},
    {"from": "app", "to": "db"},
    {"from": "app", "to": "db"}
  ]
}`

func writeTopology(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "topology.json")
	if err := os.WriteFile(path, []byte(topology), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestClearCache(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "svg")
	if n, err := clearCache(dir); err != nil || n != 0 {
		t.Fatalf("clearCache(missing) = %d, %v", n, err)
	}

	c, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, key, []byte("<svg/>"), 0); err != nil {
			t.Fatal(err)
		}
	}

	n, err := clearCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("cleared %d entries, want 3", n)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("entry survived clear")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("cache dir removed: %v", err)
	}
}

func TestCacheDirXDG(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/custom-cache")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join("/tmp/custom-cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"gml"}},
		{"json", []string{"json"}},
		{"gml, DOT,gml", []string{"gml", "dot"}},
	}
	for _, tt := range tests {
		got := parseFormats(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if err := validateFormats([]string{"gml", "svg"}); err != nil {
		t.Errorf("validateFormats: %v", err)
	}
	if err := validateFormats([]string{"png"}); err == nil {
		t.Error("png should be rejected")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		opts   buildOpts
		format string
		want   string
	}{
		{"derived", "in/topo.json", buildOpts{formats: []string{"gml"}}, "gml", "in/topo.gml"},
		{"derived json", "in/topo.json", buildOpts{formats: []string{"json"}}, "json", "in/topo.graph.json"},
		{"explicit single", "topo.json", buildOpts{output: "out.txt", formats: []string{"dot"}}, "dot", "out.txt"},
		{"explicit multi", "topo.json", buildOpts{output: "out/g.gml", formats: []string{"gml", "dot"}}, "dot", "out/g.dot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := outputBase(tt.input, tt.opts)
			if got := outputPath(base, tt.format, tt.opts); got != tt.want {
				t.Errorf("outputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})
			if err := root.Execute(); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), appName) {
				t.Errorf("%s script does not mention %s", shell, appName)
			}
		})
	}

	var out bytes.Buffer
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{cobra.ShellCompRequestCmd, "build", "topology.json", "--format", ""})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	for _, f := range validFormats {
		if !strings.Contains(out.String(), f+"\n") {
			t.Errorf("--format completion missing %s:\n%s", f, out.String())
		}
	}
}

func TestBuildCommand(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	in := writeTopology(t)
	base := filepath.Join(filepath.Dir(in), "out")

	var logs bytes.Buffer
	c := New(&logs, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs([]string{"build", in, "-f", "gml,json,dot", "-o", base})
	if err := root.Execute(); err != nil {
		t.Fatalf("build: %v", err)
	}

	gml, err := os.ReadFile(base + ".gml")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(gml), "graph [\n\tdirected 1\n\tid 0\n") {
		t.Errorf("unexpected GML:\n%s", gml)
	}
	if n := strings.Count(string(gml), "\tedge [\n"); n != 3 {
		t.Errorf("GML has %d edges, want 3", n)
	}

	js, err := os.ReadFile(base + ".graph.json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(js), `"To Node 3: 2 connections"`) {
		t.Errorf("JSON missing parallel edge summary:\n%s", js)
	}

	if _, err := os.Stat(base + ".dot"); err != nil {
		t.Errorf("dot output: %v", err)
	}
	if !strings.Contains(logs.String(), "Built graph 0") {
		t.Errorf("missing progress log:\n%s", logs.String())
	}
}

func TestBuildCommandErrors(t *testing.T) {
	in := writeTopology(t)
	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"build", in, "-f", "png"}},
		{"missing file", []string{"build", filepath.Join(t.TempDir(), "nope.json")}},
		{"traversal", []string{"build", in, "-o", "../escape.gml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
			root.SetArgs(tt.args)
			root.SetErr(&bytes.Buffer{})
			if err := root.Execute(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRenderInspect(t *testing.T) {
	c := New(&bytes.Buffer{}, log.InfoLevel)
	g, _, err := c.loadTopology(t.Context(), writeTopology(t))
	if err != nil {
		t.Fatal(err)
	}

	out := renderInspect(g)
	for _, want := range []string{"Graph 0", "3 nodes", "gateway", "app", "db"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}
}
