package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ecsgraph/pkg/buildinfo"
	"github.com/matzehuels/ecsgraph/pkg/cache"
	"github.com/matzehuels/ecsgraph/pkg/ecs"
	"github.com/matzehuels/ecsgraph/pkg/graph"
	graphio "github.com/matzehuels/ecsgraph/pkg/io"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "ecsgraph"

	formatGML  = "gml"
	formatJSON = "json"
	formatDOT  = "dot"
	formatSVG  = "svg"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// validFormats lists the export formats in output order.
var validFormats = []string{formatGML, formatJSON, formatDOT, formatSVG}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "ecsgraph builds and serves directed multigraphs on an entity-component store",
		Long:         `ecsgraph stores graphs, nodes and edges as components of entities. Every mutation keeps adjacency lists and graph membership consistent, and commits one event batch per scope.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.buildCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Engine Factory
// =============================================================================

// newSystem creates an engine whose commits are counted, for the summary
// printed after a build.
func (c *CLI) newSystem() (*graph.System, *ecs.EventCounter) {
	ctrl := ecs.NewController(ecs.WithLogger(c.Logger))
	counter := ecs.NewEventCounter()
	ctrl.Subscribe(counter)
	return graph.NewSystem(ctrl, c.Logger), counter
}

// loadTopology imports path into a fresh engine and verifies the result.
func (c *CLI) loadTopology(ctx context.Context, path string) (*graph.Graph, *ecs.EventCounter, error) {
	sys, counter := c.newSystem()
	g, err := graphio.ImportTopology(ctx, sys, path)
	if err != nil {
		return nil, nil, err
	}
	if err := graph.Verify(g); err != nil {
		return nil, nil, err
	}
	return g, counter, nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/ecsgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
// If empty, defaults to ["gml"].
func parseFormats(s string) []string {
	if s == "" {
		return []string{formatGML}
	}
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(strings.ToLower(f)); f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out
}

// validateFormats checks that all requested formats are supported.
func validateFormats(formats []string) error {
	for _, f := range formats {
		if !slices.Contains(validFormats, f) {
			return fmt.Errorf("invalid format: %s (must be one of %s)", f, strings.Join(validFormats, ", "))
		}
	}
	return nil
}
