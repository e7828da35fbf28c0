package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/ecsgraph/pkg/cache"
	errs "github.com/matzehuels/ecsgraph/pkg/errors"
	"github.com/matzehuels/ecsgraph/pkg/graph"
)

// extensions maps each format to the suffix appended to the output base.
// JSON gets a compound suffix so it never overwrites the topology input.
var extensions = map[string]string{
	formatGML:  ".gml",
	formatJSON: ".graph.json",
	formatDOT:  ".dot",
	formatSVG:  ".svg",
}

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	output  string   // output file (single format) or base path
	formats []string // export formats
	noCache bool     // render SVG without the artifact cache
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var formatsStr string
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "build [topology.json]",
		Short: "Build a graph from a topology file and export it",
		Long: `Build imports a topology document through the graph engine, verifies
every structural invariant and writes the requested exports.

Formats:
  gml   GML with numeric entity ids
  json  graph JSON with per-node connection summaries
  dot   Graphviz DOT
  svg   DOT rendered with the embedded Graphviz (cached)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formatsStr)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runBuild(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): gml (default), json, dot, svg (comma-separated)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "render SVG without the artifact cache")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return validFormats, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.MarkFlagFilename("output")

	return cmd
}

func (c *CLI) runBuild(ctx context.Context, input string, opts buildOpts) error {
	logger := loggerFromContext(ctx)

	if opts.output != "" {
		if err := errs.ValidatePath(opts.output); err != nil {
			return err
		}
	}

	prog := newProgress(logger)
	g, counter, err := c.loadTopology(ctx, input)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Built graph %d from %s", g.ID(), filepath.Base(input)))

	artifacts, err := newCache(opts.noCache)
	if err != nil {
		printWarning("artifact cache unavailable: %v", err)
		artifacts = cache.NewNullCache()
	}
	defer artifacts.Close()
	artifacts = cache.Instrument(artifacts, "artifact")

	base := outputBase(input, opts)
	cached := false
	for _, format := range opts.formats {
		data, hit, err := export(ctx, g, format, artifacts)
		if err != nil {
			return err
		}
		cached = cached || hit

		path := outputPath(base, format, opts)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(path)
	}

	printStats(g.NumNodes(), g.NumEdges(), counter.Total(), cached)
	printNextStep("Browse nodes", appName+" inspect -i "+input)
	return nil
}

// export renders g in format. The bool reports an artifact cache hit.
func export(ctx context.Context, g *graph.Graph, format string, artifacts cache.Cache) ([]byte, bool, error) {
	switch format {
	case formatGML:
		return []byte(graph.ToGML(g)), false, nil
	case formatJSON:
		var buf bytes.Buffer
		if err := graph.WriteJSON(&buf, g); err != nil {
			return nil, false, err
		}
		return buf.Bytes(), false, nil
	case formatDOT:
		return []byte(graph.ToDOT(g)), false, nil
	case formatSVG:
		return renderSVG(ctx, g, artifacts)
	}
	return nil, false, fmt.Errorf("invalid format: %s", format)
}

func renderSVG(ctx context.Context, g *graph.Graph, artifacts cache.Cache) ([]byte, bool, error) {
	logger := loggerFromContext(ctx)
	dot := graph.ToDOT(g)
	key := cache.NewDefaultKeyer().ArtifactKey(formatSVG, []byte(dot))

	if data, ok, err := artifacts.Get(ctx, key); err != nil {
		logger.Warn("artifact cache", "err", err)
	} else if ok {
		logger.Debug("svg from cache", "key", key)
		return data, true, nil
	}

	spinner := newSpinnerWithContext(ctx, os.Stderr, "Rendering SVG...")
	spinner.Start()
	data, err := graph.RenderSVG(ctx, dot)
	if err != nil {
		spinner.StopWithError("SVG rendering failed")
		return nil, false, fmt.Errorf("render svg: %w", err)
	}
	spinner.StopWithSuccess(fmt.Sprintf("Rendered SVG (%d bytes)", len(data)))

	if err := artifacts.Set(ctx, key, data, cache.DefaultTTL); err != nil {
		logger.Warn("artifact cache", "err", err)
	}
	return data, false, nil
}

// outputBase strips the known suffixes from the output flag, or derives the
// base from the input file when no output is given.
func outputBase(input string, opts buildOpts) string {
	if opts.output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	if len(opts.formats) == 1 {
		return opts.output
	}
	for _, ext := range extensions {
		if strings.HasSuffix(opts.output, ext) {
			return strings.TrimSuffix(opts.output, ext)
		}
	}
	return opts.output
}

// outputPath returns the file for format. A single format with an explicit
// output writes exactly there.
func outputPath(base, format string, opts buildOpts) string {
	if opts.output != "" && len(opts.formats) == 1 {
		return opts.output
	}
	return base + extensions[format]
}
