package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ecsgraph/pkg/api"
	"github.com/matzehuels/ecsgraph/pkg/cache"
	"github.com/matzehuels/ecsgraph/pkg/config"
	"github.com/matzehuels/ecsgraph/pkg/ecs"
	"github.com/matzehuels/ecsgraph/pkg/graph"
	"github.com/matzehuels/ecsgraph/pkg/notify"
	"github.com/matzehuels/ecsgraph/pkg/observability/prom"
)

const connectTimeout = 5 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var configPath, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve exposes the graph engine over HTTP.

Every commit is logged. With [redis] configured, commits are also published
to a Redis stream and rendered SVGs are cached in Redis; with [mongo]
configured, commits are archived to MongoDB.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				var err error
				if cfg, err = config.Load(configPath); err != nil {
					return err
				}
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return c.runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides [server] addr)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := loggerFromContext(ctx)
	// --verbose wins over the configured level.
	if level, err := cfg.Log.ParseLevel(); err == nil && logger.GetLevel() != LogDebug {
		logger.SetLevel(level)
	}
	logger.Debug("configuration", "config", cfg.String())

	ctrl := ecs.NewController(ecs.WithLogger(logger))
	ctrl.Subscribe(notify.NewLogSink(logger))
	sys := graph.NewSystem(ctrl, logger)

	var opts []api.Option
	opts = append(opts, api.WithLogger(logger))

	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}

		ctrl.Subscribe(notify.NewRedisStream(client, cfg.Redis.Stream, logger))
		opts = append(opts,
			api.WithCache(cache.Instrument(cache.NewRedisCache(client), "artifact"), cfg.Redis.CacheTTL),
			api.WithKeyer(cache.NewScopedKeyer(cache.NewDefaultKeyer(), appName+":")),
		)
		printKeyValue("redis", cfg.Redis.Addr+" → "+cfg.Redis.Stream)
	} else {
		artifacts, err := newCache(false)
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer artifacts.Close()
		opts = append(opts, api.WithCache(cache.Instrument(artifacts, "artifact"), cache.DefaultTTL))
	}

	if cfg.Mongo.Enabled() {
		connCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		archive, err := notify.ConnectMongo(connCtx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection, logger)
		cancel()
		if err != nil {
			return err
		}
		defer archive.Close(context.WithoutCancel(ctx))
		ctrl.Subscribe(archive)
		printKeyValue("mongo", cfg.Mongo.Database+"."+cfg.Mongo.Collection)
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		prom.New(reg).Install()
		opts = append(opts, api.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
		printKeyValue("metrics", "/metrics")
	}

	printKeyValue("listen", StyleLink.Render(cfg.Server.Addr))
	if err := api.New(sys, opts...).ListenAndServe(ctx, cfg.Server.Addr); err != nil {
		return err
	}
	printSuccess("Server stopped")
	return nil
}
