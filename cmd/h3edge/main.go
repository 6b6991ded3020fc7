// Command h3edge runs the HTTP/3-to-HTTP/2 reverse proxy edge.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"

	"github.com/h3edge/h3edge/internal/bootstrap"
	"github.com/h3edge/h3edge/internal/config"
	"github.com/h3edge/h3edge/internal/logging"
)

// version is the edge's semantic version; set at build time via
// -ldflags, matching the teacher's own version-stamping convention.
var version = "0.0.0-dev"

func main() {
	bootLogger, _ := zap.NewProduction()
	if bootLogger == nil {
		bootLogger = zap.NewNop()
	}

	undo, err := maxprocs.Set(maxprocs.Logger(bootLogger.Sugar().Infof))
	defer undo()
	if err != nil {
		bootLogger.Warn("failed to set GOMAXPROCS", zap.Error(err))
	}

	if _, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithProvider(memlimit.ApplyFallback(memlimit.FromCgroup, memlimit.FromSystem)),
	); err != nil {
		bootLogger.Debug("failed to set GOMEMLIMIT", zap.Error(err))
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "h3edge",
		Short:        "HTTP/3-to-HTTP/2 reverse proxy edge",
		Version:      version,
		SilenceUsage: true,
	}

	var configPath string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the edge in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdge(configPath)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "./config/config.yaml", "path to the YAML config file")
	root.AddCommand(runCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("h3edge %s (%s)\n", version, runtime.Version())
			return nil
		},
	})

	return root
}

func runEdge(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync()

	process, err := bootstrap.Build(cfg, log)
	if err != nil {
		return fmt.Errorf("building process: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("h3edge starting", zap.String("listen", fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)))
	return process.Run(ctx)
}
