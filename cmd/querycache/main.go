package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-query-cache/config"
	"github.com/goliatone/go-query-cache/pkg/di"
	"github.com/goliatone/go-query-cache/settings"
)

type globalOptions struct {
	settingsPath string
	configPath   string
	verbose      bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "querycache",
		Short:         "Run cached data access queries",
		Long:          "Runs the data accesses declared in a settings file through the result cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().StringVarP(&opts.settingsPath, "settings", "s", "querycache.yaml", "Settings file with connections and data accesses")
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Optional YAML file with querycache.* settings")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug records to stderr")

	rootCmd.AddCommand(
		queryCmd(opts),
		describeCmd(opts),
	)
	return rootCmd
}

// session is the container and engine built for one command run.
type session struct {
	container *di.Container
	engine    *settings.Engine
}

func openSession(ctx context.Context, opts *globalOptions, stderr io.Writer) (*session, error) {
	logger := newLogger(opts.verbose, stderr)

	src := config.Chain{config.EnvSource{}}
	if opts.configPath != "" {
		file, err := config.LoadFile(opts.configPath)
		if err != nil {
			return nil, err
		}
		src = append(src, file)
	}

	container, err := di.NewContainerFromSource(ctx, src, di.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	engine, err := container.LoadSettings(opts.settingsPath)
	if err != nil {
		container.Close()
		return nil, err
	}
	return &session{container: container, engine: engine}, nil
}

func (s *session) Close() error {
	defer s.container.Logger().Sync()
	return s.container.Close()
}

func newLogger(verbose bool, stderr io.Writer) *zap.Logger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(stderr), level)
	return zap.New(core)
}
