package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/haveachin/bytecode/internal/config"
	"github.com/haveachin/bytecode/internal/loader"
	"github.com/haveachin/bytecode/pkg/bytecode"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envVarPrefix = "BYTECODE_"

var (
	files   fs.FS
	version string

	configPath  = "bytecode.yml"
	environment = "prod"
	logEncoder  = "console"
	maxSize     = ""
	decompress  = true

	logger *zap.Logger
	cfg    config.Config

	rootCmd = &cobra.Command{
		Use:           "bytecode",
		Short:         "Inspects binary bytecode containers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			logger, err = newLogger(environment)
			if err != nil {
				return err
			}

			cfg, err = config.Load(configPath, flagOverrides(cmd))
			if err != nil {
				return fmt.Errorf("load config %q: %w", configPath, err)
			}

			logger.Debug("loaded config",
				zap.String("config", configPath),
				zap.String("maxSize", cfg.MaxSize.HumanReadable()),
				zap.Bool("decompress", cfg.Decompress),
			)
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
)

func envString(name string, defVal string) string {
	envString := os.Getenv(name)
	if envString == "" {
		return defVal
	}

	return envString
}

func init() {
	environment = envString(envVarPrefix+"ENVIRONMENT", environment)
	rootCmd.PersistentFlags().StringVarP(&environment, "environment", "e", environment, "set the environment (nop, dev, prod)")
	logEncoder = envString(envVarPrefix+"LOG_ENCODER", logEncoder)
	rootCmd.PersistentFlags().StringVarP(&logEncoder, "log-encoder", "l", logEncoder, "set the log encoder (console, json)")
	configPath = envString(envVarPrefix+"CONFIG", configPath)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", configPath, "path of the config file")
	maxSize = envString(envVarPrefix+"MAX_SIZE", maxSize)
	rootCmd.PersistentFlags().StringVar(&maxSize, "max-size", maxSize, "maximum input size, e.g. 16MB")
	rootCmd.PersistentFlags().BoolVar(&decompress, "decompress", decompress, "unwrap gzip, zlib, zstd and snappy input")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(riteCmd)
	rootCmd.AddCommand(infoCmd)
}

// flagOverrides collects the flags that were set explicitly or through the
// environment, keyed like the config file.
func flagOverrides(cmd *cobra.Command) map[string]any {
	overrides := map[string]any{}
	if maxSize != "" {
		overrides["maxSize"] = maxSize
	}
	if cmd.Flags().Changed("decompress") {
		overrides["decompress"] = decompress
	}
	if cmd.Flags().Changed("watch") {
		overrides["watch"] = watchInput
	}

	dump := map[string]any{}
	if cmd.Flags().Changed("row-width") {
		dump["rowWidth"] = rowWidth
	}
	if cmd.Flags().Changed("color") {
		dump["color"] = color
	}
	if cmd.Flags().Changed("skip") {
		dump["skip"] = skip
	}
	if len(dump) > 0 {
		overrides["dump"] = dump
	}

	return overrides
}

func newLogger(env string) (*zap.Logger, error) {
	switch env {
	case "nop":
		return zap.NewNop(), nil
	case "dev":
		return zap.NewDevelopment()
	case "prod":
		cfg := zap.NewProductionConfig()
		cfg.Encoding = logEncoder
		if logEncoder == "console" {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
		cfg.DisableCaller = true
		cfg.DisableStacktrace = true
		return cfg.Build()
	default:
		return nil, fmt.Errorf("unsupported environment %q", env)
	}
}

func newLoader() loader.Loader {
	return loader.Loader{
		Source:     loader.FileSource{},
		MaxSize:    cfg.MaxSize,
		Decompress: cfg.Decompress,
		Logger:     logger,
	}
}

// formatError turns a bounds failure into an error naming the input and the
// offending offset.
func formatError(name string, err error) error {
	var boundsErr *bytecode.BoundsError
	if errors.As(err, &boundsErr) {
		return fmt.Errorf("%s: malformed input at offset 0x%08X: %w", name, boundsErr.Offset, err)
	}
	return fmt.Errorf("%s: %w", name, err)
}

// Execute executes the root command.
func Execute(fsys fs.FS, v string) error {
	files = fsys
	version = v
	return ExecuteWith(os.Stdout, os.Stderr, os.Args[1:])
}

// ExecuteWith runs the root command with the given output streams and
// arguments.
func ExecuteWith(stdout, stderr io.Writer, args []string) error {
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return err
	}
	return nil
}

func safeWriteFromEmbeddedFS(embedPath, sysPath string) error {
	entries, err := fs.ReadDir(files, embedPath)
	if err != nil {
		return err
	}

	for _, e := range entries {
		ePath := fmt.Sprintf("%s/%s", embedPath, e.Name())
		sPath := filepath.Join(sysPath, e.Name())

		if _, err := os.Stat(sPath); err == nil || !os.IsNotExist(err) {
			logger.Info("keeping existing file", zap.String("path", sPath))
			continue
		}

		if e.IsDir() {
			if err := os.Mkdir(sPath, 0755); err != nil {
				return err
			}

			if err := safeWriteFromEmbeddedFS(ePath, sPath); err != nil {
				return err
			}
			continue
		}

		bb, err := fs.ReadFile(files, ePath)
		if err != nil {
			return err
		}

		if err := os.WriteFile(sPath, bb, 0644); err != nil {
			return err
		}
		logger.Info("wrote file", zap.String("path", sPath))
	}

	return nil
}
