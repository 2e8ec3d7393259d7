package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/release-packager/internal/config"
	"github.com/oshokin/release-packager/internal/logger"
	"github.com/oshokin/release-packager/internal/service/pipeline"
	"github.com/oshokin/release-packager/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// releaseType selects the release mode: file or docker.
	releaseType string
	// publishRelease uploads the release to storage or pushes the image.
	publishRelease bool
	// destination is a local folder the release file is copied to.
	destination string
	// logLevel overrides the default logging level.
	logLevel string

	// rootCmd represents the base command for building and packaging a release.
	rootCmd = &cobra.Command{
		Use:   "release-packager",
		Short: "Build and package a release artifact",
		Long: "Build the front-end asset bundle, run the backend packaging step and " +
			"produce a distributable release: a versioned archive uploaded to object " +
			"storage, or a container image published to a registry.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if level, ok := logger.ParseLogLevel(logLevel); ok {
				logger.SetLevel(level)
			}

			options := &pipeline.Options{
				ConfigPath:  configPath,
				ReleaseType: releaseType,
				Publish:     publishRelease,
				Destination: destination,
			}

			return pipeline.Run(ctx, options)
		},
	}
)

// Execute runs the release-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&releaseType, "type", "t", "file", "release type: file or docker")
	rootCmd.Flags().BoolVarP(&publishRelease, "publish", "p", false, "publish the release to storage or registry")
	rootCmd.Flags().StringVarP(&destination, "destination", "d", "", "copy the release file to this folder")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "logging level: debug, info, warn, error")
}
