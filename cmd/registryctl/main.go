// Package main provides registryctl, an operator tool for the TagReturn
// registry. It opens the same data directory as the server, so the server
// must be stopped when using the Badger store.
package main

import (
	"fmt"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/tagreturn/tagreturn-server/internal/config"
	"github.com/tagreturn/tagreturn-server/internal/di"
	"github.com/tagreturn/tagreturn-server/internal/di/providers"
	"github.com/tagreturn/tagreturn-server/internal/keylock"
	"github.com/tagreturn/tagreturn-server/internal/logger"
	"github.com/tagreturn/tagreturn-server/internal/service"
	"github.com/tagreturn/tagreturn-server/internal/store"
)

// Version is set at build time.
var Version = "dev"

type globalFlags struct {
	dataPath string
	driver   string
	envFile  string
	logLevel string
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:           "registryctl",
		Short:         "Operate a TagReturn registry data directory",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.dataPath, "data-path", "", "Base path for registry data (default: $DATA_PATH)")
	rootCmd.PersistentFlags().StringVar(&flags.driver, "store", "", "Store driver (badger, sqlite)")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(tagsCmd(&flags))
	rootCmd.AddCommand(sweepCmd(&flags))
	rootCmd.AddCommand(userCmd(&flags))
	rootCmd.AddCommand(inspectCmd(&flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig maps the CLI flags onto the server's configuration loader.
func (f *globalFlags) loadConfig() (*config.Config, error) {
	args := []string{"-env-file", f.envFile, "-log-level", f.logLevel}
	if f.dataPath != "" {
		args = append(args, "-data-path", f.dataPath)
	}
	if f.driver != "" {
		args = append(args, "-store", f.driver)
	}
	return config.Load(args)
}

// session is an open data directory.
type session struct {
	injector *do.RootScope
	store    store.Store
	logger   *logger.Logger
}

func (f *globalFlags) open() (*session, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	injector := di.NewContainerWithConfig(cfg)
	storeHandle, err := do.Invoke[*providers.StoreHandle](injector)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &session{
		injector: injector,
		store:    storeHandle.Store,
		logger:   do.MustInvoke[*logger.Logger](injector),
	}, nil
}

func (s *session) reconciler() *service.Reconciler {
	return service.NewReconciler(s.store, do.MustInvoke[*keylock.Locker](s.injector), s.logger.Logger)
}

func (s *session) Close() {
	if err := s.injector.Shutdown(); err != nil {
		s.logger.Warn("Shutdown error", "error", err)
	}
}
