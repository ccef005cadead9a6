package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smccarney/phosphor-power/internal/api/rest"
	"github.com/smccarney/phosphor-power/internal/config"
	"github.com/smccarney/phosphor-power/internal/configfile"
	"github.com/smccarney/phosphor-power/internal/manager"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "regulatorsd",
	Short: "Voltage regulator configuration and monitoring daemon",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a regulators configuration file without touching hardware",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return validate(args[0])
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c",
		"configs/config.yaml", "daemon configuration file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger.Info("Config loaded successfully")

	mgr, err := manager.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build regulators hierarchy", zap.Error(err))
	}

	if err := mgr.Start(); err != nil {
		logger.Fatal("Failed to start manager", zap.Error(err))
	}

	server := rest.NewServer(cfg, mgr, logger)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start status server", zap.Error(err))
	}

	logger.Info("regulatorsd started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Status server shutdown failed", zap.Error(err))
	}
	mgr.Stop()

	logger.Info("regulatorsd stopped successfully")
	return nil
}

// validate loads, schema-validates, and parses a config file, building the
// full hierarchy and IDMap without opening any bus device.
func validate(path string) error {
	loader, err := configfile.NewLoader(nil)
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	configFile, err := loader.Load(abs)
	if err != nil {
		return err
	}

	system, err := configfile.Parse(configFile, nil)
	if err != nil {
		return err
	}

	devices := 0
	rails := 0
	for _, chassis := range system.Chassis() {
		devices += len(chassis.Devices())
		for _, device := range chassis.Devices() {
			rails += len(device.Rails())
		}
	}
	fmt.Printf("%s is valid: %d chassis, %d devices, %d rails, %d rules\n",
		path, len(system.Chassis()), devices, rails, len(system.Rules()))
	return nil
}
