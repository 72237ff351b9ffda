// Command seed provisions user profiles and clubs from a YAML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/garyjia/club-expenses/internal/config"
	"github.com/garyjia/club-expenses/internal/container"
	"github.com/garyjia/club-expenses/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the service configuration")
	seedPath := flag.String("file", "configs/seed.yaml", "path to the seed file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	seed, err := LoadSeedFile(*seedPath)
	if err != nil {
		logger.Fatal("Failed to load seed file", zap.Error(err))
	}

	ctx := context.Background()
	dbCfg := cfg.ToContainerConfig().Database
	bundle, err := container.ProvideDatabase(ctx, &dbCfg, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer bundle.DB.Close()
	defer bundle.Store.Close()

	if err := seed.Apply(ctx, bundle.Store); err != nil {
		logger.Fatal("Failed to apply seed", zap.Error(err))
	}

	logger.Info("Seed applied",
		zap.Int("users", len(seed.Users)),
		zap.Int("clubs", len(seed.Clubs)))
}
