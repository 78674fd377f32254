package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"rcc-core/internal/cache"
	"rcc-core/internal/config"
	"rcc-core/internal/domain"
	"rcc-core/internal/export"
	"rcc-core/internal/repository"
	"rcc-core/internal/service"
	"rcc-core/pkg/database"
	"rcc-core/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	userID := flag.Int64("user-id", 0, "user id whose accessible versions are exported")
	admin := flag.Bool("admin", false, "treat the user as administrator")
	productID := flag.Int64("product", 0, "only export versions of this product")
	projectID := flag.Int64("project", 0, "only export versions of this project")
	out := flag.String("out", "versions.xlsx", "output file")
	flag.Parse()

	if *userID <= 0 && !*admin {
		fmt.Fprintln(os.Stderr, "either -user-id or -admin is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "rcc-export")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log, &domain.User{ID: *userID, Admin: *admin}, *productID, *projectID, *out); err != nil {
		log.Error("Export failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger, user *domain.User, productID, projectID int64, out string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close(db)

	store := repository.NewPostgresStore(db)
	// 导出只读存储，不需要缓存
	noCache := cache.NewRedisRccCache(nil, cache.Config{Enabled: false}, log)
	versions := service.NewVersionService(store, noCache, service.NewAccessService(store, log), nil, log)

	nodes, err := versions.MyAllVersion(ctx, user, productID, projectID)
	if err != nil {
		return fmt.Errorf("failed to load versions: %w", err)
	}
	data, err := export.VersionNodesWorkbook(nodes)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	log.Info("Versions exported", zap.String("file", out), zap.Int("rows", len(nodes)))
	return nil
}
