package main

import (
	"Surplus-Share-Backend/cmd/config"
	migration "Surplus-Share-Backend/cmd/database/migrate"
	"Surplus-Share-Backend/internal/utils"
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gofiber/fiber/v2/log"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml config file")
	migrate := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	utils.LoadConfig(*configPath)

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if *migrate {
		if err := migration.Migrate(db); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
		return
	}

	lifecycle, err := config.LoadLifecycleConfig()
	if err != nil {
		log.Fatalf("invalid lifecycle config: %v", err)
	}

	app, runner, err := config.NewApp(db, lifecycle)
	if err != nil {
		log.Fatalf("failed to build app: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runner.Start(ctx)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Errorw("server shutdown failed", "error", err)
		}
	}()

	port := utils.GetConfig("APP_PORT")
	if port == "" {
		port = "8080"
	}
	if err := app.Listen(":" + port); err != nil {
		log.Errorw("server stopped", "error", err)
	}

	stop()
	<-runner.Done()
}
