package cmd

import (
	"context"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"syscall"

	"stock-forecast/internal/delivery/http"
	"stock-forecast/internal/delivery/telegram"
	"stock-forecast/internal/repository"
	"stock-forecast/internal/service"
	"stock-forecast/pkg/utils"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the HTTP API, dashboard and Telegram bot",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}
	defer func() {
		_ = appDep.log.Sync()
	}()

	repo := repository.NewRepository(appDep.cfg, appDep.db.DB, appDep.cache, appDep.log)
	services := service.NewService(appDep.cfg, appDep.log, repo)

	httpHandler := http.NewHttpAPIHandler(
		ctx,
		appDep.cfg,
		appDep.log,
		appDep.echo,
		appDep.validator,
		services,
		appDep.sessions,
	)
	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	if err := apiServer.SetupRoutes(); err != nil {
		log.Fatalf("Failed to set up routes: %v", err)
	}

	var telegramHandler *telegram.TelegramBotHandler
	if appDep.telegramBot != nil {
		telegramHandler = telegram.NewTelegramBotHandler(
			ctx,
			appDep.cfg,
			appDep.log,
			appDep.telegramBot,
			appDep.telegram,
			appDep.echo,
			appDep.validator,
			services,
		)
		telegramHandler.RegisterHandlers()
		appDep.telegram.StartCleanupExpired(ctx)
	}

	if err := services.HousekeepingService.Start(ctx); err != nil {
		log.Fatalf("Failed to start housekeeping: %v", err)
	}

	utils.GoSafe(func() {
		if err := apiServer.Start(); err != nil && err != httpNet.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}, appDep.log.LogPanic)

	if telegramHandler != nil {
		utils.GoSafe(telegramHandler.Start, appDep.log.LogPanic)
	}

	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	<-services.HousekeepingService.Stop().Done()

	if telegramHandler != nil {
		telegramHandler.Stop()
		appDep.telegram.StopCleanupExpired()
	}

	if err := apiServer.Stop(); err != nil {
		log.Printf("Failed to stop HTTP server: %v", err)
	}

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}
