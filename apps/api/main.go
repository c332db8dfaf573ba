package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	echoapi "github.com/trezcool/maendeleo/apps/api/echo"
	"github.com/trezcool/maendeleo/core"
	"github.com/trezcool/maendeleo/core/progress"
	logsvc "github.com/trezcool/maendeleo/services/logger"
	"github.com/trezcool/maendeleo/storage/database"
	sqlxrepos "github.com/trezcool/maendeleo/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	logger := logsvc.NewRollbarLogger(std, core.Conf)
	logger.Enable(!core.Conf.Debug) // no rollbar reports from DEV

	// set up DB
	db, err := database.Open(core.Conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer db.Close()

	// set up repos & services
	progressRepo := sqlxrepos.NewProgressRepository(db)
	contentRepo := sqlxrepos.NewContentRepository(db)
	queue := progress.NewUpdateQueue(progressRepo)
	progressSvc := progress.NewService(progressRepo, contentRepo, queue, logger)

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(
		core.Conf.Server.Address(),
		shutdown,
		&echoapi.Deps{
			Logger:      logger,
			ProgressSvc: progressSvc,
		},
	)

	go func() {
		logger.Info("server listening on " + core.Conf.Server.Address())
		if err := app.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", err)
			shutdown <- syscall.SIGTERM
		}
	}()

	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), core.Conf.Server.ShutdownTimeout)
	defer cancel()

	// apply buffered progress writes before going down
	if err := progressSvc.FlushDeferredUpdates(ctx); err != nil {
		logger.Error("flushing progress queue", err)
	}
	if err := app.Stop(ctx); err != nil {
		logger.Error("stopping server", err)
	}
}
