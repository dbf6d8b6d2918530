package app

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookshelf-app/bookshelf-service/config"
	"github.com/bookshelf-app/bookshelf-service/internal/handler"
	"github.com/bookshelf-app/bookshelf-service/internal/server"
	"github.com/bookshelf-app/bookshelf-service/internal/service/catalog"
	"github.com/bookshelf-app/bookshelf-service/internal/service/imagegen"
	"github.com/bookshelf-app/bookshelf-service/internal/session"
	"github.com/bookshelf-app/bookshelf-service/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func Run(cfg config.Config) {
	log := logger.NewLogger(cfg.Log, "bookshelf")

	catalogSvc := catalog.NewService(log, cfg)
	generator := imagegen.NewService(log, cfg)
	workflow := session.NewWorkflow(log, catalogSvc, generator, cfg.Sessions.TTL)

	h := handler.New(catalogSvc, workflow, cfg, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	g, gCtx := errgroup.WithContext(sweepCtx)
	g.Go(func() error {
		return workflow.Sweep(gCtx, cfg.Sessions.SweepInterval)
	})

	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	sweepCancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("session sweeper", zap.Error(err))
	}
	log.Info("Graceful shutdown finished")
}
