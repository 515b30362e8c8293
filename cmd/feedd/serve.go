package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d60-Lab/habbo-feed/internal/api"
	"github.com/d60-Lab/habbo-feed/internal/api/handler"
	"github.com/d60-Lab/habbo-feed/internal/service"
	"github.com/d60-Lab/habbo-feed/pkg/logger"
	"github.com/d60-Lab/habbo-feed/pkg/tracing"
)

func newServeCmd(cfgPath *string) *cobra.Command {
	var noSweep bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.close()

			shutdownTracing, err := tracing.Init(ctx, a.cfg.Tracing)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(sctx); err != nil {
					logger.Warn("shutdown tracing", zap.Error(err))
				}
			}()

			if !noSweep {
				sweeper := service.NewSweeper(a.actRepo, a.cfg.Feed.ActivityRetention, a.cfg.Feed.SweepSchedule).
					EvictSessions(a.feed, a.cfg.Feed.SessionIdle)
				stopSweep, err := sweeper.Start()
				if err != nil {
					return err
				}
				defer stopSweep()
			}

			router := api.NewRouter(a.cfg, handler.NewHandler(a.feed, a.ping))
			srv := &http.Server{
				Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
				Handler:      router,
				ReadTimeout:  a.cfg.Server.ReadTimeout,
				WriteTimeout: a.cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			logger.Info("shutting down")
			// SSE 连接依赖会话循环，先停循环再关闭服务
			a.feed.Shutdown()
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		},
	}
	cmd.Flags().BoolVar(&noSweep, "no-sweep", false, "do not schedule the activity retention sweep")
	return cmd
}
