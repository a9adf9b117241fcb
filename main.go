package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"drawing-board/config"
	"drawing-board/discovery"
	"drawing-board/hub"
	"drawing-board/internal/logx"
	"drawing-board/server"
)

func main() {
	cfg, loaded, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logx.Init(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	log := logx.L
	defer log.Sync()

	if !loaded {
		log.Warn("no .env file found, using environment variables")
	}

	gin.SetMode(gin.ReleaseMode)

	h := hub.New(log)
	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.NewRouter(cfg, h, log),
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Addr()),
			zap.Strings("allowed_origins", cfg.AllowedOrigins))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	if cfg.MDNS {
		port, _ := strconv.Atoi(cfg.Port)
		adv, err := discovery.Advertise(port)
		if err != nil {
			log.Warn("mdns advertise failed", zap.Error(err))
		} else {
			log.Info("advertising hub", zap.String("service", discovery.ServiceType), zap.Int("port", port))
			defer adv.Shutdown()
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// hijacked websocket connections are not tracked by Shutdown
	h.Close()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
