package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fedchat/internal"
	"fedchat/internal/handler"
	"fedchat/internal/keyring"
	"fedchat/internal/relay"
	"fedchat/internal/repository"
	"fedchat/internal/service"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	config := internal.DefaultConfig()
	if *configPath != "" {
		config, err = internal.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal("could not load config", zap.String("path", *configPath), zap.Error(err))
		}
	}

	storage, err := repository.Open(config.DBPath)
	if err != nil {
		logger.Fatal("could not open database", zap.String("path", config.DBPath), zap.Error(err))
	}

	var broker relay.Broker
	switch config.Broker {
	case "zmq":
		broker, err = relay.NewZmqBroker(config.ZmqPublishEndpoint, logger)
		if err != nil {
			logger.Fatal("could not start zmq broker", zap.String("endpoint", config.ZmqPublishEndpoint), zap.Error(err))
		}
	default:
		broker = relay.NewInprocBroker(logger)
	}
	defer broker.Close()

	keys, err := keyring.NewDirectory(config.Host,
		keyring.NewLocalResolver(storage.Credentials()),
		keyring.NewHTTPResolver(nil),
		config.KeyCacheSize, logger)
	if err != nil {
		logger.Fatal("could not build key directory", zap.Error(err))
	}

	authService := service.NewAuthService(config.Host, storage, logger)
	chatService := service.NewChannelService(storage, broker, keys, config.AllowUnsignedMessages, logger)
	cookieStore := sessions.NewCookieStore([]byte(config.SessionSecret))

	router := handler.NewRouter(chatService, authService, cookieStore, config.Host, logger)

	server := &http.Server{
		Addr:         config.ListenAddr,
		Handler:      router,
		ReadTimeout:  time.Duration(config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(config.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server listening",
			zap.String("addr", config.ListenAddr),
			zap.String("host", config.Host),
			zap.String("broker", config.Broker),
			zap.Bool("allow-unsigned", config.AllowUnsignedMessages))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown did not complete cleanly", zap.Error(err))
	}
}
