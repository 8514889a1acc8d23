package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/internal/api"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/internal/auth"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/internal/ledger"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/config"
	"github.com/AkshitaMeena-Jharwal/biomtake-healthcare-system/pkg/logger"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)

	wallet := ledger.NewFileSystemWallet(cfg.Fabric.WalletPath)
	gatewayClient := ledger.NewGatewayClient(&cfg.Fabric, wallet, logger)

	tokens := auth.NewTokenIssuer(cfg.JWT.SecretKey, cfg.JWT.Issuer, time.Duration(cfg.JWT.TokenTTL)*time.Second)

	service := api.NewService(cfg, api.Dependencies{
		Credentials: auth.NewSeedCredentialStore(),
		Sessions:    auth.NewMemorySessionStore(),
		Tokens:      tokens,
		Authorizer:  auth.NewRoleAuthorizer(),
		Ledger:      gatewayClient,
	}, logger)

	go func() {
		if err := service.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("Failed to start server")
			os.Exit(1)
		}
	}()

	logger.WithFields(map[string]interface{}{
		"port":      cfg.Server.Port,
		"channel":   cfg.Fabric.ChannelName,
		"chaincode": cfg.Fabric.ChaincodeName,
	}).Info("BioMTAKE API server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down API server...")

	if err := service.Stop(); err != nil {
		logger.WithError(err).Error("Failed to shutdown server gracefully")
		os.Exit(1)
	}

	logger.Info("API server stopped")
}
