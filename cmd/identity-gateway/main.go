package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dropDatabas3/identity-gateway/internal/config"
	"github.com/dropDatabas3/identity-gateway/internal/gateway"
	"github.com/dropDatabas3/identity-gateway/internal/http/controllers"
	"github.com/dropDatabas3/identity-gateway/internal/http/router"
	"github.com/dropDatabas3/identity-gateway/internal/metrics"
	"github.com/dropDatabas3/identity-gateway/internal/observability/logger"
	"github.com/dropDatabas3/identity-gateway/internal/scim"
	"github.com/dropDatabas3/identity-gateway/internal/token"
)

var version = "dev"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "identity-gateway",
		Short:        "Gateway de identidad sobre la API SCIM2/OAuth2 del identity provider",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "ruta al YAML de configuración (opcional)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Imprime la versión",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(configPath string) error {
	// .env si existe; si no, seguimos con el entorno del sistema.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("cargando configuración: %w", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: "identity-gateway",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("registrando métricas: %w", err)
	}

	// Núcleo de tokens: provider M2M + resolución de claves + verificador.
	provider := token.NewProvider(token.ProviderConfig{
		TokenURL:     cfg.Provider.TokenURL,
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		Scopes:       cfg.Provider.Scopes,
	}, logger.Named("token"))

	resolver := token.NewKeyResolver(cfg.Provider.JWKSURL, cfg.JWKSRefetchMinInterval(), nil, logger.Named("jwks"))
	verifier := token.NewVerifier(resolver, cfg.Provider.Issuer, logger.Named("verifier"))

	scimClient := scim.NewClient(scim.Config{
		BaseURL: cfg.Provider.SCIM2URL,
		Timeout: cfg.ProviderTimeout(),
	}, provider, logger.Named("scim"))

	svc := gateway.NewService(scimClient, gateway.GroupIDs{
		Admin:          cfg.Groups.AdminID,
		Supplier:       cfg.Groups.SupplierID,
		WarehouseStaff: cfg.Groups.WarehouseStaffID,
	}, logger.Named("gateway"))

	handler := router.New(router.Deps{
		Controller: controllers.New(svc, cfg.IsDev()),
		Verifier:   verifier,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("identity gateway escuchando", zap.String("addr", cfg.Server.Addr), zap.String("env", cfg.App.Env))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Info("señal recibida, iniciando graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown forzado por timeout", zap.Error(err))
			return err
		}
		log.Info("servidor HTTP cerrado")
	}
	return nil
}
