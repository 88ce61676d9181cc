package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sendlens/sendlens-server/internal/api/http/request"
	"github.com/sendlens/sendlens-server/internal/api/http/router"
	"github.com/sendlens/sendlens-server/internal/config"
	"github.com/sendlens/sendlens-server/internal/crypto"
	"github.com/sendlens/sendlens-server/internal/logger"
	"github.com/sendlens/sendlens-server/internal/model"
	"github.com/sendlens/sendlens-server/internal/provider"
	"github.com/sendlens/sendlens-server/internal/repository/postgres"
	"github.com/sendlens/sendlens-server/internal/server"
	"github.com/sendlens/sendlens-server/internal/service"
	storage "github.com/sendlens/sendlens-server/internal/storage/minio"
	"github.com/sendlens/sendlens-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	if cfg.UsesDevelopmentMasterSecret() {
		logger.Warn("running with the insecure development master secret; set CRYPTO_MASTER_SECRET")
	}

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	grantRepo := postgres.NewGrantRepository(db)
	stateRepo := postgres.NewConnectStateRepository(db)
	keyRepo := postgres.NewAPIKeyRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(db)
	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	envelope, err := crypto.NewEnvelope(cfg.Crypto.MasterSecret)
	if err != nil {
		logger.Fatal("failed to initialize encryption envelope", "error", err)
	}

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	mailProvider := provider.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL, logger)
	keyValidator := provider.NewKeyChecker(logger)

	tokenService := service.NewTokenService(tokenManager, refreshTokenRepo, cfg.JWT.RefreshTTL, logger)
	authService := service.NewAuth(userRepo, tokenService, logger)
	credentialService := service.NewCredentials(accountRepo, envelope, logger)
	connectService := service.NewConnect(mailProvider, credentialService, accountRepo, stateRepo, auditRepo, logger)
	sharingService := service.NewSharing(accountRepo, grantRepo, userRepo, auditRepo, logger)
	searchService := service.NewSearch(connectService, sharingService, accountRepo, mailProvider, storageClient, auditRepo, logger)
	keyService := service.NewAPIKeys(keyRepo, envelope, keyValidator, logger)
	auditService := service.NewAudit(auditRepo, logger)

	ctxMgr := request.NewManager()

	r := router.New(
		db,
		authService,
		connectService,
		sharingService,
		searchService,
		keyService,
		auditService,
		ctxMgr,
		cfg.Google.SettingsURL,
		cfg.HTTP.EnableHTTPS,
		logger,
	)
	httpServer := server.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer

	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(httpServer)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", httpServer.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
