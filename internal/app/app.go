// Package app はアプリケーションの起動とワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/dakoku/internal/audit"
	"github.com/hitoshi/dakoku/internal/catalog"
	"github.com/hitoshi/dakoku/internal/config"
	"github.com/hitoshi/dakoku/internal/handler"
	"github.com/hitoshi/dakoku/internal/jibble"
	"github.com/hitoshi/dakoku/internal/logger"
	"github.com/hitoshi/dakoku/internal/metrics"
	"github.com/hitoshi/dakoku/internal/middleware"
	"github.com/hitoshi/dakoku/internal/registration"
	"github.com/hitoshi/dakoku/internal/repository"
	"github.com/hitoshi/dakoku/internal/security"
	"github.com/hitoshi/dakoku/internal/store"
	"github.com/hitoshi/dakoku/internal/timeclock"
	"github.com/hitoshi/dakoku/internal/worker/refresh"
)

// Version はビルド時に-ldflagsで上書きされるバージョン文字列。
var Version = "dev"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("store_path", cfg.StorePath),
	)

	switch cmd {
	case CommandRefresh:
		return runRefresh(cfg)
	case CommandServe:
		return runServe(cfg)
	default:
		return runServe(cfg)
	}
}

// deps はワイヤリング済みの依存関係一式。
type deps struct {
	fileStore *store.FileStore
	collector *metrics.Collector

	registrationService *registration.Service
	timeclockService    *timeclock.Service
	catalogService      *catalog.Service
	auditService        *audit.Service
}

// wire はストア・リポジトリ・Jibbleクライアント・サービスを構築する。
func wire(cfg *config.Config) *deps {
	fileStore := store.NewFileStore(cfg.StorePath)

	regRepo := repository.NewFileRegistrationRepo(fileStore)
	auditRepo := repository.NewFileAuditLogRepo(fileStore)
	credRepo := repository.NewFileCredentialRepo(fileStore)
	cacheRepo := repository.NewFileCacheRepo(fileStore)

	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	httpClient := &http.Client{Timeout: cfg.JibbleTimeout}

	tokenManager := jibble.NewTokenManager(httpClient, credRepo, slog.Default(), jibble.TokenManagerConfig{
		ClientID:     cfg.JibbleClientID,
		ClientSecret: cfg.JibbleClientSecret,
		TokenURL:     cfg.JibbleTokenURL,
		TTLMargin:    cfg.TokenTTLMargin,
	})
	client := jibble.NewClient(httpClient, tokenManager, slog.Default(), collector, cfg.JibbleAPIBaseURL)
	sessions := jibble.NewSessionResolver(client)

	sanitizer := security.NewNameSanitizer()

	return &deps{
		fileStore: fileStore,
		collector: collector,

		registrationService: registration.NewService(regRepo, auditRepo, client, sanitizer),
		timeclockService:    timeclock.NewService(regRepo, auditRepo, sessions, client, client, sanitizer, collector),
		catalogService:      catalog.NewService(cacheRepo, client),
		auditService:        audit.NewService(auditRepo, regRepo),
	}
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、キャッシュ更新ジョブをバックグラウンドで起動した上で
// HTTPサーバーを起動する。SIGINTまたはSIGTERMでグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	d := wire(cfg)

	// レート制限の構成（configはreq/min単位、rate.Limitはreq/sec単位）
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	if cfg.RateLimitGeneral > 0 {
		rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
		rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	}
	if cfg.RateLimitRegistration > 0 {
		rateLimiterCfg.RegistrationRate = rate.Limit(float64(cfg.RateLimitRegistration) / 60.0)
		rateLimiterCfg.RegistrationBurst = cfg.RateLimitRegistration
	}
	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg, d.collector)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:         slog.Default(),
		StatusObserver: d.collector,
		RateLimiter:    rateLimiter,
		APIToken:       cfg.APIToken,

		RegistrationService: d.registrationService,
		TimeclockService:    d.timeclockService,
		CatalogService:      d.catalogService,
		AuditService:        d.auditService,

		Version:      Version,
		StoreChecker: d.fileStore,

		MetricsHandler: metrics.Handler(prometheus.DefaultGatherer),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// キャッシュ更新ジョブをバックグラウンドで起動
	refreshJob := refresh.NewJob(d.catalogService, slog.Default())
	go refreshJob.Start(ctx, cfg.CacheRefreshInterval)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runRefresh はプロジェクト/チームキャッシュの更新を1回実行して終了する。
// cronなどからの定期実行用サブコマンド。
func runRefresh(cfg *config.Config) error {
	d := wire(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	refreshJob := refresh.NewJob(d.catalogService, slog.Default())
	refreshJob.RunOnce(ctx)

	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
