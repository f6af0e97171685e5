package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/accounts/internal/auth"
	"github.com/hitoshi/accounts/internal/config"
	"github.com/hitoshi/accounts/internal/database"
	"github.com/hitoshi/accounts/internal/handler"
	"github.com/hitoshi/accounts/internal/logger"
	"github.com/hitoshi/accounts/internal/metrics"
	"github.com/hitoshi/accounts/internal/middleware"
	"github.com/hitoshi/accounts/internal/repository"
	"github.com/hitoshi/accounts/internal/security"
	"github.com/hitoshi/accounts/internal/user"
	"github.com/hitoshi/accounts/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. .envと環境変数から設定を読み込む
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
		slog.String("env", cfg.AppEnv),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg, w)
	case CommandCleanup:
		return runCleanup(cfg, w)
	case CommandMigrate:
		return runMigrate(cfg, len(args) > 1 && args[1] == "down")
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, err
	}
	if err := database.Ping(context.Background(), db, 5*time.Second); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("database connection established")
	return db, nil
}

// buildRouter は全依存関係をワイヤリングしたAPIルーターを返す。
func buildRouter(cfg *config.Config, db *sql.DB, log *slog.Logger, reg *prometheus.Registry) http.Handler {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	tokenRepo := repository.NewPostgresTokenRepo(db)

	// 2. セキュリティサービスの初期化
	sanitizer := security.NewNameSanitizer()
	hasher := security.NewPasswordHasher(cfg.BcryptCost)

	// 3. ドメインサービスの初期化
	tokens := auth.NewTokenService(tokenRepo, cfg.TokenTTL)
	authService := auth.NewService(userRepo, tokens, hasher, sanitizer)
	userService := user.NewService(userRepo, sanitizer)

	// 4. ルーターの構築
	return handler.NewRouter(&handler.RouterDeps{
		Envelope:          middleware.NewEnvelope(cfg.Debug(), log),
		Authenticator:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Metrics:           metrics.NewCollector(reg),
		MetricsHandler:    metrics.SetupMetricsRoute(reg),
		HealthChecker:     db,
		AuthService:       authService,
		UserService:       userService,
		AdminService:      userService,
	})
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	router := buildRouter(cfg, db, slog.Default(), prometheus.NewRegistry())

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newLocker はREDIS_ADDRが設定されていればRedisLocker、なければ
// 同じデータベースを使うワーカー間で排他するPostgresLockerを返す。
// 返されたcloseは必ず呼ぶこと。
func newLocker(ctx context.Context, cfg *config.Config, db *sql.DB) (cleanup.Locker, func() error, error) {
	if cfg.RedisAddr == "" {
		return cleanup.NewPostgresLocker(db, 0), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Info("redis connection established", slog.String("addr", cfg.RedisAddr))
	return cleanup.NewRedisLocker(client, "", 0), client.Close, nil
}

// newCleanupScheduler はクリーンアップジョブとスケジューラを構築する。
// ジョブのログはCLEANUP_LOG_PATHが設定されていればファイルにも追記する。
func newCleanupScheduler(ctx context.Context, cfg *config.Config, db *sql.DB, w io.Writer, rec cleanup.RunRecorder) (*cleanup.Scheduler, func(), error) {
	jobLogger, closeLog, err := logger.SetupTee(w, cfg.CleanupLogPath)
	if err != nil {
		return nil, nil, err
	}

	locker, closeLocker, err := newLocker(ctx, cfg, db)
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	job := cleanup.NewCleanupJob(repository.NewPostgresUserRepo(db), jobLogger, rec)
	job.RetentionDays = cfg.CleanupRetentionDays

	scheduler := cleanup.NewScheduler(job, locker, slog.Default(), rec)
	scheduler.RunOnStart = cfg.CleanupRunOnStart

	return scheduler, func() {
		closeLocker()
		closeLog()
	}, nil
}

// runWorker はワーカーモードで起動する。
// クリーンアップスケジューラを起動し、/healthと/metricsを公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config, w io.Writer) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	scheduler, closeFn, err := newCleanupScheduler(ctx, cfg, db, w, collector)
	if err != nil {
		return err
	}
	defer closeFn()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.SetupMetricsRoute(reg))
	mux.HandleFunc("/health", handler.NewHealthHandler(db))
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("worker metrics listen error", slog.String("error", err.Error()))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Int("retention_days", cfg.CleanupRetentionDays),
		slog.Bool("distributed_lock", cfg.RedisAddr != ""),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("worker shutdown failed: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runCleanup はクリーンアップを1回だけ実行する。
// 他のワーカーが実行中の場合はスキップする。
func runCleanup(cfg *config.Config, w io.Writer) error {
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	scheduler, closeFn, err := newCleanupScheduler(ctx, cfg, db, w, nil)
	if err != nil {
		return err
	}
	defer closeFn()

	scheduler.RunOnce(ctx)
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。downの場合は直近の1つを巻き戻す。
func runMigrate(cfg *config.Config, down bool) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		slog.Bool("down", down),
	)

	if down {
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		slog.Info("database migration rolled back")
		return nil
	}

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
