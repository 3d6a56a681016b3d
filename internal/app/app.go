package app

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/fechamento/internal/auth"
	"github.com/hitoshi/fechamento/internal/bootstrap"
	"github.com/hitoshi/fechamento/internal/closing"
	"github.com/hitoshi/fechamento/internal/config"
	"github.com/hitoshi/fechamento/internal/database"
	"github.com/hitoshi/fechamento/internal/handler"
	"github.com/hitoshi/fechamento/internal/logger"
	"github.com/hitoshi/fechamento/internal/mailer"
	"github.com/hitoshi/fechamento/internal/metrics"
	"github.com/hitoshi/fechamento/internal/middleware"
	"github.com/hitoshi/fechamento/internal/repository"
	"github.com/hitoshi/fechamento/internal/selection"
	"github.com/hitoshi/fechamento/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// defaultHealthcheckPort はSERVER_PORT未設定時にhealthcheckが叩くポート。
const defaultHealthcheckPort = "3003"

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再初期化
	logger.SetupDefault(w, cfg.LogLevel)

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
			port = defaultHealthcheckPort
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
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandCreateUser:
		return runCreateUser(cfg, w, commandArgs(args))
	default:
		return runServe(cfg)
	}
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// newMetricsRegistry はアプリケーションのメトリクスとGo/プロセスのメトリクスを登録したレジストリを返す。
func newMetricsRegistry() (*prometheus.Registry, *metrics.Collector) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, metrics.NewCollector(registry)
}

// newMailer はSMTP設定からMailerを生成する。SMTP_HOST未設定の場合は送信を無効にする。
func newMailer(cfg *config.Config) (auth.Mailer, error) {
	m, err := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}, slog.Default())
	if errors.Is(err, mailer.ErrNotConfigured) {
		slog.Warn("SMTP_HOST is not set; password reset emails are disabled")
		return mailer.Disabled{}, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、起動時の初期化を行ってから全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	schemaRepo := repository.NewPostgresSchemaRepo(db)
	selectionRepo := repository.NewPostgresSelectionRepo(db)
	closingRepo := repository.NewPostgresClosingRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	resetRepo := repository.NewPostgresPasswordResetRepo(db)

	registry, collector := newMetricsRegistry()

	// 3. 起動時の初期化（失敗した場合は起動しない）
	initializer := bootstrap.NewInitializer(
		schemaRepo, selectionRepo, closingRepo,
		collector, slog.Default(), cfg.BootstrapUTCOffsetHours,
	)
	if err := initializer.Run(context.Background()); err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	// 4. ドメインサービスの初期化
	resetMailer, err := newMailer(cfg)
	if err != nil {
		return fmt.Errorf("failed to configure mailer: %w", err)
	}

	authService := auth.NewService(
		userRepo, resetRepo,
		auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL),
		auth.BcryptHasher{},
		resetMailer,
		collector,
		auth.ServiceConfig{ResetCodeTTL: cfg.ResetCodeTTL},
	)
	closingService := closing.NewService(closingRepo)
	selectionService := selection.NewService(selectionRepo)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitAuth))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsGatherer:   registry,
		HealthChecker:     db,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,

		AuthService:      authService,
		ClosingService:   closingService,
		SelectionService: selectionService,
	})

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilSignal(server, "API server")
}

// serveUntilSignal はサーバーを起動し、SIGINT/SIGTERMでグレースフルシャットダウンする。
func serveUntilSignal(server *http.Server, name string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s listen error: %w", name, err)
	case <-stop:
	}

	slog.Info("shutting down " + name + "...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れのパスワードリセットコードを定期的に削除し、/metricsを公開する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	registry, collector := newMetricsRegistry()

	// 2. クリーンアップジョブの初期化
	cleanupJob := cleanup.NewCleanupJob(db, slog.Default(), collector)

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// 3. メトリクスエンドポイントをバックグラウンドで公開
	metricsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", slog.String("error", err.Error()))
		}
	}()
	defer metricsServer.Close()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Schedule(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// createUserOptions はcreate-userサブコマンドの引数。
type createUserOptions struct {
	Email    string
	Name     string
	Password string
}

// parseCreateUserFlags はcreate-userサブコマンドのフラグを解析する。
func parseCreateUserFlags(w io.Writer, args []string) (*createUserOptions, error) {
	fs := flag.NewFlagSet(string(CommandCreateUser), flag.ContinueOnError)
	fs.SetOutput(w)

	opts := &createUserOptions{}
	fs.StringVar(&opts.Email, "email", "", "e-mail of the new user")
	fs.StringVar(&opts.Name, "name", "", "display name of the new user")
	fs.StringVar(&opts.Password, "password", "", "initial password")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.Email == "" || opts.Password == "" {
		return nil, fmt.Errorf("-email and -password are required")
	}
	return opts, nil
}

// runCreateUser はusersテーブルにユーザーを作成する。
func runCreateUser(cfg *config.Config, w io.Writer, args []string) error {
	opts, err := parseCreateUserFlags(w, args)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	authService := auth.NewService(
		repository.NewPostgresUserRepo(db),
		repository.NewPostgresPasswordResetRepo(db),
		auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL),
		auth.BcryptHasher{},
		mailer.Disabled{},
		nil,
		auth.ServiceConfig{ResetCodeTTL: cfg.ResetCodeTTL},
	)

	user, err := authService.CreateUser(context.Background(), opts.Email, opts.Name, opts.Password)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
