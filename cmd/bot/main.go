package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/user/moviebot/internal/config"
	"github.com/user/moviebot/internal/handler"
	"github.com/user/moviebot/internal/logger"
	"github.com/user/moviebot/internal/messenger/telegram"
	"github.com/user/moviebot/internal/model"
	"github.com/user/moviebot/internal/repository"
	"github.com/user/moviebot/internal/router"
	"github.com/user/moviebot/internal/service"
)

// drainTimeout 收到退出信号后等待处理中事件的最长时间
const drainTimeout = 15 * time.Second

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log, err := logger.Init(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	if envErr != nil {
		log.Info("no .env file, using the process environment")
	}

	if err := run(cfg, log); err != nil {
		log.Error("bot stopped with an error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// 加载数据
	store, err := repository.Open(cfg.DataDir)
	if err != nil {
		if errors.Is(err, model.ErrStorageCorruption) {
			log.Error("data files are corrupt, restore a backup or fix them by hand", zap.String("dir", cfg.DataDir))
		}
		return fmt.Errorf("open store: %w", err)
	}

	bot, err := telegram.New(cfg.BotToken, cfg.LogLevel == "debug")
	if err != nil {
		return err
	}
	log.Info("authorized", zap.String("bot", bot.Username()), zap.Int64("owner", cfg.OwnerID))

	// 初始化服务
	clock := service.SystemClock{}
	ads := service.NewExpirer(clock, "ads")
	autoDelete := service.NewExpirer(clock, "autodelete")

	policy := service.NewPolicy(store, bot, cfg.OwnerID)
	search := service.NewSearchService(store, policy, bot, ads, autoDelete, clock, service.SearchConfig{
		MaxActive: cfg.MaxActiveSearches,
	})
	admin := service.NewAdminService(store, bot, search, service.NewTMDBService(cfg.TMDBAPIKey), clock)
	users := service.NewUserService(store, bot, cfg.OwnerID, clock)
	snapshots := service.NewSnapshotService(store, cfg.SnapshotInterval, cfg.SnapshotKeep, clock)

	disp := handler.NewDispatcher(handler.Deps{
		Store:       store,
		Messenger:   bot,
		Policy:      policy,
		Search:      search,
		Admin:       admin,
		Users:       users,
		Broadcaster: service.NewBroadcaster(store, bot, cfg.BroadcastConcurrency),
		AutoDelete:  autoDelete,
		Snapshots:   snapshots,
		AppSecret:   cfg.AppSecret,
		JWTExpiry:   cfg.JWTExpiry,
	})

	// intake 在收到信号时停止，handlers 使用独立的 context，保证处理中的搜索能完成
	intake, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	handlers, cancelHandlers := context.WithCancel(context.Background())
	defer cancelHandlers()

	dispatch := func(ev model.Event) { disp.Go(handlers, ev) }

	api := handler.NewAPI(admin, search)
	if cfg.WebhookURL != "" {
		api.Webhook, api.WebhookSecret, api.Dispatch = bot, cfg.WebhookSecret, dispatch
	}
	// 启动 HTTP 服务
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router.New(cfg, api),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	snapshots.Start(intake)

	if cfg.WebhookURL != "" {
		url := strings.TrimRight(cfg.WebhookURL, "/") + "/telegram/" + cfg.WebhookSecret
		if err := bot.SetWebhook(url); err != nil {
			return err
		}
		log.Info("webhook registered")
		<-intake.Done()
	} else if err := bot.Poll(intake, dispatch); err != nil {
		return fmt.Errorf("poll updates: %w", err)
	}

	// 优雅关闭
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server forced to close", zap.Error(err))
	}

	// 立即删除待删除的广告，让等待中的搜索结束
	ads.Flush()
	drained := make(chan struct{})
	go func() {
		disp.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drainTimeout):
		log.Warn("in-flight events did not finish, cancelling them")
		cancelHandlers()
		<-drained
	}
	autoDelete.Stop()
	log.Info("bot stopped")
	return nil
}
