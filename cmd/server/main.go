package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/krrishnaik/Markly/config"
	"github.com/krrishnaik/Markly/internal/api/handler"
	"github.com/krrishnaik/Markly/internal/api/router"
	"github.com/krrishnaik/Markly/internal/dto"
	"github.com/krrishnaik/Markly/internal/job"
	"github.com/krrishnaik/Markly/internal/repository"
	"github.com/krrishnaik/Markly/internal/repository/memory"
	"github.com/krrishnaik/Markly/internal/seed"
	"github.com/krrishnaik/Markly/internal/service"
	"github.com/krrishnaik/Markly/pkg/database"
	"github.com/krrishnaik/Markly/pkg/jwt"
	applogger "github.com/krrishnaik/Markly/pkg/logger"
	"github.com/krrishnaik/Markly/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("MARKLY_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, cfg.Meeting.Location())
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 存储：memory 或 PostgreSQL（含迁移）
	var (
		repo *repository.Repository
		db   *gorm.DB
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err = database.NewDB(&cfg.DB, logger)
		if err != nil {
			logger.Fatal("数据库连接失败", zap.Error(err))
		}
		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
		}
		if err := database.RunMigrations(sqlDB, logger); err != nil {
			logger.Fatal("数据库迁移失败", zap.Error(err))
		}
		repo = repository.NewRepository(db)
	default:
		logger.Warn("使用进程内存储，重启后数据将丢失")
		repo = memory.NewRepository()
	}

	if cfg.Store.SeedDemo {
		if err := seed.Demo(context.Background(), repo, cfg.Store.DemoPassword, logger); err != nil {
			logger.Fatal("写入演示数据失败", zap.Error(err))
		}
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，Token 黑名单与登录限流将不可用", zap.Error(err))
			rdb = nil
		}
	}

	// 5. 初始化 JWT 管理器与请求校验标签
	jwtMgr := jwt.NewManager(&cfg.Auth)
	if err := dto.RegisterValidators(); err != nil {
		logger.Fatal("注册校验标签失败", zap.Error(err))
	}

	// 6. 依赖注入: Repository → Service → Handler
	svc := service.NewService(cfg, repo, jwtMgr, logger)
	h := handler.NewHandler(svc, rdb, logger)

	// 7. 定时任务（可选）
	var sweeper *job.MeetingSweeper
	if spec := cfg.Meeting.AutoCompleteCron; spec != "" {
		sweeper, err = job.NewMeetingSweeper(spec, svc.Attendance, logger)
		if err != nil {
			logger.Fatal("注册会议自动结束任务失败", zap.String("cron", spec), zap.Error(err))
		}
		sweeper.Start()
	}

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if sweeper != nil {
		sweeper.Stop(ctx)
	}

	// 关闭数据库连接
	if db != nil {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
