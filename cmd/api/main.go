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

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	coreauth "casa-comfort/internal/core/auth"
	"casa-comfort/internal/core/cache"
	"casa-comfort/internal/core/config"
	"casa-comfort/internal/core/database"
	"casa-comfort/internal/core/logger"
	"casa-comfort/internal/core/mailer"
	"casa-comfort/internal/core/server"
	"casa-comfort/internal/core/session"
	"casa-comfort/internal/domain"
	"casa-comfort/internal/feature/auth"
	"casa-comfort/internal/feature/product"
	"casa-comfort/internal/repo"
	"casa-comfort/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	// 数据库（失败直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(&domain.User{}, &domain.Product{}); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	// session 存储：有 redis 用 redis，否则进程内存 + 定期清理
	var (
		sessStore session.Store
		prodCache *cache.Cache
	)
	if cfg.Redis.Enable {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sessStore = session.NewRedisStore(rdb)
		prodCache = cache.New(rdb)
		log.Info("redis enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		ms := session.NewMemoryStore(time.Minute)
		defer ms.Close()
		sessStore = ms
		log.Info("redis disabled, using in-memory session store")
	}

	sessTTL := time.Duration(cfg.Session.TTLHours) * time.Hour
	sm := session.NewManager(sessStore, sessTTL, cfg.Session.CookieName, cfg.Session.CookieSecure)

	jwter := &coreauth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.TTLDays) * 24 * time.Hour,
	}

	// 邮件：没配 SMTP 就只打日志（开发时从日志里拿验证链接）
	var sender mailer.Sender
	if cfg.SMTP.Enable {
		sender = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		sender = &mailer.LogSender{L: log}
	}
	mail := mailer.New(sender, cfg.App.URL, log)

	// 业务装配
	authSvc := auth.NewService(repo.NewUserRepo(db), mail, cfg.Auth.AdminUsernames, log)
	prodSvc := product.NewService(repo.NewProductRepo(db), prodCache,
		time.Duration(cfg.Shop.CacheTTLSec)*time.Second, log)

	router.Register(router.NewAuthModule(authSvc, sm, jwter, db))
	router.Register(router.NewProductModule(prodSvc, db))
	r := router.NewAPIEngine(log, sm, jwter)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("storefront api starting",
		zap.String("addr", addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/api/health"),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("storefront api start FAILED", zap.Error(err))
		}
	}()
	log.Info("storefront api started SUCCESS")

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("storefront api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
