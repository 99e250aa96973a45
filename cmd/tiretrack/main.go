package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"tiretrack/internal/cache"
	"tiretrack/internal/config"
	"tiretrack/internal/database"
	"tiretrack/internal/logger"
	"tiretrack/internal/notifier"
	"tiretrack/internal/service"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. 初始化日志
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "tiretrack")
	if err != nil {
		panic(fmt.Sprintf("Failed to init logger: %v", err))
	}
	defer log.Sync()

	// 3. 初始化 PostgreSQL
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. 初始化 Redis（车队聚合缓存，不可用时退化为实时计算）
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	var kv cache.KVStore
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unavailable, fleet summary cache disabled", zap.Error(err))
	} else {
		kv = cache.NewRedisKVStore(redisClient)
	}

	// 5. 报警外发通道：MQTT 优先，其次 webhook，都没配置则只落库
	var alertNotifier notifier.Notifier
	switch {
	case cfg.MQTT.Broker != "":
		mqttNotifier, err := notifier.NewMQTTNotifier(&cfg.MQTT)
		if err != nil {
			log.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttNotifier.Close()
		alertNotifier = mqttNotifier
		log.Info("Alert notifications via MQTT", zap.String("broker", cfg.MQTT.Broker))
	case cfg.Alert.WebhookURL != "":
		alertNotifier = notifier.NewWebhookNotifier(cfg.Alert.WebhookURL)
		log.Info("Alert notifications via webhook")
	default:
		log.Info("No alert notification channel configured")
	}

	// 6. 装配引擎
	engine := service.NewEngine(db, service.EngineOptions{
		KV:             kv,
		Notifier:       alertNotifier,
		AlertTTL:       cfg.Alert.TTL,
		FleetKeyPrefix: cfg.Fleet.CacheKeyPrefix,
		FleetCacheTTL:  cfg.Fleet.CacheTTL,
	}, log)
	_ = engine // 上层接入点（API / 调度任务）从这里拿服务

	log.Info("Tiretrack engine started")

	// 7. 等待信号（优雅关闭）
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	cancel()

	log.Info("Tiretrack engine stopped")
}
