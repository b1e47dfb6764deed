package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"datagen-backend/internal/classifier"
	"datagen-backend/internal/config"
	"datagen-backend/internal/handler"
	"datagen-backend/internal/llm"
	"datagen-backend/internal/service"
	"datagen-backend/internal/sources"
	"datagen-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// .env 只是本地开发的便利，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// 没有凭证时 model 保持 nil：mock 路径返回配置错误，分类器只用关键词
	var model llm.StructuredModel
	if cfg.AIConfigured() {
		chat, err := llm.NewChatModel(context.Background(), cfg.LLM)
		if err != nil {
			logger.Errorf("Failed to create chat model, AI features disabled: %v", err)
		} else {
			model = llm.NewClient(chat, cfg.LLM.Provider)
		}
	} else {
		logger.Warn("No AI credential configured, mock generation disabled and classification uses keyword heuristics")
	}

	// 初始化服务
	registry := sources.NewRegistry(cfg.Sources)
	fetcher := service.NewRealDataFetcher(classifier.New(model, cfg.Generation.ClassifyTimeout), registry)
	generator := service.NewMockDataGenerator(model, cfg.Generation)
	dataService := service.NewDataService(cfg.Generation, generator, fetcher)

	// 初始化处理器
	generateHandler := handler.NewGenerateHandler(dataService, cfg.Generation.HeartbeatInterval)
	downloadHandler := handler.NewDownloadHandler()
	metaHandler := handler.NewMetaHandler(model != nil, registry.Labels())

	// 创建路由
	router := setupRouter(cfg, generateHandler, downloadHandler, metaHandler)

	// 创建HTTP服务器
	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// 启动服务器
	go func() {
		logger.Infof("服务器启动在端口 %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待信号优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("服务器正在关闭...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("服务器关闭失败: %v", err)
	}
	logger.Info("服务器已关闭")
}

func setupRouter(cfg *config.Config, gen *handler.GenerateHandler, dl *handler.DownloadHandler, meta *handler.MetaHandler) *gin.Engine {
	// 设置gin模式
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// 中间件
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS配置
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}
	router.Use(cors.New(corsConfig))

	handler.RegisterRoutes(router, gen, dl, meta)

	return router
}
