package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
	"github.com/spf13/pflag"

	"candidate-parser-go/internal/api/handler"
	"candidate-parser-go/internal/api/router"
	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/integrations"
	appCoreLogger "candidate-parser-go/internal/logger"
	"candidate-parser-go/internal/outbox"
	"candidate-parser-go/internal/processor"
	"candidate-parser-go/internal/storage"
	"candidate-parser-go/internal/watcher"
)

var (
	version     = "1.0.0"               //nolint:gochecknoglobals
	serviceName = "candidate-parser-go" //nolint:gochecknoglobals
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	initLogger(cfg)
	glog.Infof("%s v%s 配置加载成功", serviceName, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	if storageManager.RabbitMQ == nil || storageManager.MySQL == nil ||
		storageManager.MinIO == nil || storageManager.Redis == nil {
		glog.Fatal("RabbitMQ/MySQL/MinIO/Redis均为必需组件，请检查配置")
	}

	if err := storageManager.RabbitMQ.SetupCandidateTopology(); err != nil {
		glog.Fatalf("声明消息拓扑失败: %v", err)
	}
	glog.Info("消息拓扑声明成功")

	// 启动outbox消息中继
	relayLogger := log.New(appCoreLogger.Logger, "[MessageRelay] ", log.LstdFlags|log.Lshortfile)
	messageRelay := outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, relayLogger,
		outbox.WithPollingInterval(time.Duration(cfg.Outbox.PollIntervalSeconds)*time.Second),
		outbox.WithBatchSize(cfg.Outbox.BatchSize),
	)
	messageRelay.Start()
	glog.Info("消息中继服务已启动")

	candidateService, err := processor.NewCandidateService(ctx, cfg, storageManager, &appCoreLogger.Logger)
	if err != nil {
		glog.Fatalf("初始化候选人服务失败: %v", err)
	}
	glog.Info("候选人服务初始化成功")

	candidateHandler := handler.NewCandidateHandler(cfg, storageManager, candidateService)

	// 启动解析与投递消费者
	parseStop, err := candidateHandler.StartParseConsumer(ctx)
	if err != nil {
		glog.Fatalf("启动解析消费者失败: %v", err)
	}
	deliveryStop, err := candidateHandler.StartDeliveryConsumer(ctx)
	if err != nil {
		glog.Fatalf("启动投递消费者失败: %v", err)
	}
	glog.Info("所有消费者已启动")

	// 摄入回调：watcher与Drive轮询器共用。重复文件对自动来源不是错误
	ingestFn := func(ingestCtx context.Context, filename string, reader io.Reader, size int64) error {
		_, ingestErr := candidateService.IngestCandidateFile(ingestCtx, filename, "watcher", reader, size)
		if errors.Is(ingestErr, processor.ErrDuplicateFile) {
			return nil
		}
		return ingestErr
	}

	// 启动本地目录监视器
	dirWatcher, err := watcher.New(cfg.Watcher.Folder, ingestFn, &appCoreLogger.Logger)
	if err != nil {
		glog.Fatalf("创建目录监视器失败: %v", err)
	}
	go func() {
		if watchErr := dirWatcher.Run(ctx); watchErr != nil {
			glog.Errorf("目录监视器退出: %v", watchErr)
		}
	}()

	// 启动Google Drive轮询器（如果配置了）
	if folderID := cfg.ResolvedDriveFolderID(); folderID != "" && cfg.Drive.CredentialsFile != "" {
		driveIngestFn := func(ingestCtx context.Context, filename string, reader io.Reader, size int64) error {
			_, ingestErr := candidateService.IngestCandidateFile(ingestCtx, filename, "drive", reader, size)
			if errors.Is(ingestErr, processor.ErrDuplicateFile) {
				return nil
			}
			return ingestErr
		}
		drivePoller, driveErr := integrations.NewDrivePoller(ctx, &cfg.Drive, folderID, storageManager.Redis, driveIngestFn, &appCoreLogger.Logger)
		if driveErr != nil {
			glog.Errorf("创建Drive轮询器失败，跳过Drive来源: %v", driveErr)
		} else {
			go drivePoller.Run(ctx)
		}
	} else {
		glog.Info("Drive来源未配置，跳过")
	}

	// 启动HTTP服务
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, reqCtx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(reqCtx.Method()), string(reqCtx.Path()))
		reqCtx.Next(c)
		glog.CtxInfof(c, "Response: status %d", reqCtx.Response.StatusCode())
	})

	router.RegisterRoutes(h, candidateHandler, cfg.Server.APIKey)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)
	go func() {
		if runErr := h.Run(); runErr != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", runErr)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	messageRelay.Stop()
	close(parseStop)
	close(deliveryStop)
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Errorf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

// initLogger 初始化zerolog全局日志并接入Hertz的日志系统
func initLogger(cfg *config.Config) {
	appCoreLogger.Init(appCoreLogger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	})

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
	if cfg.Logger.Level == "debug" {
		glog.SetLevel(glog.LevelDebug)
	} else {
		glog.SetLevel(glog.LevelInfo)
	}
}
