package integrations

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/constants"
)

// DriveStateStore Drive轮询器的共享状态接口，由Redis实现
// 去重集合防止同一文件重复下载；轮询锁防止多实例同时扫描同一文件夹
type DriveStateStore interface {
	// CheckAndAddDriveFileID 原子地检查并登记文件ID，返回之前是否已处理
	CheckAndAddDriveFileID(ctx context.Context, fileID string) (bool, error)

	// AcquireLock 尝试获取分布式锁，成功时返回锁持有者标识，未获取到返回空串
	AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error)

	// ReleaseLock 释放自己持有的分布式锁
	ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error)
}

// DriveIngestFunc 新文件的摄入回调
type DriveIngestFunc func(ctx context.Context, filename string, reader io.Reader, size int64) error

// DrivePoller 轮询Google Drive文件夹，把新出现的候选人文件送入摄入管线
type DrivePoller struct {
	service      *drive.Service
	folderID     string
	pollInterval time.Duration
	state        DriveStateStore
	ingest       DriveIngestFunc
	logger       *zerolog.Logger
}

// NewDrivePoller 使用服务账号凭据创建Drive轮询器
func NewDrivePoller(ctx context.Context, cfg *config.DriveConfig, folderID string, state DriveStateStore, ingest DriveIngestFunc, logger *zerolog.Logger) (*DrivePoller, error) {
	if folderID == "" {
		return nil, fmt.Errorf("Drive文件夹ID不能为空")
	}
	if state == nil {
		return nil, fmt.Errorf("状态存储不能为空")
	}
	if ingest == nil {
		return nil, fmt.Errorf("摄入回调不能为空")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	credBytes, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("读取服务账号凭据失败: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credBytes, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("解析服务账号凭据失败: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("创建Drive服务失败: %w", err)
	}

	interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &DrivePoller{
		service:      srv,
		folderID:     folderID,
		pollInterval: interval,
		state:        state,
		ingest:       ingest,
		logger:       logger,
	}, nil
}

// Run 启动轮询循环，直到ctx取消
// 单轮失败后按固定退避时间重试，不会终止循环
func (p *DrivePoller) Run(ctx context.Context) {
	p.logger.Info().
		Str("folder_id", p.folderID).
		Dur("interval", p.pollInterval).
		Msg("Drive轮询器已启动")

	for {
		wait := p.pollInterval
		if err := p.pollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error().Err(err).Msg("Drive轮询失败，退避后重试")
			wait = constants.DrivePollErrorBackoff
		}

		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Drive轮询器已停止")
			return
		case <-time.After(wait):
		}
	}
	p.logger.Info().Msg("Drive轮询器已停止")
}

// pollOnce 执行一轮文件夹扫描
// 轮询锁保证多实例部署时同一时刻只有一个实例扫描文件夹
func (p *DrivePoller) pollOnce(ctx context.Context) error {
	lockValue, err := p.state.AcquireLock(ctx, constants.KeyDrivePollLock, p.pollInterval)
	if err != nil {
		return fmt.Errorf("获取Drive轮询锁失败: %w", err)
	}
	if lockValue == "" {
		p.logger.Debug().Msg("Drive轮询锁被其他实例持有，跳过本轮")
		return nil
	}
	defer func() {
		if _, relErr := p.state.ReleaseLock(context.WithoutCancel(ctx), constants.KeyDrivePollLock, lockValue); relErr != nil {
			p.logger.Warn().Err(relErr).Msg("释放Drive轮询锁失败")
		}
	}()

	query := fmt.Sprintf("'%s' in parents and trashed = false", p.folderID)

	var pageToken string
	for {
		call := p.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, size, mimeType)").
			PageSize(100).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Do()
		if err != nil {
			return fmt.Errorf("列出Drive文件失败: %w", err)
		}

		for _, f := range fileList.Files {
			if err := p.handleFile(ctx, f); err != nil {
				if ctx.Err() != nil {
					return err
				}
				p.logger.Error().Err(err).Str("file_id", f.Id).Str("name", f.Name).Msg("处理Drive文件失败")
			}
		}

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			return nil
		}
	}
}

// handleFile 处理单个Drive文件：扩展名过滤、ID去重、下载并摄入
func (p *DrivePoller) handleFile(ctx context.Context, f *drive.File) error {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !constants.SupportedExtensions[ext] {
		return nil
	}

	seen, err := p.state.CheckAndAddDriveFileID(ctx, f.Id)
	if err != nil {
		return fmt.Errorf("Drive文件ID去重检查失败: %w", err)
	}
	if seen {
		return nil
	}

	resp, err := p.service.Files.Get(f.Id).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("下载Drive文件失败: %w", err)
	}
	defer resp.Body.Close()

	p.logger.Info().Str("file_id", f.Id).Str("name", f.Name).Msg("发现新的Drive文件")
	if err := p.ingest(ctx, f.Name, resp.Body, f.Size); err != nil {
		return fmt.Errorf("摄入Drive文件失败: %w", err)
	}
	return nil
}
