package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/types"
)

// ObjectStorage 对象存储接口
type ObjectStorage interface {
	// UploadOriginalFileStreaming 流式上传原始文件并同时计算MD5
	UploadOriginalFileStreaming(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error)

	// GetOriginalFile 下载原始候选人文件
	GetOriginalFile(ctx context.Context, objectKey string) ([]byte, error)

	// UploadCandidateRecord 归档解析结果JSON，返回对象键
	UploadCandidateRecord(ctx context.Context, submissionUUID string, record *types.CandidateRecord) (string, error)

	// GetCandidateRecord 下载解析结果JSON
	GetCandidateRecord(ctx context.Context, objectKey string) (*types.CandidateRecord, error)

	// GetPresignedURL 获取原始文件的预签名URL
	GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)

	// DeleteOriginalFile 删除原始文件
	DeleteOriginalFile(ctx context.Context, objectKey string) error
}

var _ ObjectStorage = (*MinIO)(nil)

// MinIO 提供对象存储功能
// 原始文件与解析结果分桶存放，各自独立配置生命周期
type MinIO struct {
	client          *minio.Client
	cfg             *config.MinIOConfig
	originalsBucket string
	recordsBucket   string
	logger          *log.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶就绪
func NewMinIO(cfg *config.MinIOConfig, logger *log.Logger) (*MinIO, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	logger.Printf("[MinIO] Initializing client: endpoint=%s, originalsBucket=%s, recordsBucket=%s",
		cfg.Endpoint, cfg.OriginalsBucket, cfg.ParsedRecordsBucket)

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		logger.Printf("[MinIO] Initialization failed: %v", err)
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	originalsBucket := cfg.OriginalsBucket
	if originalsBucket == "" {
		originalsBucket = "candidate-originals"
	}
	recordsBucket := cfg.ParsedRecordsBucket
	if recordsBucket == "" {
		recordsBucket = "candidate-parsed"
	}

	m := &MinIO{
		client:          client,
		cfg:             cfg,
		originalsBucket: originalsBucket,
		recordsBucket:   recordsBucket,
		logger:          logger,
	}

	if err := m.ensureBucketExists(originalsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保原始文件存储桶 %s 存在失败: %w", originalsBucket, err)
	}
	if err := m.ensureBucketExists(recordsBucket, cfg.Location); err != nil {
		return nil, fmt.Errorf("确保解析结果存储桶 %s 存在失败: %w", recordsBucket, err)
	}

	if cfg.OriginalFileExpireDays > 0 || cfg.ParsedRecordExpireDays > 0 {
		if err := m.setupLifecycleRules(context.Background()); err != nil {
			logger.Printf("[MinIO] Warning: failed to set up lifecycle rules: %v", err)
		}
	}

	logger.Printf("[MinIO] Client initialized successfully for endpoint: %s", cfg.Endpoint)
	return m, nil
}

// ensureBucketExists 确保存储桶存在，不存在则创建
func (m *MinIO) ensureBucketExists(bucketName, location string) error {
	exists, err := m.client.BucketExists(context.Background(), bucketName)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", bucketName, err)
	}
	if !exists {
		m.logger.Printf("[MinIO] Bucket %s does not exist, creating...", bucketName)
		if err := m.client.MakeBucket(context.Background(), bucketName, minio.MakeBucketOptions{Region: location}); err != nil {
			return fmt.Errorf("创建存储桶 %s 失败: %w", bucketName, err)
		}
	}
	return nil
}

// setupLifecycleRules 为两个存储桶设置对象过期规则
func (m *MinIO) setupLifecycleRules(ctx context.Context) error {
	if m.cfg.OriginalFileExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.originalsBucket, "expire-originals", m.cfg.OriginalFileExpireDays); err != nil {
			return fmt.Errorf("为原始文件存储桶 %s 设置生命周期失败: %w", m.originalsBucket, err)
		}
	}
	if m.cfg.ParsedRecordExpireDays > 0 {
		if err := m.setupBucketLifecycle(ctx, m.recordsBucket, "expire-parsed-records", m.cfg.ParsedRecordExpireDays); err != nil {
			return fmt.Errorf("为解析结果存储桶 %s 设置生命周期失败: %w", m.recordsBucket, err)
		}
	}
	return nil
}

func (m *MinIO) setupBucketLifecycle(ctx context.Context, bucketName, ruleID string, expiryDays int) error {
	lcConfig := lifecycle.NewConfiguration()
	lcConfig.Rules = []lifecycle.Rule{
		{
			ID:     ruleID,
			Status: "Enabled",
			Expiration: lifecycle.Expiration{
				Days: lifecycle.ExpirationDays(expiryDays),
			},
		},
	}

	if err := m.client.SetBucketLifecycle(ctx, bucketName, lcConfig); err != nil {
		m.logger.Printf("[MinIO] Error setting lifecycle for bucket %s: %v", bucketName, err)
		return err
	}
	m.logger.Printf("[MinIO] Lifecycle rule %s set for bucket %s (expire after %d days)", ruleID, bucketName, expiryDays)
	return nil
}

// UploadOriginalFileStreaming 流式上传原始文件并同时计算MD5
// 对象键形如 candidate/{submissionUUID}/original.pdf
// 返回: objectKey, md5Hex, error
func (m *MinIO) UploadOriginalFileStreaming(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, string, error) {
	objectName := fmt.Sprintf("candidate/%s/original%s", submissionUUID, fileExt)
	contentType := getContentType(fileExt)

	md5Hash := md5.New()
	teeReader := io.TeeReader(reader, md5Hash)

	info, err := m.client.PutObject(ctx, m.originalsBucket, objectName, teeReader,
		fileSize, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", "", fmt.Errorf("流式上传文件到MinIO失败: %w", err)
	}

	md5Hex := hex.EncodeToString(md5Hash.Sum(nil))
	m.logger.Printf("[MinIO] Uploaded %s, ETag: %s, Size: %d, MD5: %s", objectName, info.ETag, info.Size, md5Hex)

	return objectName, md5Hex, nil
}

// GetOriginalFile 从originalsBucket下载原始文件
func (m *MinIO) GetOriginalFile(ctx context.Context, objectKey string) ([]byte, error) {
	return m.downloadObject(ctx, m.originalsBucket, objectKey)
}

// UploadCandidateRecord 将解析结果序列化为JSON归档到recordsBucket
// 对象键形如 candidate/{submissionUUID}/record.json
func (m *MinIO) UploadCandidateRecord(ctx context.Context, submissionUUID string, record *types.CandidateRecord) (string, error) {
	objectName := fmt.Sprintf("candidate/%s/record.json", submissionUUID)

	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("序列化候选人记录失败: %w", err)
	}

	_, err = m.client.PutObject(ctx, m.recordsBucket, objectName, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", fmt.Errorf("上传候选人记录 %s 到存储桶 %s 失败: %w", objectName, m.recordsBucket, err)
	}
	return objectName, nil
}

// GetCandidateRecord 从recordsBucket下载并反序列化解析结果
func (m *MinIO) GetCandidateRecord(ctx context.Context, objectKey string) (*types.CandidateRecord, error) {
	data, err := m.downloadObject(ctx, m.recordsBucket, objectKey)
	if err != nil {
		return nil, err
	}

	record := types.NewCandidateRecord()
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("反序列化候选人记录 %s 失败: %w", objectKey, err)
	}
	return record, nil
}

// downloadObject 下载指定存储桶中的对象
func (m *MinIO) downloadObject(ctx context.Context, bucketName, objectKey string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucketName, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 失败: %w", bucketName, objectKey, err)
	}
	defer obj.Close()

	stat, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("获取对象 %s/%s 状态失败: %w", bucketName, objectKey, err)
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s/%s 数据失败: %w", bucketName, objectKey, err)
	}
	m.logger.Printf("[MinIO] Downloaded %d bytes from %s/%s (ContentType=%s)", len(data), bucketName, objectKey, stat.ContentType)
	return data, nil
}

// GetPresignedURL 获取原始文件的预签名URL
func (m *MinIO) GetPresignedURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	presignedURL, err := m.client.PresignedGetObject(ctx, m.originalsBucket, objectKey, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("生成MinIO预签名URL失败: %w", err)
	}
	return presignedURL.String(), nil
}

// DeleteOriginalFile 删除原始文件
func (m *MinIO) DeleteOriginalFile(ctx context.Context, objectKey string) error {
	if err := m.client.RemoveObject(ctx, m.originalsBucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", objectKey, err)
	}
	return nil
}

// getContentType 根据扩展名推断内容类型
func getContentType(ext string) string {
	ext = strings.ToLower(ext)
	switch ext {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
