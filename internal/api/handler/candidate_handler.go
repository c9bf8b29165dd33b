package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/constants"
	"candidate-parser-go/internal/logger"
	"candidate-parser-go/internal/processor"
	"candidate-parser-go/internal/storage"
	"candidate-parser-go/internal/types"
)

// presignedURLExpiry 原始文件预签名下载URL的有效期
const presignedURLExpiry = 15 * time.Minute

// CandidateHandler 候选人处理器，负责协调HTTP入口与消费者的处理流程
type CandidateHandler struct {
	cfg     *config.Config
	storage *storage.Storage
	service processor.CandidateService
}

// NewCandidateHandler 创建候选人处理器
func NewCandidateHandler(cfg *config.Config, storageManager *storage.Storage, service processor.CandidateService) *CandidateHandler {
	return &CandidateHandler{
		cfg:     cfg,
		storage: storageManager,
		service: service,
	}
}

// CandidateUploadResponse 候选人文件上传响应
type CandidateUploadResponse struct {
	SubmissionUUID string `json:"submission_uuid"`
	Status         string `json:"status"`
}

// HandleCandidateUpload 处理候选人文件上传请求
func (h *CandidateHandler) HandleCandidateUpload(ctx context.Context, reader io.Reader, fileSize int64, filename, sourceChannel string) (*CandidateUploadResponse, error) {
	result, err := h.service.IngestCandidateFile(ctx, filename, sourceChannel, reader, fileSize)
	if errors.Is(err, processor.ErrDuplicateFile) {
		return &CandidateUploadResponse{
			SubmissionUUID: "",
			Status:         constants.StatusDuplicateSkipped,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("摄入候选人文件失败: %w", err)
	}

	return &CandidateUploadResponse{
		SubmissionUUID: result.SubmissionUUID,
		Status:         "SUBMITTED_FOR_PROCESSING",
	}, nil
}

// GetCandidate 按candidate_id查询候选人档案
func (h *CandidateHandler) GetCandidate(ctx context.Context, candidateID string) (*types.CandidateRecord, error) {
	profile, err := h.storage.MySQL.GetCandidateProfile(ctx, candidateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询候选人档案失败: %w", err)
	}
	return profile.ToRecord(), nil
}

// CandidateListResponse 候选人分页列表响应
type CandidateListResponse struct {
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	Candidates []*types.CandidateRecord `json:"candidates"`
}

// ListCandidates 按更新时间倒序分页查询候选人档案
func (h *CandidateHandler) ListCandidates(ctx context.Context, page, pageSize int) (*CandidateListResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	profiles, total, err := h.storage.MySQL.ListCandidateProfiles(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("查询候选人列表失败: %w", err)
	}

	records := make([]*types.CandidateRecord, 0, len(profiles))
	for i := range profiles {
		records = append(records, profiles[i].ToRecord())
	}

	return &CandidateListResponse{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		Candidates: records,
	}, nil
}

// SubmissionStatusResponse 摄入记录状态查询响应
type SubmissionStatusResponse struct {
	SubmissionUUID   string `json:"submission_uuid"`
	ProcessingStatus string `json:"processing_status"`
	CandidateID      string `json:"candidate_id,omitempty"`
	OriginalFilename string `json:"original_filename"`
	SourceChannel    string `json:"source_channel"`
	ErrorMessage     string `json:"error_message,omitempty"`
	OriginalFileURL  string `json:"original_file_url,omitempty"`
}

// GetSubmissionStatus 按submission_uuid查询摄入记录的处理状态
// 附带原始文件的预签名下载URL（生成失败时省略该字段）
func (h *CandidateHandler) GetSubmissionStatus(ctx context.Context, submissionUUID string) (*SubmissionStatusResponse, error) {
	submission, err := h.storage.MySQL.GetSubmissionByUUID(ctx, submissionUUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询摄入记录失败: %w", err)
	}

	resp := &SubmissionStatusResponse{
		SubmissionUUID:   submission.SubmissionUUID,
		ProcessingStatus: submission.ProcessingStatus,
		OriginalFilename: submission.OriginalFilename,
		SourceChannel:    submission.SourceChannel,
		ErrorMessage:     submission.ErrorMessage,
	}
	if submission.CandidateID != nil {
		resp.CandidateID = *submission.CandidateID
	}
	if submission.OriginalObjectKey != "" {
		if url, urlErr := h.storage.MinIO.GetPresignedURL(ctx, submission.OriginalObjectKey, presignedURLExpiry); urlErr == nil {
			resp.OriginalFileURL = url
		} else {
			logger.Warn().Err(urlErr).Str("submission_uuid", submissionUUID).Msg("生成预签名URL失败")
		}
	}
	return resp, nil
}

// StartParseConsumer 启动摄入事件消费者
// 关闭返回的通道可以停止消费者
func (h *CandidateHandler) StartParseConsumer(ctx context.Context) (chan struct{}, error) {
	return h.storage.RabbitMQ.StartConsumer(
		h.cfg.RabbitMQ.RawCandidateQueue,
		h.cfg.RabbitMQ.PrefetchCount,
		func(body []byte) bool {
			var message storage.CandidateUploadMessage
			if err := json.Unmarshal(body, &message); err != nil {
				logger.Error().Err(err).Msg("反序列化摄入事件失败，丢弃消息")
				return true // 坏消息重新入队没有意义
			}
			if err := h.service.ProcessUploadedCandidate(ctx, message); err != nil {
				logger.Error().Err(err).Str("submission_uuid", message.SubmissionUUID).Msg("处理摄入事件失败")
				// 状态机保证了重试的幂等性，nack后重新入队
				return false
			}
			return true
		},
	)
}

// StartDeliveryConsumer 启动投递事件消费者
func (h *CandidateHandler) StartDeliveryConsumer(ctx context.Context) (chan struct{}, error) {
	return h.storage.RabbitMQ.StartConsumer(
		h.cfg.RabbitMQ.DeliveryQueue,
		h.cfg.RabbitMQ.PrefetchCount,
		func(body []byte) bool {
			var message storage.CandidateParsedMessage
			if err := json.Unmarshal(body, &message); err != nil {
				logger.Error().Err(err).Msg("反序列化投递事件失败，丢弃消息")
				return true
			}
			if err := h.service.ProcessDelivery(ctx, message); err != nil {
				logger.Error().Err(err).Str("submission_uuid", message.SubmissionUUID).Msg("处理投递事件失败")
				return false
			}
			return true
		},
	)
}
