package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/constants"
	"candidate-parser-go/internal/integrations"
	"candidate-parser-go/internal/logger"
	"candidate-parser-go/internal/parser"
	"candidate-parser-go/internal/storage"
	"candidate-parser-go/internal/storage/models"
	"candidate-parser-go/internal/tracing"
	"candidate-parser-go/internal/types"
)

// 定义公共错误类型，用于整个服务
var (
	ErrStorageNotInit   = errors.New("storage is not initialized")   // 存储未初始化错误
	ErrExtractorNotInit = errors.New("extractor is not initialized") // 提取器未初始化错误
	ErrDuplicateFile    = errors.New("duplicate file detected")      // 文件内容重复错误
	ErrNoDeliverySink   = errors.New("no delivery sink configured")  // 没有任何可用的投递出口
)

// 定义tracer
var tracer = otel.Tracer("processor")

// IngestResult 文件摄入的结果
type IngestResult struct {
	SubmissionUUID string // 摄入记录UUID，重复文件时为空
	Duplicate      bool   // 文件内容是否重复
	ObjectKey      string // 原始文件在MinIO中的对象路径
	RawFileMD5     string // 原始文件MD5
}

// CandidateService 定义候选人处理服务的接口
// 提供统一的服务层接口，隐藏内部实现细节
type CandidateService interface {
	// IngestCandidateFile 摄入一份候选人文件：去重、归档并发布解析事件
	IngestCandidateFile(ctx context.Context, filename, sourceChannel string, reader io.Reader, size int64) (*IngestResult, error)

	// ProcessUploadedCandidate 消费摄入事件：解析文档并持久化候选人档案
	ProcessUploadedCandidate(ctx context.Context, message storage.CandidateUploadMessage) error

	// ProcessDelivery 消费解析完成事件：将档案投递到配置的出口
	ProcessDelivery(ctx context.Context, message storage.CandidateParsedMessage) error
}

// candidateServiceImpl 是CandidateService的实现
// 采用Facade模式，内部持有所有需要的组件，但不暴露给外部
type candidateServiceImpl struct {
	components Components
	settings   Settings
	pipeline   *CandidatePipeline
	config     *config.Config
	logger     *zerolog.Logger
}

// NewCandidateService 创建新的候选人服务实例
// componentOpts可以覆盖默认构建的组件，测试时注入fake实现
func NewCandidateService(ctx context.Context, cfg *config.Config, storageManager *storage.Storage, zlog *zerolog.Logger, componentOpts ...ComponentOpt) (CandidateService, error) {
	if zlog == nil {
		defaultLogger := zerolog.Nop()
		zlog = &defaultLogger
	}

	settings := Settings{}
	settingOpts := []SettingOpt{
		WithsetUsegenerative(cfg.Llama.ModelPath != ""),
		WithsetDebug(cfg.Logger.Level == "debug"),
		WithsetLogger(log.New(os.Stdout, "[Pipeline] ", log.LstdFlags)),
	}
	for _, opt := range settingOpts {
		opt(&settings)
	}

	components, err := createComponents(ctx, cfg, storageManager, settings, zlog)
	if err != nil {
		return nil, fmt.Errorf("failed to create components: %w", err)
	}
	for _, opt := range componentOpts {
		opt(&components)
	}

	pipeline, err := NewCandidatePipeline(
		components.TextExtractor,
		components.FieldExtractor,
		components.Generative,
		settings.Logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}

	return &candidateServiceImpl{
		components: components,
		settings:   settings,
		pipeline:   pipeline,
		config:     cfg,
		logger:     zlog,
	}, nil
}

// createComponents 创建所有必要的组件
func createComponents(ctx context.Context, cfg *config.Config, storageManager *storage.Storage, settings Settings, zlog *zerolog.Logger) (Components, error) {
	opts := []ComponentOpt{
		WithcompStorage(storageManager),
	}

	// 创建文本提取器，PDF直接提取失败或文本过短时回退OCR
	extractorOptions := []parser.TextExtractorOption{
		parser.WithOCREngine(parser.NewGosseractEngine()),
	}
	if settings.Debug {
		stdLogger := log.New(os.Stdout, "[TextExtractor] ", log.LstdFlags)
		extractorOptions = append(extractorOptions, parser.WithExtractorLogger(stdLogger))
	}
	textExtractor, err := parser.NewTextExtractor(ctx, extractorOptions...)
	if err != nil {
		return Components{}, fmt.Errorf("创建文本提取器失败: %w", err)
	}
	opts = append(opts, WithcompTextextractor(textExtractor))

	// 创建规则字段抽取器
	opts = append(opts, WithcompFieldextractor(parser.NewDeterministicExtractor(
		log.New(os.Stdout, "[FieldExtractor] ", log.LstdFlags))))

	// 创建生成式抽取器（如果配置了本地模型）
	if settings.UseGenerative {
		model, modelErr := parser.NewLlamaCppModel(&cfg.Llama)
		if modelErr != nil {
			zlog.Warn().Err(modelErr).Msg("加载本地模型失败，退化为纯规则抽取")
		} else {
			stdLogger := log.New(os.Stdout, "[LlamaExtractor] ", log.LstdFlags)
			opts = append(opts, WithcompGenerative(parser.NewLlamaExtractor(model,
				parser.WithMaxTokens(cfg.Llama.MaxTokens),
				parser.WithLlamaLogger(stdLogger),
			)))
		}
	}

	// 创建Sheets投递出口（如果配置了）
	if cfg.SheetsConfigured() {
		sheets, sheetsErr := integrations.NewSheetsClient(ctx, &cfg.Sheets)
		if sheetsErr != nil {
			zlog.Warn().Err(sheetsErr).Msg("创建Sheets客户端失败，将使用降级出口")
		} else {
			opts = append(opts, WithcompSheets(sheets))
		}
	}

	// 创建门户投递出口（如果配置了）
	if cfg.PortalConfigured() {
		opts = append(opts, WithcompPortal(integrations.NewPortalClient(&cfg.Portal)))
	}

	// 本地Excel工作簿作为降级出口始终可用
	opts = append(opts, WithcompExcel(integrations.NewExcelWorkbook(&cfg.Excel)))

	components := Components{}
	for _, opt := range opts {
		opt(&components)
	}
	return components, nil
}

// IngestCandidateFile 摄入一份候选人文件
// 流程：流式上传MinIO并计算MD5 -> Redis原子去重 -> 写摄入记录 -> 发布candidate.uploaded
// 重复文件会删除刚上传的对象并返回ErrDuplicateFile，不产生任何下游事件
func (cs *candidateServiceImpl) IngestCandidateFile(ctx context.Context, filename, sourceChannel string, reader io.Reader, size int64) (*IngestResult, error) {
	ctx, span := tracer.Start(ctx, "IngestCandidateFile",
		trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	span.SetAttributes(
		attribute.String("source_channel", sourceChannel),
		attribute.String("original_filename", tracing.SafeFilename(filename)),
	)

	if cs.components.Storage == nil || cs.components.Storage.MinIO == nil {
		tracing.RecordError(span, ErrStorageNotInit, tracing.ErrorTypeInternal)
		return nil, ErrStorageNotInit
	}

	submissionUUID := uuid.New().String()
	ctx = logger.WithSubmissionUUID(ctx, submissionUUID)
	zlog := logger.FromContext(ctx)

	fileExt := filepath.Ext(filename)
	objectKey, md5Hex, err := cs.components.Storage.MinIO.UploadOriginalFileStreaming(ctx, submissionUUID, fileExt, reader, size)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, NewStoreError(submissionUUID, err.Error())
	}
	span.SetAttributes(attribute.String("raw_file_md5", md5Hex))

	// 原子去重：同一文件内容只允许进入管线一次
	exists, err := cs.components.Storage.Redis.CheckAndAddRawFileMD5(ctx, md5Hex)
	if err != nil {
		zlog.Warn().Err(err).Msg("Redis去重检查失败，将继续处理，但文件去重可能失效")
	} else if exists {
		zlog.Info().Str("md5", md5Hex).Str("filename", filename).Msg("检测到重复文件，跳过摄入")
		span.SetAttributes(attribute.Bool("duplicate_file", true))
		// 查出重复文件归属的候选人，便于追溯
		if prevID, idErr := cs.components.Storage.Redis.GetCandidateIDByMD5(ctx, md5Hex); idErr == nil && prevID != "" {
			zlog.Info().Str("candidate_id", prevID).Msg("重复文件归属的候选人")
			span.SetAttributes(attribute.String("candidate_id", prevID))
		}
		// 清理刚上传的冗余对象
		if delErr := cs.components.Storage.MinIO.DeleteOriginalFile(ctx, objectKey); delErr != nil {
			zlog.Warn().Err(delErr).Str("object_key", objectKey).Msg("删除重复文件对象失败")
		}
		span.SetStatus(codes.Ok, "duplicate skipped")
		return &IngestResult{Duplicate: true, RawFileMD5: md5Hex}, ErrDuplicateFile
	}

	submission := &models.IngestSubmission{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: time.Now(),
		SourceChannel:       sourceChannel,
		OriginalFilename:    filename,
		OriginalObjectKey:   objectKey,
		RawFileMD5:          md5Hex,
		ProcessingStatus:    constants.StatusPendingParsing,
	}
	if err := cs.components.Storage.MySQL.CreateIngestSubmission(ctx, submission); err != nil {
		cs.rollbackIngest(ctx, md5Hex, objectKey)
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, NewDatabaseError(submissionUUID, err.Error())
	}

	uploadMessage := &storage.CandidateUploadMessage{
		SubmissionUUID:      submissionUUID,
		SubmissionTimestamp: submission.SubmissionTimestamp,
		SourceChannel:       sourceChannel,
		OriginalFilename:    filename,
		OriginalObjectKey:   objectKey,
		RawFileMD5:          md5Hex,
	}
	if err := cs.components.Storage.RabbitMQ.PublishCandidateUploaded(ctx, uploadMessage); err != nil {
		// 发布失败时回滚去重记录，允许文件重新提交
		cs.rollbackIngest(ctx, md5Hex, objectKey)
		if updErr := cs.components.Storage.MySQL.UpdateSubmissionStatus(ctx, submissionUUID, constants.StatusParseFailed); updErr != nil {
			zlog.Error().Err(updErr).Msg("回滚摄入状态失败")
		}
		tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeRabbitMQ,
			attribute.String("messaging.routing_key", cs.config.RabbitMQ.UploadedRoutingKey))
		return nil, NewPublishError(submissionUUID, err.Error())
	}

	zlog.Info().Str("filename", filename).Str("object_key", objectKey).Msg("文件摄入成功")
	span.SetStatus(codes.Ok, "ingested")
	return &IngestResult{
		SubmissionUUID: submissionUUID,
		ObjectKey:      objectKey,
		RawFileMD5:     md5Hex,
	}, nil
}

// rollbackIngest 摄入失败时清理去重记录和已上传对象
func (cs *candidateServiceImpl) rollbackIngest(ctx context.Context, md5Hex, objectKey string) {
	zlog := logger.FromContext(ctx)
	if err := cs.components.Storage.Redis.RemoveRawFileMD5(ctx, md5Hex); err != nil {
		zlog.Warn().Err(err).Str("md5", md5Hex).Msg("回滚去重记录失败")
	}
	if err := cs.components.Storage.MinIO.DeleteOriginalFile(ctx, objectKey); err != nil {
		zlog.Warn().Err(err).Str("object_key", objectKey).Msg("回滚已上传对象失败")
	}
}

// ProcessUploadedCandidate 处理摄入事件
// 实现CandidateService接口
func (cs *candidateServiceImpl) ProcessUploadedCandidate(ctx context.Context, message storage.CandidateUploadMessage) error {
	ctx, span := tracer.Start(ctx, "ProcessUploadedCandidate",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("submission_uuid", message.SubmissionUUID),
		attribute.String("source_channel", message.SourceChannel),
	)

	ctx = logger.WithSubmissionUUID(ctx, message.SubmissionUUID)
	zlog := logger.FromContext(ctx)

	zlog.Debug().Msg("开始处理摄入的候选人文件")

	if cs.components.Storage == nil {
		tracing.RecordError(span, ErrStorageNotInit, tracing.ErrorTypeInternal)
		return ErrStorageNotInit
	}
	if cs.components.TextExtractor == nil {
		tracing.RecordError(span, ErrExtractorNotInit, tracing.ErrorTypeInternal)
		return ErrExtractorNotInit
	}

	// 使用数据库事务确保操作的原子性
	err := cs.components.Storage.MySQL.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 加行锁读取摄入记录，检查状态是否允许解析（消费幂等）
		var submission models.IngestSubmission
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("submission_uuid = ?", message.SubmissionUUID).
			First(&submission).Error; err != nil {
			zlog.Error().Err(err).Msg("读取摄入记录失败")
			return fmt.Errorf("读取摄入记录失败: %w", err)
		}
		if !constants.IsStatusAllowed(submission.ProcessingStatus, constants.AllowedStatusesForParsing) {
			zlog.Info().Str("status", submission.ProcessingStatus).Msg("当前状态不允许解析，跳过重复消息")
			span.SetAttributes(attribute.String("skip_reason", "status_not_allowed"))
			return nil
		}

		if err := tx.Model(&models.IngestSubmission{}).
			Where("submission_uuid = ?", message.SubmissionUUID).
			Update("processing_status", constants.StatusParsing).Error; err != nil {
			return fmt.Errorf("更新状态为%s失败: %w", constants.StatusParsing, err)
		}

		// 2. 下载并解析 - 创建子span
		parseCtx, parseSpan := tracer.Start(ctx, "ParseCandidateDocument")
		record, err := cs.downloadAndParse(parseCtx, message)
		parseSpan.End()
		if err != nil {
			return err
		}
		span.SetAttributes(attribute.String("candidate_id", record.Identity.CandidateID))

		// 3. 上传解析结果JSON到MinIO
		span.AddEvent("uploading_to_minio")
		recordObjectKey, err := cs.components.Storage.MinIO.UploadCandidateRecord(ctx, message.SubmissionUUID, record)
		if err != nil {
			zlog.Error().Err(err).Msg("上传解析结果到MinIO失败")
			return fmt.Errorf("上传解析结果失败: %w", err)
		}
		zlog.Debug().Str("object_key", recordObjectKey).Msg("解析结果已上传到MinIO")

		// 4. 插入或整行覆盖候选人档案
		profile := &models.CandidateProfile{}
		if err := profile.FromRecord(record, message.OriginalFilename, cs.config.ActiveParserVersion); err != nil {
			return fmt.Errorf("构建候选人档案失败: %w", err)
		}
		if err := cs.components.Storage.MySQL.UpsertCandidateProfile(tx, profile); err != nil {
			zlog.Error().Err(err).Msg("写入候选人档案失败")
			return fmt.Errorf("写入候选人档案失败: %w", err)
		}

		// 5. [Outbox] 将投递消息写入 Outbox 表，而不是直接发布
		_, outboxSpan := tracer.Start(ctx, "WriteToOutbox")
		parsedMessage := storage.CandidateParsedMessage{
			SubmissionUUID:   message.SubmissionUUID,
			CandidateID:      record.Identity.CandidateID,
			RecordObjectKey:  recordObjectKey,
			OriginalFilename: message.OriginalFilename,
			SourceChannel:    message.SourceChannel,
			ParserVersion:    cs.config.ActiveParserVersion,
		}
		payloadBytes, err := json.Marshal(parsedMessage)
		if err != nil {
			outboxSpan.RecordError(err)
			outboxSpan.SetStatus(codes.Error, "序列化失败")
			outboxSpan.End()
			return fmt.Errorf("序列化outbox payload失败: %w", err)
		}

		outboxEntry := models.OutboxMessage{
			AggregateID:      message.SubmissionUUID,
			EventType:        "candidate.parsed",
			Payload:          string(payloadBytes),
			TargetExchange:   cs.config.RabbitMQ.CandidateEventsExchange,
			TargetRoutingKey: cs.config.RabbitMQ.ParsedRoutingKey,
		}
		if err := tx.Create(&outboxEntry).Error; err != nil {
			zlog.Error().Err(err).Msg("插入outbox记录失败")
			outboxSpan.RecordError(err)
			outboxSpan.SetStatus(codes.Error, "插入失败")
			outboxSpan.End()
			return fmt.Errorf("插入outbox记录失败: %w", err)
		}
		outboxSpan.End()
		zlog.Debug().Msg("成功创建outbox记录")

		// 6. 更新摄入记录
		if err := tx.Model(&models.IngestSubmission{}).
			Where("submission_uuid = ?", message.SubmissionUUID).
			Updates(map[string]interface{}{
				"candidate_id":      record.Identity.CandidateID,
				"record_object_key": recordObjectKey,
				"processing_status": constants.StatusParsed,
				"parser_version":    cs.config.ActiveParserVersion,
			}).Error; err != nil {
			zlog.Error().Err(err).Msg("更新摄入记录失败")
			return fmt.Errorf("更新数据库失败: %w", err)
		}

		// 7. 记录MD5到候选人ID的映射，便于追溯（尽力而为）
		if message.RawFileMD5 != "" {
			if mapErr := cs.components.Storage.Redis.MapMD5ToCandidateID(ctx, message.RawFileMD5, record.Identity.CandidateID); mapErr != nil {
				zlog.Warn().Err(mapErr).Msg("记录MD5到候选人ID映射失败")
			}
		}

		span.SetStatus(codes.Ok, "处理成功")
		return nil // 事务成功
	})

	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeParse)
		// 事务回滚后把状态和错误信息落到摄入记录上
		updateErr := cs.components.Storage.MySQL.UpdateSubmissionFields(
			cs.components.Storage.MySQL.DB().WithContext(ctx),
			message.SubmissionUUID,
			map[string]interface{}{
				"processing_status": constants.StatusParseFailed,
				"error_message":     err.Error(),
			})
		if updateErr != nil {
			zlog.Error().Err(updateErr).Msg("更新状态为失败时出错")
		}
		return err
	}

	zlog.Info().Msg("解析任务处理成功完成")
	return nil
}

// downloadAndParse 内部辅助方法，下载原始文件并执行解析管线
func (cs *candidateServiceImpl) downloadAndParse(ctx context.Context, message storage.CandidateUploadMessage) (*types.CandidateRecord, error) {
	zlog := logger.FromContext(ctx)
	span := trace.SpanFromContext(ctx)

	originalFileBytes, err := cs.components.Storage.MinIO.GetOriginalFile(ctx, message.OriginalObjectKey)
	if err != nil {
		zlog.Error().Err(err).Msg("从MinIO下载原始文件失败")
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return nil, NewDownloadError(message.SubmissionUUID, err.Error())
	}
	zlog.Debug().Int("size_bytes", len(originalFileBytes)).Msg("从MinIO下载原始文件成功")

	record, err := cs.pipeline.ParseDocument(ctx, originalFileBytes, message.OriginalFilename)
	if err != nil {
		zlog.Error().Err(err).Msg("解析文档失败")
		tracing.RecordError(span, err, tracing.ErrorTypeParse)
		return nil, NewParseError(message.SubmissionUUID, err.Error())
	}

	return record, nil
}

// ProcessDelivery 处理解析完成事件，将档案投递到配置的出口
// 实现CandidateService接口
func (cs *candidateServiceImpl) ProcessDelivery(ctx context.Context, message storage.CandidateParsedMessage) error {
	ctx, span := tracer.Start(ctx, "ProcessDelivery",
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	span.SetAttributes(
		attribute.String("submission_uuid", message.SubmissionUUID),
		attribute.String("candidate_id", message.CandidateID),
	)

	ctx = logger.WithSubmissionUUID(ctx, message.SubmissionUUID)
	zlog := logger.FromContext(ctx)

	if cs.components.Storage == nil {
		tracing.RecordError(span, ErrStorageNotInit, tracing.ErrorTypeInternal)
		return ErrStorageNotInit
	}

	// 状态检查保证投递幂等：同一条消息重复消费时直接跳过
	submission, err := cs.components.Storage.MySQL.GetSubmissionByUUID(ctx, message.SubmissionUUID)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return NewDatabaseError(message.SubmissionUUID, err.Error())
	}
	if !constants.IsStatusAllowed(submission.ProcessingStatus, constants.AllowedStatusesForDelivery) {
		zlog.Info().Str("status", submission.ProcessingStatus).Msg("当前状态不允许投递，跳过重复消息")
		span.SetAttributes(attribute.String("skip_reason", "status_not_allowed"))
		span.SetStatus(codes.Ok, "skipped")
		return nil
	}

	record, err := cs.components.Storage.MinIO.GetCandidateRecord(ctx, message.RecordObjectKey)
	if err != nil {
		zlog.Error().Err(err).Msg("从MinIO下载解析结果失败")
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return NewDownloadError(message.SubmissionUUID, err.Error())
	}

	if err := cs.deliverRecord(ctx, record, message.OriginalFilename); err != nil {
		zlog.Error().Err(err).Msg("投递候选人档案失败")
		tracing.RecordErrorWithInfo(span, err, tracing.ErrorTypeDelivery,
			attribute.String("delivery.source_file", tracing.SafeFilename(message.OriginalFilename)))
		if updErr := cs.components.Storage.MySQL.UpdateSubmissionStatus(ctx, message.SubmissionUUID, constants.StatusDeliveryFailed); updErr != nil {
			zlog.Error().Err(updErr).Msg("更新状态为投递失败时出错")
		}
		return NewDeliveryError(message.SubmissionUUID, err.Error())
	}

	if err := cs.components.Storage.MySQL.UpdateSubmissionStatus(ctx, message.SubmissionUUID, constants.StatusDelivered); err != nil {
		zlog.Error().Err(err).Msg("更新状态为已投递失败")
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return NewUpdateError(message.SubmissionUUID, err.Error())
	}

	zlog.Info().Str("candidate_id", message.CandidateID).Msg("候选人档案投递成功")
	span.SetStatus(codes.Ok, "delivered")
	return nil
}

// deliverRecord 按优先级投递档案：Sheets优先，失败或未配置时降级到本地Excel
// 门户上传是附加出口，失败只记录日志不影响投递结果
func (cs *candidateServiceImpl) deliverRecord(ctx context.Context, record *types.CandidateRecord, sourceFile string) error {
	zlog := logger.FromContext(ctx)

	delivered := false
	if cs.components.Sheets != nil {
		if err := cs.components.Sheets.AppendCandidateRow(ctx, record, sourceFile); err != nil {
			zlog.Warn().Err(err).Msg("写入Google Sheets失败，降级到本地Excel")
		} else {
			delivered = true
		}
	}

	if !delivered && cs.components.Excel != nil {
		if err := cs.components.Excel.AppendCandidateRow(record, sourceFile); err != nil {
			return fmt.Errorf("写入本地Excel失败: %w", err)
		}
		delivered = true
	}

	if !delivered {
		return ErrNoDeliverySink
	}

	if cs.components.Portal != nil {
		if err := cs.components.Portal.UploadCandidate(ctx, record); err != nil {
			zlog.Warn().Err(err).Msg("上传到管理门户失败")
		}
	}

	return nil
}
