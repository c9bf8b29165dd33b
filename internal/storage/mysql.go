package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/storage/models"
)

var mysqlTracer = otel.Tracer("candidate-parser-go/storage/mysql")

type gormSpanKey struct{}

// GormTracingPlugin GORM插件，为数据库操作创建OpenTelemetry span
type GormTracingPlugin struct {
	tracer trace.Tracer
	dbName string
}

// Name 返回插件名称
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册GORM回调以启用追踪
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	// gorm的callback processor类型未导出，通过方法值绑定Register
	hooks := []struct {
		op             string
		name           string
		registerBefore func(name string, fn func(db *gorm.DB)) error
		registerAfter  func(name string, fn func(db *gorm.DB)) error
	}{
		{"CREATE", "create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"SELECT", "query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"UPDATE", "update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"DELETE", "delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"ROW", "row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"RAW", "raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		if err := h.registerBefore("otel:before_"+h.name, p.before(h.op)); err != nil {
			return err
		}
		if err := h.registerAfter("otel:after_"+h.name, p.after()); err != nil {
			return err
		}
	}

	return nil
}

// before 返回在GORM操作之前执行的回调函数
func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		tableName := db.Statement.Table
		if tableName == "" {
			tableName = "unknown"
		}

		spanName := fmt.Sprintf("%s %s", operation, tableName)
		newCtx, span := p.tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", "mysql"),
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", tableName),
			),
		)

		db.Statement.Context = context.WithValue(newCtx, gormSpanKey{}, span)
	}
}

// after 返回在GORM操作之后执行的回调函数
func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		span, ok := db.Statement.Context.Value(gormSpanKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		if db.Error != nil {
			if db.Error == gorm.ErrRecordNotFound {
				// 未找到记录属于正常业务分支，不算错误
				span.SetAttributes(attribute.String("error.type", "record_not_found"))
				span.SetStatus(codes.Ok, "record not found")
			} else {
				span.RecordError(db.Error)
				span.SetStatus(codes.Error, db.Error.Error())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}

// NewGormTracingPlugin 创建GORM追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer: mysqlTracer,
		dbName: dbName,
	}
}

// Database 关系数据库接口
type Database interface {
	// DB 返回GORM数据库连接实例
	DB() *gorm.DB

	// Close 关闭数据库连接
	Close() error
}

var _ Database = (*MySQL)(nil)

// MySQL 提供关系数据库功能
type MySQL struct {
	db  *gorm.DB
	cfg *config.MySQLConfig
}

// NewMySQL 创建MySQL客户端并自动迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds)

	var logLevel logger.LogLevel
	switch cfg.LogLevel {
	case 1:
		logLevel = logger.Silent
	case 2:
		logLevel = logger.Error
	case 3:
		logLevel = logger.Warn
	case 4:
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logLevel),
		PrepareStmt:                              true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	m := &MySQL{
		db:  db,
		cfg: cfg,
	}

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	if err := m.autoMigrateSchema(); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	log.Println("成功连接到MySQL并自动迁移数据库结构")
	return m, nil
}

// autoMigrateSchema 使用GORM自动迁移数据库表结构
func (m *MySQL) autoMigrateSchema() error {
	currentLogger := m.db.Logger

	// 迁移期间关闭SQL日志
	silentLogger := logger.New(
		log.New(log.Writer(), "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	silentDB := m.db.Session(&gorm.Session{Logger: silentLogger})

	err := silentDB.AutoMigrate(
		&models.CandidateProfile{},
		&models.IngestSubmission{},
		&models.OutboxMessage{},
	)

	m.db = m.db.Session(&gorm.Session{Logger: currentLogger})

	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// DB 返回GORM数据库连接实例
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭数据库连接
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// CreateIngestSubmission 创建摄入记录，主键冲突时保持幂等
func (m *MySQL) CreateIngestSubmission(ctx context.Context, submission *models.IngestSubmission) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.CreateIngestSubmission",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "mysql"),
		attribute.String("db.sql.table", "ingest_submissions"),
		attribute.String("submission_uuid", submission.SubmissionUUID),
	)

	err := m.db.WithContext(ctx).Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_uuid"}},
			DoUpdates: clause.AssignmentColumns([]string{"submission_uuid"}),
		}).Create(submission).Error

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// UpdateSubmissionStatus 更新摄入记录的处理状态
func (m *MySQL) UpdateSubmissionStatus(ctx context.Context, submissionUUID string, status string) error {
	return m.db.WithContext(ctx).Model(&models.IngestSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Update("processing_status", status).Error
}

// UpdateSubmissionFields 更新摄入记录的多个字段 (在事务中执行)
func (m *MySQL) UpdateSubmissionFields(tx *gorm.DB, submissionUUID string, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return tx.Model(&models.IngestSubmission{}).
		Where("submission_uuid = ?", submissionUUID).
		Updates(updates).Error
}

// GetSubmissionByUUID 获取摄入记录
func (m *MySQL) GetSubmissionByUUID(ctx context.Context, submissionUUID string) (*models.IngestSubmission, error) {
	var submission models.IngestSubmission
	if err := m.db.WithContext(ctx).
		Where("submission_uuid = ?", submissionUUID).
		First(&submission).Error; err != nil {
		return nil, err
	}
	return &submission, nil
}

// UpsertCandidateProfile 插入或整行覆盖候选人档案 (在事务中执行)
// 同一candidate_id的新文件到达时所有业务列整体替换
func (m *MySQL) UpsertCandidateProfile(tx *gorm.DB, profile *models.CandidateProfile) error {
	return tx.Clauses(
		clause.OnConflict{
			Columns:   []clause.Column{{Name: "candidate_id"}},
			UpdateAll: true,
		}).Create(profile).Error
}

// GetCandidateProfile 获取候选人档案
func (m *MySQL) GetCandidateProfile(ctx context.Context, candidateID string) (*models.CandidateProfile, error) {
	var profile models.CandidateProfile
	if err := m.db.WithContext(ctx).
		Where("candidate_id = ?", candidateID).
		First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListCandidateProfiles 按更新时间倒序分页列出候选人档案
func (m *MySQL) ListCandidateProfiles(ctx context.Context, offset, limit int) ([]models.CandidateProfile, int64, error) {
	var profiles []models.CandidateProfile
	var total int64

	if err := m.db.WithContext(ctx).Model(&models.CandidateProfile{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := m.db.WithContext(ctx).
		Order("updated_at DESC").
		Offset(offset).Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}
