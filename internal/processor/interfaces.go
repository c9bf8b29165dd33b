package processor

import (
	"context"
	"log"

	"candidate-parser-go/internal/storage"
	"candidate-parser-go/internal/types"
)

//
// 文本提取相关接口
//

// DocumentTextExtractor 文档文本提取器接口
type DocumentTextExtractor interface {
	// ExtractFromBytes 从字节数组提取纯文本
	// 不支持的文件类型返回空字符串而不是错误
	ExtractFromBytes(ctx context.Context, data []byte, kind types.DocumentKind, uri string) (string, error)
}

//
// 字段抽取相关接口
//

// FieldExtractor 确定性字段抽取器接口，基于规则从纯文本中抽取档案字段
type FieldExtractor interface {
	// Extract 对文本执行全部抽取规则，单条规则失败不影响其余字段
	Extract(text string) *types.CandidateRecord
}

// GenerativeExtractor 生成式抽取器接口，调用本地模型补充规则未覆盖的字段
type GenerativeExtractor interface {
	// Extract 调用模型抽取部分档案，任何失败都返回空的PartialRecord
	Extract(ctx context.Context, text string) *types.PartialRecord

	// Available 模型是否已加载可用
	Available() bool
}

//
// 投递出口相关接口
//

// SheetAppender Google Sheets行追加接口
type SheetAppender interface {
	// AppendCandidateRow 将候选人档案追加为表格的一行
	AppendCandidateRow(ctx context.Context, rec *types.CandidateRecord, sourceFile string) error
}

// PortalUploader 管理门户上传接口
type PortalUploader interface {
	// UploadCandidate 将候选人档案提交到门户
	UploadCandidate(ctx context.Context, rec *types.CandidateRecord) error
}

// WorkbookWriter 本地Excel工作簿写入接口，Sheets不可用时的降级出口
type WorkbookWriter interface {
	// AppendCandidateRow 将候选人档案追加到本地工作簿
	AppendCandidateRow(rec *types.CandidateRecord, sourceFile string) error
}

// Components 服务持有的组件依赖
type Components struct {
	// 存储管理器
	Storage *storage.Storage

	// 文档文本提取器
	TextExtractor DocumentTextExtractor

	// 确定性字段抽取器
	FieldExtractor FieldExtractor

	// 生成式抽取器（可选）
	Generative GenerativeExtractor

	// Sheets投递出口（可选）
	Sheets SheetAppender

	// 门户投递出口（可选）
	Portal PortalUploader

	// 本地Excel降级出口
	Excel WorkbookWriter
}

// Settings 服务的行为设置
type Settings struct {
	// 是否启用生成式抽取
	UseGenerative bool

	// 调试模式
	Debug bool

	// 标准库日志，传给底层组件使用
	Logger *log.Logger
}
