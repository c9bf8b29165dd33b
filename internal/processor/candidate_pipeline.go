package processor

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"candidate-parser-go/internal/parser"
	"candidate-parser-go/internal/types"
)

// CandidatePipeline 候选人解析管线
// 固定三段流程：文本提取 -> 规则抽取 -> 生成式补充，最后合并为完整档案
type CandidatePipeline struct {
	text       DocumentTextExtractor
	fields     FieldExtractor
	generative GenerativeExtractor
	logger     *log.Logger
}

// NewCandidatePipeline 创建解析管线
// generative传nil时退化为纯规则抽取
func NewCandidatePipeline(text DocumentTextExtractor, fields FieldExtractor, generative GenerativeExtractor, logger *log.Logger) (*CandidatePipeline, error) {
	if text == nil {
		return nil, fmt.Errorf("文本提取器不能为空")
	}
	if fields == nil {
		return nil, fmt.Errorf("字段抽取器不能为空")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &CandidatePipeline{
		text:       text,
		fields:     fields,
		generative: generative,
		logger:     logger,
	}, nil
}

// ParseDocument 解析文档字节流，返回合并后的候选人档案
// sourceFilename同时决定文档类型和candidate_id的派生输入
func (p *CandidatePipeline) ParseDocument(ctx context.Context, data []byte, sourceFilename string) (*types.CandidateRecord, error) {
	span := trace.SpanFromContext(ctx)

	kind := types.KindFromExtension(filepath.Ext(sourceFilename))
	span.SetAttributes(
		attribute.String("document.kind", string(kind)),
		attribute.Int("document.size_bytes", len(data)),
	)

	text, err := p.text.ExtractFromBytes(ctx, data, kind, sourceFilename)
	if err != nil {
		return nil, fmt.Errorf("提取文本失败: %w", err)
	}
	span.SetAttributes(attribute.Int("text_length", len(text)))
	span.AddEvent("text_extraction_completed")

	// 规则抽取总是执行，即使文本为空也产出全键记录
	record := p.fields.Extract(text)

	// 生成式补充是可选步骤，失败不影响规则结果
	if p.generative != nil && p.generative.Available() && text != "" {
		partial := p.generative.Extract(ctx, text)
		if !partial.IsEmpty() {
			span.AddEvent("generative_extraction_completed")
			record = parser.MergeRecords(record, partial, sourceFilename)
			return record, nil
		}
		p.logger.Printf("生成式抽取结果为空，仅使用规则抽取结果: %s", sourceFilename)
	}

	record = parser.MergeRecords(record, nil, sourceFilename)
	return record, nil
}
