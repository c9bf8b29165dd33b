package parser

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"candidate-parser-go/internal/constants"
	"candidate-parser-go/internal/types"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/nguyenthenguyen/docx"
)

// OCREngine 对单页图像执行光学字符识别
type OCREngine interface {
	// RecognizePNG 识别一张PNG图像中的文本
	RecognizePNG(ctx context.Context, png []byte) (string, error)
}

// TextExtractor 将原始文档（PDF/Word）转换为纯文本
// PDF优先走布局感知的直接提取；文本量不足或提取失败时逐页光栅化并OCR。
// 提取失败一律降级为空文本并记录日志，绝不向调用方抛出错误。
type TextExtractor struct {
	pdfParser        *pdf.PDFParser
	ocr              OCREngine
	minDirectTextLen int
	logger           *log.Logger
}

// TextExtractorOption 文本提取器的配置选项
type TextExtractorOption func(*TextExtractor)

// WithOCREngine 配置自定义OCR引擎
func WithOCREngine(engine OCREngine) TextExtractorOption {
	return func(e *TextExtractor) {
		e.ocr = engine
	}
}

// WithMinDirectTextLen 配置触发OCR回退的最小直接提取文本长度
func WithMinDirectTextLen(n int) TextExtractorOption {
	return func(e *TextExtractor) {
		e.minDirectTextLen = n
	}
}

// WithExtractorLogger 配置自定义日志记录器
func WithExtractorLogger(logger *log.Logger) TextExtractorOption {
	return func(e *TextExtractor) {
		e.logger = logger
	}
}

// NewTextExtractor 初始化文本提取器
// PDF解析配置为不按页面分割，以获取整个文档的连续文本
func NewTextExtractor(ctx context.Context, options ...TextExtractorOption) (*TextExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF parser: %w", err)
	}

	extractor := &TextExtractor{
		pdfParser:        p,
		ocr:              NewGosseractEngine(),
		minDirectTextLen: constants.MinDirectTextLen,
		logger:           log.New(os.Stderr, "[文本提取] ", log.LstdFlags),
	}

	for _, option := range options {
		option(extractor)
	}

	return extractor, nil
}

// ExtractFromFile 从文件路径提取纯文本，类型由扩展名推断
func (e *TextExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		e.logger.Printf("读取文件失败: %s: %v", filePath, err)
		return "", nil
	}
	kind := types.KindFromExtension(strings.ToLower(filepath.Ext(filePath)))
	return e.ExtractFromBytes(ctx, data, kind, filePath)
}

// ExtractFromBytes 从字节内容提取纯文本
// 合同：任何输入都返回字符串（可能为空），不返回错误；失败仅记录日志
func (e *TextExtractor) ExtractFromBytes(ctx context.Context, data []byte, kind types.DocumentKind, uri string) (string, error) {
	switch kind {
	case types.KindPDF:
		return e.extractPDF(ctx, data, uri), nil
	case types.KindDocx:
		return e.extractDocx(data, uri), nil
	default:
		e.logger.Printf("不支持的文档类型: %s (URI: %s)", kind, uri)
		return "", nil
	}
}

// extractPDF 提取PDF文本，优先直接提取，文本不足或失败时回退OCR
func (e *TextExtractor) extractPDF(ctx context.Context, data []byte, uri string) string {
	startTime := time.Now()

	text, err := e.directPDFText(ctx, data, uri)
	if err != nil {
		e.logger.Printf("PDF直接提取失败: %s (URI: %s)，回退到OCR", err, uri)
		return e.ocrPDF(ctx, data, uri)
	}

	if len(strings.TrimSpace(text)) < e.minDirectTextLen {
		e.logger.Printf("PDF文本量不足 (%d 字符)，疑似图片型PDF，转入OCR (URI: %s)", len(strings.TrimSpace(text)), uri)
		if ocrText := e.ocrPDF(ctx, data, uri); ocrText != "" {
			return ocrText
		}
		// OCR也失败时保留直接提取的结果
		return text
	}

	e.logger.Printf("PDF直接提取完成: %d 个字符 (用时 %.2f秒)", len(text), time.Since(startTime).Seconds())
	return text
}

// directPDFText 布局感知的直接文本提取
func (e *TextExtractor) directPDFText(ctx context.Context, data []byte, uri string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	docs, err := e.pdfParser.Parse(ctx, bytes.NewReader(data),
		einoParser.WithURI(uri),
	)
	if err != nil {
		return "", fmt.Errorf("pdf parser failed for URI %s: %w", uri, err)
	}
	if len(docs) == 0 {
		return "", fmt.Errorf("pdf parser returned no documents for URI %s", uri)
	}

	var sb strings.Builder
	for i, doc := range docs {
		sb.WriteString(doc.Content)
		if i < len(docs)-1 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String(), nil
}

// ocrPDF 将PDF逐页光栅化并OCR，结果按页序以空行拼接
func (e *TextExtractor) ocrPDF(ctx context.Context, data []byte, uri string) string {
	if e.ocr == nil {
		e.logger.Printf("OCR引擎未配置，无法处理图片型PDF (URI: %s)", uri)
		return ""
	}

	startTime := time.Now()
	pages, err := rasterizePDF(data)
	if err != nil {
		e.logger.Printf("PDF光栅化失败: %v (URI: %s)", err, uri)
		return ""
	}

	pageTexts := make([]string, 0, len(pages))
	for i, png := range pages {
		pageText, err := e.ocr.RecognizePNG(ctx, png)
		if err != nil {
			e.logger.Printf("第 %d 页OCR失败: %v (URI: %s)", i+1, err, uri)
			pageText = ""
		}
		pageTexts = append(pageTexts, pageText)
	}

	text := strings.Join(pageTexts, "\n\n")
	e.logger.Printf("OCR完成: %d 页, %d 个字符 (用时 %.2f秒)", len(pages), len(text), time.Since(startTime).Seconds())
	return text
}

// extractDocx 提取Word文档的段落文本，按文档顺序以换行拼接
func (e *TextExtractor) extractDocx(data []byte, uri string) string {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Printf("打开Word文档失败: %v (URI: %s)", err, uri)
		return ""
	}
	defer r.Close()

	return docxContentToText(r.Editable().GetContent())
}

var (
	docxParaBreakRe = regexp.MustCompile(`</w:p>`)
	docxTagRe       = regexp.MustCompile(`<[^>]+>`)
)

// docxContentToText 将document.xml内容还原为段落文本
// 段落结束标签转换行，其余标签全部剥除；
// 段落间的空行原样保留，只裁剪XML结构带来的首尾空段
func docxContentToText(content string) string {
	content = docxParaBreakRe.ReplaceAllString(content, "\n")
	content = docxTagRe.ReplaceAllString(content, "")
	content = html.UnescapeString(content)

	lines := strings.Split(content, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	start, end := 0, len(lines)
	for start < end && lines[start] == "" {
		start++
	}
	for end > start && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}
