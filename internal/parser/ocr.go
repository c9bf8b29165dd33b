package parser

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
)

// ocrDPI 光栅化分辨率；150dpi在识别率和内存占用之间取平衡
const ocrDPI = 150

// rasterizePDF 将PDF的每一页渲染为PNG图像，按页序返回
func rasterizePDF(data []byte) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rasterization: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	pages := make([][]byte, 0, numPages)
	for i := 0; i < numPages; i++ {
		png, err := doc.ImagePNG(i, ocrDPI)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize page %d: %w", i+1, err)
		}
		pages = append(pages, png)
	}
	return pages, nil
}

// GosseractEngine 基于Tesseract的OCR引擎
// gosseract.Client不是并发安全的，内部用互斥锁串行化识别调用
type GosseractEngine struct {
	mu        sync.Mutex
	languages []string
}

// GosseractOption OCR引擎的配置选项
type GosseractOption func(*GosseractEngine)

// WithLanguages 配置识别语言，默认eng
func WithLanguages(langs ...string) GosseractOption {
	return func(e *GosseractEngine) {
		e.languages = langs
	}
}

// NewGosseractEngine 创建Tesseract OCR引擎
func NewGosseractEngine(options ...GosseractOption) *GosseractEngine {
	engine := &GosseractEngine{
		languages: []string{"eng"},
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// RecognizePNG 识别一张PNG图像中的文本
func (g *GosseractEngine) RecognizePNG(ctx context.Context, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(g.languages...); err != nil {
		return "", fmt.Errorf("failed to set OCR languages: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("failed to set OCR image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR recognition failed: %w", err)
	}
	return text, nil
}
