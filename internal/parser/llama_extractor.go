package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/constants"
	"candidate-parser-go/internal/types"
)

// CompletionOptions 单次生成的采样参数
type CompletionOptions struct {
	MaxTokens   int      // 生成长度上限
	Temperature float64  // 采样温度，接近0时近似确定性
	Stop        []string // 停止序列
}

// CompletionModel 本地语言模型的能力接口：给定提示词返回补全文本
// 模型推理通常不可跨goroutine重入；若多个管线共享同一句柄，
// 调用方负责串行化（具体实现可自带互斥保护）
type CompletionModel interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// LlamaCppModel 通过本地llama.cpp可执行文件运行gguf模型
// 上下文窗口和线程数在每次调用时作为命令行参数传入
type LlamaCppModel struct {
	mu         sync.Mutex // 串行化推理，避免多进程争抢内存
	binaryPath string
	modelPath  string
	nCtx       int
	nThreads   int
}

// NewLlamaCppModel 创建llama.cpp模型运行器
// 模型文件不存在时返回错误，调用方应降级为纯规则抽取而非中断
func NewLlamaCppModel(cfg *config.LlamaConfig) (*LlamaCppModel, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("未配置模型路径")
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("模型文件不存在: %s: %w", cfg.ModelPath, err)
	}
	return &LlamaCppModel{
		binaryPath: cfg.BinaryPath,
		modelPath:  cfg.ModelPath,
		nCtx:       cfg.NCtx,
		nThreads:   cfg.NThreads,
	}, nil
}

// Complete 执行一次补全
func (m *LlamaCppModel) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	args := []string{
		"-m", m.modelPath,
		"-c", strconv.Itoa(m.nCtx),
		"-t", strconv.Itoa(m.nThreads),
		"-n", strconv.Itoa(opts.MaxTokens),
		"--temp", strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
		"--no-display-prompt",
		"-p", prompt,
	}
	for _, stop := range opts.Stop {
		args = append(args, "-r", stop)
	}

	cmd := exec.CommandContext(ctx, m.binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("llama.cpp推理失败: %w (stderr: %.200s)", err, stderr.String())
	}
	return stdout.String(), nil
}

// candidateSchemaJSON 提示词中内嵌的输出schema，与CandidateRecord的五个分组一致
const candidateSchemaJSON = `{
  "identity": {
    "candidate_id": "",
    "name": "",
    "designation": "",
    "email": "",
    "phone": "",
    "dob": "",
    "gender": "",
    "nationality": ""
  },
  "documents": {
    "pan_number": "",
    "uan_number": "",
    "passport_number": "",
    "valid_from": "",
    "valid_to": ""
  },
  "education": [
    {
      "degree": "",
      "institution": "",
      "year": "",
      "percentage": ""
    }
  ],
  "experience": [
    {
      "company": "",
      "position": "",
      "duration": "",
      "description": ""
    }
  ],
  "addresses": {
    "current": "",
    "permanent": ""
  }
}`

// LlamaExtractor 生成式字段抽取器
// 可选组件：模型句柄为nil或任何推理/解析失败时返回空结果，
// 不影响管线其余部分的契约
type LlamaExtractor struct {
	model       CompletionModel
	inputLimit  int
	maxTokens   int
	temperature float64
	timeout     time.Duration
	logger      *log.Logger
}

// LlamaExtractorOption 生成式抽取器的配置选项
type LlamaExtractorOption func(*LlamaExtractor)

// WithInputLimit 配置传给模型的文本截断长度
func WithInputLimit(n int) LlamaExtractorOption {
	return func(e *LlamaExtractor) {
		e.inputLimit = n
	}
}

// WithMaxTokens 配置生成长度上限
func WithMaxTokens(n int) LlamaExtractorOption {
	return func(e *LlamaExtractor) {
		e.maxTokens = n
	}
}

// WithExtractionTimeout 配置单次推理的超时时间
func WithExtractionTimeout(d time.Duration) LlamaExtractorOption {
	return func(e *LlamaExtractor) {
		e.timeout = d
	}
}

// WithLlamaLogger 配置自定义日志记录器
func WithLlamaLogger(logger *log.Logger) LlamaExtractorOption {
	return func(e *LlamaExtractor) {
		e.logger = logger
	}
}

// NewLlamaExtractor 创建生成式字段抽取器，model可以为nil（组件禁用）
func NewLlamaExtractor(model CompletionModel, options ...LlamaExtractorOption) *LlamaExtractor {
	extractor := &LlamaExtractor{
		model:       model,
		inputLimit:  constants.GenerativeInputLimit,
		maxTokens:   2000,
		temperature: 0.1,
		timeout:     120 * time.Second,
		logger:      log.New(os.Stderr, "[生成式抽取] ", log.LstdFlags),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor
}

// Available 判断模型是否可用
func (e *LlamaExtractor) Available() bool {
	return e.model != nil
}

// buildPrompt 构造固定指令提示词：内嵌schema + 截断后的文档文本
// 截断落在rune边界上，不会切出半个多字节字符
func (e *LlamaExtractor) buildPrompt(text string) string {
	if len(text) > e.inputLimit {
		cut := e.inputLimit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	var sb strings.Builder
	sb.WriteString("Extract candidate profile information from the following text and return ONLY valid JSON in this exact format:\n")
	sb.WriteString(candidateSchemaJSON)
	sb.WriteString("\n\nText:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nReturn ONLY the JSON object, no other text:")
	return sb.String()
}

// Extract 调用模型抽取结构化字段
// 任何失败（模型缺失、推理错误、输出不是合法JSON）都返回空结果，绝不向上传播
func (e *LlamaExtractor) Extract(ctx context.Context, text string) *types.PartialRecord {
	if e.model == nil {
		return &types.PartialRecord{}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	response, err := e.model.Complete(callCtx, e.buildPrompt(text), CompletionOptions{
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
		Stop:        []string{"\n\n", "Text:"},
	})
	if err != nil {
		e.logger.Printf("模型推理失败: %v", err)
		return &types.PartialRecord{}
	}

	partial, err := e.parseResponse(response)
	if err != nil {
		e.logger.Printf("解析模型输出失败: %v", err)
		return &types.PartialRecord{}
	}
	return partial
}

// parseResponse 从模型输出中恢复JSON结构
// 先做花括号配对截取最外层{...}，找不到时退回整段解析
func (e *LlamaExtractor) parseResponse(response string) (*types.PartialRecord, error) {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		jsonStr = strings.TrimSpace(response)
	}

	var partial types.PartialRecord
	if err := json.Unmarshal([]byte(jsonStr), &partial); err != nil {
		return nil, fmt.Errorf("模型输出不是合法JSON: %w", err)
	}
	return &partial, nil
}

var jsonCodeBlockRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")

// extractJSON 从文本中提取JSON部分（防止模型返回的不是纯JSON）
func extractJSON(text string) string {
	// 优先提取 ```json ... ``` 代码块中的内容
	matches := jsonCodeBlockRe.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// 回退：花括号逐层配对，截取最外层的JSON对象
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}
	level := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return strings.TrimSpace(text[start : i+1])
			}
		}
	}
	return ""
}
