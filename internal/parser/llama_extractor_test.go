package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedModel 测试用模型：记录收到的提示词并返回预设输出
type scriptedModel struct {
	response string
	err      error
	prompt   string
	opts     CompletionOptions
}

func (m *scriptedModel) Complete(_ context.Context, prompt string, opts CompletionOptions) (string, error) {
	m.prompt = prompt
	m.opts = opts
	return m.response, m.err
}

// TestLlamaExtract_ValidJSON 模型返回合法JSON时应正确解析
func TestLlamaExtract_ValidJSON(t *testing.T) {
	model := &scriptedModel{
		response: `{
  "identity": {"name": "Asha Verma", "email": "asha@example.com"},
  "documents": {"pan_number": "ABCDE1234F"},
  "education": [{"degree": "B.Tech", "institution": "IIT Delhi", "year": "2015", "percentage": "85"}],
  "experience": [],
  "addresses": {"current": "42 MG Road, Bangalore"}
}`,
	}

	extractor := NewLlamaExtractor(model)
	partial := extractor.Extract(context.Background(), "some resume text")
	require.NotNil(t, partial)

	assert.Equal(t, "Asha Verma", partial.Identity["name"])
	assert.Equal(t, "ABCDE1234F", partial.Documents["pan_number"])
	require.Len(t, partial.Education, 1)
	assert.Equal(t, "IIT Delhi", partial.Education[0].Institution)
	assert.Equal(t, "42 MG Road, Bangalore", partial.Addresses["current"])
}

// TestLlamaExtract_SamplingParameters 验证采样参数与停止序列
func TestLlamaExtract_SamplingParameters(t *testing.T) {
	model := &scriptedModel{response: `{}`}
	extractor := NewLlamaExtractor(model)
	extractor.Extract(context.Background(), "text")

	assert.Equal(t, 2000, model.opts.MaxTokens)
	assert.InDelta(t, 0.1, model.opts.Temperature, 1e-9)
	assert.Equal(t, []string{"\n\n", "Text:"}, model.opts.Stop)
}

// TestLlamaExtract_PromptTruncation 超长文本应只保留前3000个字符
func TestLlamaExtract_PromptTruncation(t *testing.T) {
	model := &scriptedModel{response: `{}`}
	extractor := NewLlamaExtractor(model)

	longText := strings.Repeat("x", 5000)
	extractor.Extract(context.Background(), longText)

	assert.Contains(t, model.prompt, strings.Repeat("x", 3000))
	assert.NotContains(t, model.prompt, strings.Repeat("x", 3001))
	assert.Contains(t, model.prompt, `"pan_number"`, "提示词应内嵌输出schema")
}

// TestLlamaExtract_TruncationOnRuneBoundary 截断不应切开多字节字符
func TestLlamaExtract_TruncationOnRuneBoundary(t *testing.T) {
	model := &scriptedModel{response: `{}`}
	extractor := NewLlamaExtractor(model, WithInputLimit(10))

	// 每个汉字占3字节：限制10字节时只能完整保留3个字符
	extractor.Extract(context.Background(), strings.Repeat("简", 8))

	assert.True(t, utf8.ValidString(model.prompt), "提示词必须是合法UTF-8")
	assert.Contains(t, model.prompt, strings.Repeat("简", 3))
	assert.NotContains(t, model.prompt, strings.Repeat("简", 4))
}

// TestLlamaExtract_Failures 各类失败都应返回空结果而非错误
func TestLlamaExtract_Failures(t *testing.T) {
	tests := []struct {
		name  string
		model CompletionModel
	}{
		{"模型未配置", nil},
		{"推理错误", &scriptedModel{err: errors.New("inference crashed")}},
		{"输出不是JSON", &scriptedModel{response: "I could not find any information."}},
		{"输出为截断的JSON", &scriptedModel{response: `{"identity": {"name": "Asha`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extractor := NewLlamaExtractor(tt.model)
			partial := extractor.Extract(context.Background(), "text")
			require.NotNil(t, partial)
			assert.True(t, partial.IsEmpty(), "失败时必须返回空结果")
		})
	}
}

// TestExtractJSON 验证从模型输出中恢复JSON的各种形态
func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"纯JSON",
			`{"identity": {}}`,
			`{"identity": {}}`,
		},
		{
			"前后带说明文字",
			"Here is the result:\n{\"identity\": {\"name\": \"A\"}}\nDone.",
			`{"identity": {"name": "A"}}`,
		},
		{
			"markdown代码块",
			"```json\n{\"identity\": {}}\n```",
			`{"identity": {}}`,
		},
		{
			"嵌套对象的花括号配对",
			`prefix {"a": {"b": {"c": 1}}} suffix {"d": 2}`,
			`{"a": {"b": {"c": 1}}}`,
		},
		{
			"无JSON",
			"no braces here",
			"",
		},
		{
			"未闭合的花括号",
			`{"a": 1`,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}
