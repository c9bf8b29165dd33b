package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidate-parser-go/internal/parser"
	"candidate-parser-go/internal/types"
)

// fakeTextExtractor 返回预置文本的文本提取器
type fakeTextExtractor struct {
	text string
	err  error
}

func (f *fakeTextExtractor) ExtractFromBytes(_ context.Context, _ []byte, _ types.DocumentKind, _ string) (string, error) {
	return f.text, f.err
}

// fakeGenerative 返回预置部分结果的生成式抽取器
type fakeGenerative struct {
	partial   *types.PartialRecord
	available bool
	called    bool
}

func (f *fakeGenerative) Extract(_ context.Context, _ string) *types.PartialRecord {
	f.called = true
	if f.partial == nil {
		return &types.PartialRecord{}
	}
	return f.partial
}

func (f *fakeGenerative) Available() bool {
	return f.available
}

const pipelineResumeText = `Rahul Sharma
Designation: Software Engineer
Email: rahul.sharma@example.com
Phone: +91 9876543210
PAN: ABCDE1234F`

func TestCandidatePipeline_DeterministicOnly(t *testing.T) {
	pipeline, err := NewCandidatePipeline(
		&fakeTextExtractor{text: pipelineResumeText},
		parser.NewDeterministicExtractor(nil),
		nil,
		nil,
	)
	require.NoError(t, err)

	record, err := pipeline.ParseDocument(context.Background(), []byte("raw"), "resume.pdf")
	require.NoError(t, err)

	assert.Equal(t, "rahul.sharma@example.com", record.Identity.Email)
	assert.Equal(t, "ABCDE1234F", record.Documents.PANNumber)
	assert.NotEmpty(t, record.Identity.CandidateID, "合并后应派生candidate_id")
	assert.Equal(t, parser.DeriveCandidateID("rahul.sharma@example.com", "resume.pdf"), record.Identity.CandidateID)
}

func TestCandidatePipeline_GenerativeSupplementsFields(t *testing.T) {
	generative := &fakeGenerative{
		available: true,
		partial: &types.PartialRecord{
			Identity: map[string]string{
				"name":        "Rahul Sharma",
				"nationality": "Indian",
			},
			Education: []types.EducationEntry{
				{Degree: "B.Tech", Institution: "IIT Delhi", Year: "2018"},
			},
		},
	}

	pipeline, err := NewCandidatePipeline(
		&fakeTextExtractor{text: pipelineResumeText},
		parser.NewDeterministicExtractor(nil),
		generative,
		nil,
	)
	require.NoError(t, err)

	record, err := pipeline.ParseDocument(context.Background(), []byte("raw"), "resume.pdf")
	require.NoError(t, err)

	assert.True(t, generative.called, "生成式抽取器应被调用")
	assert.Equal(t, "Indian", record.Identity.Nationality, "生成式结果应补充规则未覆盖的字段")
	assert.Equal(t, "rahul.sharma@example.com", record.Identity.Email, "规则结果应保留")
	require.Len(t, record.Education, 1)
	assert.Equal(t, "IIT Delhi", record.Education[0].Institution)
}

func TestCandidatePipeline_GenerativeSkippedWhenUnavailable(t *testing.T) {
	generative := &fakeGenerative{available: false}

	pipeline, err := NewCandidatePipeline(
		&fakeTextExtractor{text: pipelineResumeText},
		parser.NewDeterministicExtractor(nil),
		generative,
		nil,
	)
	require.NoError(t, err)

	record, err := pipeline.ParseDocument(context.Background(), []byte("raw"), "resume.pdf")
	require.NoError(t, err)

	assert.False(t, generative.called, "模型不可用时不应调用生成式抽取器")
	assert.Equal(t, "rahul.sharma@example.com", record.Identity.Email)
}

func TestCandidatePipeline_GenerativeSkippedOnEmptyText(t *testing.T) {
	generative := &fakeGenerative{available: true}

	pipeline, err := NewCandidatePipeline(
		&fakeTextExtractor{text: ""},
		parser.NewDeterministicExtractor(nil),
		generative,
		nil,
	)
	require.NoError(t, err)

	record, err := pipeline.ParseDocument(context.Background(), []byte("raw"), "scan.tiff")
	require.NoError(t, err)

	assert.False(t, generative.called, "空文本不应触发生成式抽取")
	assert.Empty(t, record.Identity.Email)
	assert.NotNil(t, record.Education, "空文本也应返回全键记录")
}

func TestCandidatePipeline_TextExtractionError(t *testing.T) {
	pipeline, err := NewCandidatePipeline(
		&fakeTextExtractor{err: errors.New("boom")},
		parser.NewDeterministicExtractor(nil),
		nil,
		nil,
	)
	require.NoError(t, err)

	_, err = pipeline.ParseDocument(context.Background(), []byte("raw"), "resume.pdf")
	assert.Error(t, err, "文本提取失败应向上传播")
}

func TestNewCandidatePipeline_RequiresComponents(t *testing.T) {
	_, err := NewCandidatePipeline(nil, parser.NewDeterministicExtractor(nil), nil, nil)
	assert.Error(t, err, "缺少文本提取器应返回错误")

	_, err = NewCandidatePipeline(&fakeTextExtractor{}, nil, nil, nil)
	assert.Error(t, err, "缺少字段抽取器应返回错误")
}
