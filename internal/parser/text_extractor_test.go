package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidate-parser-go/internal/types"
)

// TestKindFromExtension 扩展名到文档类型的映射
func TestKindFromExtension(t *testing.T) {
	assert.Equal(t, types.KindPDF, types.KindFromExtension(".pdf"))
	assert.Equal(t, types.KindDocx, types.KindFromExtension(".docx"))
	assert.Equal(t, types.KindDocx, types.KindFromExtension(".doc"))
	assert.Equal(t, types.KindUnknown, types.KindFromExtension(".txt"))
	assert.Equal(t, types.KindUnknown, types.KindFromExtension(""))
}

// TestExtractFromBytes_UnsupportedKind 不支持的类型应返回空文本且不报错
func TestExtractFromBytes_UnsupportedKind(t *testing.T) {
	extractor, err := NewTextExtractor(context.Background())
	require.NoError(t, err, "创建文本提取器不应失败")

	text, err := extractor.ExtractFromBytes(context.Background(), []byte("plain text"), types.KindUnknown, "note.txt")
	assert.NoError(t, err, "不支持的类型不应返回错误")
	assert.Empty(t, text)
}

// TestExtractFromBytes_CorruptInput 损坏的文档内容应降级为空文本
func TestExtractFromBytes_CorruptInput(t *testing.T) {
	extractor, err := NewTextExtractor(context.Background(), WithOCREngine(nil))
	require.NoError(t, err)

	text, err := extractor.ExtractFromBytes(context.Background(), []byte("not a real docx"), types.KindDocx, "broken.docx")
	assert.NoError(t, err, "提取失败必须内部消化，不向调用方传播")
	assert.Empty(t, text)
}

// TestDocxContentToText 验证document.xml到段落文本的还原
func TestDocxContentToText(t *testing.T) {
	content := `<w:body>` +
		`<w:p><w:r><w:t>Rahul Sharma</w:t></w:r></w:p>` +
		`<w:p><w:r><w:t>Email: rahul@example.com</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:p><w:r><w:t>R&amp;D Engineer</w:t></w:r></w:p>` +
		`</w:body>`

	text := docxContentToText(content)

	assert.Equal(t, "Rahul Sharma\nEmail: rahul@example.com\n\nR&D Engineer", text,
		"段落应按文档顺序换行拼接，空段落保留为空行，实体被反转义")
}

// TestDocxContentToText_BlankParagraphs 段落间的空行是文档结构的一部分，必须保留
func TestDocxContentToText_BlankParagraphs(t *testing.T) {
	content := `<w:body>` +
		`<w:p><w:r><w:t>Summary</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:p></w:p>` +
		`<w:p><w:r><w:t>Experience</w:t></w:r></w:p>` +
		`</w:body>`

	assert.Equal(t, "Summary\n\n\nExperience", docxContentToText(content),
		"连续空段落应逐个保留为空行")
}

// TestDocxContentToText_Empty 空内容应得到空文本
func TestDocxContentToText_Empty(t *testing.T) {
	assert.Empty(t, docxContentToText(""))
	assert.Empty(t, docxContentToText("<w:body></w:body>"))
}
