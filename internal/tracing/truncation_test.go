package tracing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPII(t *testing.T) {
	assert.Equal(t, "", MaskPII(""))
	assert.Equal(t, "*", MaskPII("a"))
	assert.Equal(t, "r*", MaskPII("ra"))
	assert.Equal(t, "r**l", MaskPII("raul"))

	masked := MaskPII("rahul.sharma@example.com")
	assert.True(t, strings.HasPrefix(masked, "ra"), "应保留前2位")
	assert.True(t, strings.HasSuffix(masked, "om"), "应保留后2位")
	assert.NotContains(t, masked, "sharma", "中间部分应被掩码")
}

func TestSafeAttributeValue(t *testing.T) {
	assert.Equal(t, MaskPII("rahul.sharma@example.com"),
		SafeAttributeValue("candidate.email", "rahul.sharma@example.com", DefaultMaxLength),
		"敏感字段名应触发掩码")

	long := strings.Repeat("x", DefaultMaxLength+50)
	safe := SafeAttributeValue("object_key", long, DefaultMaxLength)
	assert.LessOrEqual(t, len([]rune(safe)), DefaultMaxLength, "非敏感字段应只做截断")
	assert.Contains(t, safe, "...")
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))

	truncated := TruncateString(strings.Repeat("k", 300), MaxRedisLength)
	assert.LessOrEqual(t, len([]rune(truncated)), MaxRedisLength)
}
