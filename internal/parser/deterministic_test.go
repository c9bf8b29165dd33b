package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDeterministicExtract_TypicalResume 验证典型简历文本的字段抽取
func TestDeterministicExtract_TypicalResume(t *testing.T) {
	text := `Rahul Sharma
Designation: Software Engineer
Email: rahul.sharma@example.com
Phone: +91 9876543210
DOB: 15/08/1992
Gender: Male
Nationality: Indian
PAN: ABCDE1234F
UAN: 123456789012
Passport: A1234567
Current Address: 42 MG Road, Bangalore
City: Bangalore, State: Karnataka
Pincode: 560001
`

	extractor := NewDeterministicExtractor(nil)
	rec := extractor.Extract(text)
	require.NotNil(t, rec)

	assert.Equal(t, "rahul.sharma@example.com", rec.Identity.Email)
	assert.Equal(t, "+919876543210", rec.Identity.Phone, "电话号码应去除空格和连字符")
	assert.Equal(t, "15/08/1992", rec.Identity.DOB)
	assert.Equal(t, "male", rec.Identity.Gender, "性别应为小写形式")
	assert.Equal(t, "Indian", rec.Identity.Nationality)
	assert.Equal(t, "ABCDE1234F", rec.Documents.PANNumber)
	assert.Equal(t, "123456789012", rec.Documents.UANNumber)
	assert.Equal(t, "A1234567", rec.Documents.PassportNumber)
	assert.Equal(t, "Software Engineer", rec.Identity.Designation)
	assert.NotEmpty(t, rec.Identity.Name)
}

// TestDeterministicExtract_EmptyText 空输入也必须返回五个分组齐全的记录
func TestDeterministicExtract_EmptyText(t *testing.T) {
	extractor := NewDeterministicExtractor(nil)
	rec := extractor.Extract("")
	require.NotNil(t, rec)

	assert.Empty(t, rec.Identity.Email)
	assert.Empty(t, rec.Documents.PANNumber)
	assert.NotNil(t, rec.Education, "education分组必须存在")
	assert.NotNil(t, rec.Experience, "experience分组必须存在")
	assert.Empty(t, rec.Addresses.Current)
	assert.Empty(t, rec.Addresses.Permanent)
}

// TestDeterministicExtract_NameFallback 无标签时应取首个大写开头的行
func TestDeterministicExtract_NameFallback(t *testing.T) {
	text := "Priya Patel\nworked at example corp since 2019"

	extractor := NewDeterministicExtractor(nil)
	rec := extractor.Extract(text)

	assert.Equal(t, "Priya Patel", rec.Identity.Name)
}

// TestDeterministicExtract_DesignationVocab 无标签时按职称词表匹配
func TestDeterministicExtract_DesignationVocab(t *testing.T) {
	text := "worked as a senior data analyst in the finance team"

	extractor := NewDeterministicExtractor(nil)
	rec := extractor.Extract(text)

	assert.Equal(t, "analyst", rec.Identity.Designation)
}

// TestDeterministicExtract_DOBPriority 多种日期格式共存时应遵循模式优先级
func TestDeterministicExtract_DOBPriority(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"日月年格式优先", "joined 2020-01-15, born 15/08/1992", "15/08/1992"},
		{"年月日格式次之", "date of birth 1992-08-15", "1992-08-15"},
		{"英文月名兜底", "born August 15, 1992 in Mumbai", "August 15, 1992"},
		{"无日期", "no dates here", ""},
	}

	extractor := NewDeterministicExtractor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := extractor.Extract(tt.text)
			assert.Equal(t, tt.expected, rec.Identity.DOB)
		})
	}
}

// TestDeterministicExtract_Passport 护照号两种形式均应识别，位置靠前者优先
func TestDeterministicExtract_Passport(t *testing.T) {
	extractor := NewDeterministicExtractor(nil)

	rec := extractor.Extract("passport ab1234567 issued 2020")
	assert.Equal(t, "AB1234567", rec.Documents.PassportNumber, "两字母形式应在大写化后识别")

	rec = extractor.Extract("passport z7654321")
	assert.Equal(t, "Z7654321", rec.Documents.PassportNumber)
}

// TestDeterministicExtract_AddressSlicing 验证地址行的3/3切分规则
func TestDeterministicExtract_AddressSlicing(t *testing.T) {
	t.Run("不足四行时永久住址等于现住址", func(t *testing.T) {
		text := "Address: 42 MG Road\nCity: Bangalore\nState: Karnataka"
		extractor := NewDeterministicExtractor(nil)
		rec := extractor.Extract(text)

		assert.Equal(t, "Address: 42 MG Road City: Bangalore State: Karnataka", rec.Addresses.Current)
		assert.Equal(t, rec.Addresses.Current, rec.Addresses.Permanent)
	})

	t.Run("超过三行时后续行归入永久住址", func(t *testing.T) {
		lines := []string{
			"Current Address: 42 MG Road",
			"City: Bangalore",
			"Pincode: 560001",
			"Permanent Address: 7 Lake View",
			"City: Pune",
			"Pincode: 411001",
		}
		extractor := NewDeterministicExtractor(nil)
		rec := extractor.Extract(strings.Join(lines, "\n"))

		assert.Equal(t, strings.Join(lines[:3], " "), rec.Addresses.Current)
		assert.Equal(t, strings.Join(lines[3:], " "), rec.Addresses.Permanent)
	})

	t.Run("超过六行时多余行被丢弃", func(t *testing.T) {
		var lines []string
		for i := 0; i < 8; i++ {
			lines = append(lines, "address line")
		}
		extractor := NewDeterministicExtractor(nil)
		rec := extractor.Extract(strings.Join(lines, "\n"))

		assert.Equal(t, strings.Join(lines[:3], " "), rec.Addresses.Current)
		assert.Equal(t, strings.Join(lines[3:6], " "), rec.Addresses.Permanent)
	})
}

// TestDeterministicExtract_AdversarialInput 超长行和怪异字符不应引发异常
func TestDeterministicExtract_AdversarialInput(t *testing.T) {
	text := strings.Repeat("@@@@\x00\xff ", 10000) + "\n" + strings.Repeat("a", 100000)

	extractor := NewDeterministicExtractor(nil)
	assert.NotPanics(t, func() {
		rec := extractor.Extract(text)
		require.NotNil(t, rec)
	})
}
