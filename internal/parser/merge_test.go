package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"candidate-parser-go/internal/types"
)

// TestMergeRecords_GenerativeWins 生成式结果的非空值应覆盖规则结果
func TestMergeRecords_GenerativeWins(t *testing.T) {
	det := types.NewCandidateRecord()
	det.Identity.Email = "a@x.com"
	det.Identity.Phone = "9876543210"
	det.Documents.PANNumber = "ABCDE1234F"

	gen := &types.PartialRecord{
		Identity: map[string]string{
			"email": "b@y.com",
			"name":  "Asha Verma",
			"phone": "", // 空值不应覆盖
		},
		Documents: map[string]string{
			"uan_number": "123456789012",
		},
	}

	merged := MergeRecords(det, gen, "resume.pdf")
	require.NotNil(t, merged)

	assert.Equal(t, "b@y.com", merged.Identity.Email, "生成式非空值应覆盖规则值")
	assert.Equal(t, "Asha Verma", merged.Identity.Name)
	assert.Equal(t, "9876543210", merged.Identity.Phone, "生成式空值不应覆盖规则值")
	assert.Equal(t, "ABCDE1234F", merged.Documents.PANNumber, "生成式缺失的键应保留规则值")
	assert.Equal(t, "123456789012", merged.Documents.UANNumber)
}

// TestMergeRecords_ListsReplaceWholesale 教育/工作经历按整组替换
func TestMergeRecords_ListsReplaceWholesale(t *testing.T) {
	det := types.NewCandidateRecord()
	det.Education = []types.EducationEntry{{Degree: "B.Tech", Institution: "IIT"}}

	gen := &types.PartialRecord{
		Education: []types.EducationEntry{
			{Degree: "M.Tech", Institution: "NIT", Year: "2018"},
		},
	}

	merged := MergeRecords(det, gen, "resume.pdf")
	require.Len(t, merged.Education, 1)
	assert.Equal(t, "M.Tech", merged.Education[0].Degree, "生成式列表应整组替换规则列表")

	// 生成式列表为空时保留规则列表
	gen2 := &types.PartialRecord{}
	merged2 := MergeRecords(det, gen2, "resume.pdf")
	require.Len(t, merged2.Education, 1)
	assert.Equal(t, "B.Tech", merged2.Education[0].Degree)
}

// TestMergeRecords_NilGenerative 生成式抽取禁用时合并结果等于规则结果
func TestMergeRecords_NilGenerative(t *testing.T) {
	det := types.NewCandidateRecord()
	det.Identity.Email = "a@x.com"
	det.Addresses.Current = "42 MG Road"

	merged := MergeRecords(det, nil, "resume.pdf")

	assert.Equal(t, "a@x.com", merged.Identity.Email)
	assert.Equal(t, "42 MG Road", merged.Addresses.Current)
	assert.NotEmpty(t, merged.Identity.CandidateID, "即使无生成式结果也应派生ID")
}

// TestMergeRecords_DoesNotMutateInput 合并不应修改输入记录
func TestMergeRecords_DoesNotMutateInput(t *testing.T) {
	det := types.NewCandidateRecord()
	det.Identity.Email = "a@x.com"

	gen := &types.PartialRecord{
		Identity: map[string]string{"email": "b@y.com"},
	}

	_ = MergeRecords(det, gen, "resume.pdf")
	assert.Equal(t, "a@x.com", det.Identity.Email, "输入记录不应被合并过程修改")
	assert.Empty(t, det.Identity.CandidateID)
}

// TestDeriveCandidateID 验证ID派生的确定性和格式
func TestDeriveCandidateID(t *testing.T) {
	id1 := DeriveCandidateID("a@x.com", "resume.pdf")
	id2 := DeriveCandidateID("a@x.com", "resume.pdf")
	id3 := DeriveCandidateID("a@x.com", "other.pdf")
	id4 := DeriveCandidateID("b@y.com", "resume.pdf")

	assert.Equal(t, id1, id2, "同一邮箱+来源必须得到同一ID")
	assert.Equal(t, id1, id3, "有邮箱时ID只取决于邮箱，与来源文件无关")
	assert.NotEqual(t, id1, id4, "不同邮箱应得到不同ID")

	assert.Len(t, id1, 8)
	assert.Regexp(t, `^[0-9A-F]{8}$`, id1, "ID应为大写十六进制")

	// 邮箱为空时回退到来源标识，不同来源得到不同ID
	idEmpty1 := DeriveCandidateID("", "resume.pdf")
	idEmpty2 := DeriveCandidateID("", "other.pdf")
	assert.Len(t, idEmpty1, 8)
	assert.NotEqual(t, idEmpty1, idEmpty2, "无邮箱时来源标识保证区分度")
	assert.NotEqual(t, id1, idEmpty1)
}

// TestMergeRecords_SameEmailAcrossFiles 同一邮箱从不同文件解析出的档案必须归并到同一ID
func TestMergeRecords_SameEmailAcrossFiles(t *testing.T) {
	detA := types.NewCandidateRecord()
	detA.Identity.Email = "john@acme.com"
	detB := types.NewCandidateRecord()
	detB.Identity.Email = "john@acme.com"

	mergedA := MergeRecords(detA, nil, "resume_a.pdf")
	mergedB := MergeRecords(detB, nil, "resume_b.pdf")

	assert.Equal(t, mergedA.Identity.CandidateID, mergedB.Identity.CandidateID,
		"同一邮箱的两次提交应得到同一候选人ID")
}

// TestMergeRecords_CandidateIDPrecedence 生成式给出ID时不再派生
func TestMergeRecords_CandidateIDPrecedence(t *testing.T) {
	det := types.NewCandidateRecord()
	gen := &types.PartialRecord{
		Identity: map[string]string{"candidate_id": "CUSTOM01"},
	}

	merged := MergeRecords(det, gen, "resume.pdf")
	assert.Equal(t, "CUSTOM01", merged.Identity.CandidateID)
}
