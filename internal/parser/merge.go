package parser

import (
	"strings"

	"candidate-parser-go/internal/constants"
	"candidate-parser-go/internal/types"
	"candidate-parser-go/pkg/utils"
)

// MergeRecords 合并确定性抽取与生成式抽取的结果
// 冲突解决策略：生成式结果的非空值覆盖规则结果；
// education/experience按整组替换而非条目级合并；
// 最后派生candidate_id（若仍为空）
func MergeRecords(det *types.CandidateRecord, gen *types.PartialRecord, sourceID string) *types.CandidateRecord {
	merged := det.Clone()

	if gen != nil {
		applyIdentityOverrides(merged, gen.Identity)
		applyDocumentOverrides(merged, gen.Documents)

		if len(gen.Education) > 0 {
			merged.Education = append([]types.EducationEntry{}, gen.Education...)
		}
		if len(gen.Experience) > 0 {
			merged.Experience = append([]types.ExperienceEntry{}, gen.Experience...)
		}

		if v := strings.TrimSpace(gen.Addresses["current"]); v != "" {
			merged.Addresses.Current = v
		}
		if v := strings.TrimSpace(gen.Addresses["permanent"]); v != "" {
			merged.Addresses.Permanent = v
		}
	}

	if merged.Identity.CandidateID == "" {
		merged.Identity.CandidateID = DeriveCandidateID(merged.Identity.Email, sourceID)
	}
	return merged
}

// applyIdentityOverrides 用生成式结果的非空值覆盖identity分组
func applyIdentityOverrides(rec *types.CandidateRecord, overrides map[string]string) {
	fields := map[string]*string{
		"candidate_id": &rec.Identity.CandidateID,
		"name":         &rec.Identity.Name,
		"designation":  &rec.Identity.Designation,
		"email":        &rec.Identity.Email,
		"phone":        &rec.Identity.Phone,
		"dob":          &rec.Identity.DOB,
		"gender":       &rec.Identity.Gender,
		"nationality":  &rec.Identity.Nationality,
	}
	for key, target := range fields {
		if v := strings.TrimSpace(overrides[key]); v != "" {
			*target = v
		}
	}
}

// applyDocumentOverrides 用生成式结果的非空值覆盖documents分组
func applyDocumentOverrides(rec *types.CandidateRecord, overrides map[string]string) {
	fields := map[string]*string{
		"pan_number":      &rec.Documents.PANNumber,
		"uan_number":      &rec.Documents.UANNumber,
		"passport_number": &rec.Documents.PassportNumber,
		"valid_from":      &rec.Documents.ValidFrom,
		"valid_to":        &rec.Documents.ValidTo,
	}
	for key, target := range fields {
		if v := strings.TrimSpace(overrides[key]); v != "" {
			*target = v
		}
	}
}

// DeriveCandidateID 派生稳定的候选人ID：MD5摘要十六进制的前8位，大写
// 摘要输入优先取邮箱，同一邮箱无论来自哪个文件都得到同一个ID；
// 邮箱为空时回退到来源标识
func DeriveCandidateID(email, sourceID string) string {
	source := email
	if source == "" {
		source = sourceID
	}
	digest := utils.CalculateMD5([]byte(source))
	return strings.ToUpper(digest[:constants.CandidateIDHexLen])
}
