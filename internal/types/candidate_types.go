package types

import "encoding/json"

// DocumentKind 表示输入文档的类型
type DocumentKind string

const (
	// KindPDF PDF文档
	KindPDF DocumentKind = "PDF"
	// KindDocx Word文档（.docx/.doc）
	KindDocx DocumentKind = "DOCX"
	// KindUnknown 无法识别的文档类型
	KindUnknown DocumentKind = "UNKNOWN"
)

// KindFromExtension 根据文件扩展名推断文档类型
func KindFromExtension(ext string) DocumentKind {
	switch ext {
	case ".pdf", ".PDF":
		return KindPDF
	case ".docx", ".doc", ".DOCX", ".DOC":
		return KindDocx
	default:
		return KindUnknown
	}
}

// Identity 候选人身份信息组
// 所有字段均可为空字符串，但键在序列化结果中始终存在
type Identity struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Designation string `json:"designation"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	DOB         string `json:"dob"`
	Gender      string `json:"gender"`
	Nationality string `json:"nationality"`
}

// DocumentIDs 候选人证件信息组
type DocumentIDs struct {
	PANNumber      string `json:"pan_number"`
	UANNumber      string `json:"uan_number"`
	PassportNumber string `json:"passport_number"`
	ValidFrom      string `json:"valid_from"`
	ValidTo        string `json:"valid_to"`
}

// EducationEntry 教育经历条目
type EducationEntry struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
	Percentage  string `json:"percentage"`
}

// ExperienceEntry 工作经历条目
type ExperienceEntry struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Addresses 地址信息组
type Addresses struct {
	Current   string `json:"current"`
	Permanent string `json:"permanent"`
}

// CandidateRecord 解析管线的最终输出：一位候选人的结构化档案
// 五个顶层分组的所有键在JSON输出中必定存在（字段不使用omitempty），
// 外部协作方（表格写入器、门户上传器）依赖这一固定的字段集合和嵌套结构
type CandidateRecord struct {
	Identity   Identity          `json:"identity"`
	Documents  DocumentIDs       `json:"documents"`
	Education  []EducationEntry  `json:"education"`
	Experience []ExperienceEntry `json:"experience"`
	Addresses  Addresses         `json:"addresses"`
}

// NewCandidateRecord 创建一个全键存在、全部为空值的候选人记录
func NewCandidateRecord() *CandidateRecord {
	return &CandidateRecord{
		Education:  []EducationEntry{},
		Experience: []ExperienceEntry{},
	}
}

// MarshalJSON 保证education/experience序列化为[]而非null
func (r *CandidateRecord) MarshalJSON() ([]byte, error) {
	type alias CandidateRecord
	out := alias(*r)
	if out.Education == nil {
		out.Education = []EducationEntry{}
	}
	if out.Experience == nil {
		out.Experience = []ExperienceEntry{}
	}
	return json.Marshal(out)
}

// Clone 返回记录的深拷贝，切片也会被复制
func (r *CandidateRecord) Clone() *CandidateRecord {
	out := *r
	out.Education = append([]EducationEntry{}, r.Education...)
	out.Experience = append([]ExperienceEntry{}, r.Experience...)
	return &out
}

// PartialRecord 生成式抽取器返回的部分结果
// 形状与CandidateRecord一致，但任意分组都可能缺失；合并器将缺失分组视为空分组
type PartialRecord struct {
	Identity   map[string]string `json:"identity"`
	Documents  map[string]string `json:"documents"`
	Education  []EducationEntry  `json:"education"`
	Experience []ExperienceEntry `json:"experience"`
	Addresses  map[string]string `json:"addresses"`
}

// IsEmpty 判断部分结果是否完全为空
func (p *PartialRecord) IsEmpty() bool {
	if p == nil {
		return true
	}
	return len(p.Identity) == 0 && len(p.Documents) == 0 &&
		len(p.Education) == 0 && len(p.Experience) == 0 && len(p.Addresses) == 0
}

// IdentityKeys identity分组在schema中定义的全部键
var IdentityKeys = []string{"candidate_id", "name", "designation", "email", "phone", "dob", "gender", "nationality"}

// DocumentKeys documents分组在schema中定义的全部键
var DocumentKeys = []string{"pan_number", "uan_number", "passport_number", "valid_from", "valid_to"}
