package parser

import (
	"log"
	"os"
	"regexp"
	"strings"

	"candidate-parser-go/internal/types"
)

// 确定性抽取使用的全部模式，包初始化时编译
var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`(\+91[\s-]?)?[6-9]\d{9}|\b0?[6-9]\d{9}\b`)

	panRe      = regexp.MustCompile(`[A-Z]{5}[0-9]{4}[A-Z]`)
	uanRe      = regexp.MustCompile(`\b\d{12}\b`)
	passportRe = regexp.MustCompile(`[A-Z]{1}[0-9]{7}|[A-Z]{2}[0-9]{7}`)

	// 出生日期按优先级尝试：日/月/年 → 年/月/日 → 英文月名
	dobRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`),
		regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`),
		regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2},?\s+\d{4}\b`),
	}

	// 姓名先尝试带标签的形式，失败时取首个以大写单词开头的行
	// 捕获组只允许空格不允许换行，避免吞掉下一行内容
	nameLabeledRe  = regexp.MustCompile(`(?i:candidate name|full name|name)[\s:]+([A-Z][a-zA-Z ]+)`)
	nameFallbackRe = regexp.MustCompile(`(?m)^([A-Z][a-zA-Z ]{2,})`)

	// 职位先尝试带标签的形式，失败时在常见职称词表中找首个出现
	designationLabeledRe = regexp.MustCompile(`(?i)(?:designation|title|position)[\s:]+([A-Za-z ]+)`)
	designationVocabRe   = regexp.MustCompile(`(?i)(?:software engineer|developer|manager|analyst|consultant|engineer)`)

	genderRe      = regexp.MustCompile(`\b(male|female|other|m|f)\b`)
	nationalityRe = regexp.MustCompile(`(?i)(?:nationality|citizen)[\s:]+([A-Za-z]+)`)
)

// addressKeywords 判定地址行的关键词集合
var addressKeywords = []string{"address", "residence", "location", "city", "state", "pincode"}

// fieldRule 一条独立的字段抽取规则
// 规则之间互不依赖；单条规则的内部错误不影响其余规则
type fieldRule struct {
	name  string
	apply func(text string, rec *types.CandidateRecord)
}

// DeterministicExtractor 基于固定文本模式的字段抽取器，无需模型推理
// 组件为纯函数式、无副作用；对任意输入都返回五个分组齐全的记录
type DeterministicExtractor struct {
	rules  []fieldRule
	logger *log.Logger
}

// NewDeterministicExtractor 创建确定性字段抽取器
func NewDeterministicExtractor(logger *log.Logger) *DeterministicExtractor {
	if logger == nil {
		logger = log.New(os.Stderr, "[规则抽取] ", log.LstdFlags)
	}
	e := &DeterministicExtractor{logger: logger}
	e.rules = []fieldRule{
		{"email", extractEmail},
		{"phone", extractPhone},
		{"pan_number", extractPAN},
		{"uan_number", extractUAN},
		{"passport_number", extractPassport},
		{"dob", extractDOB},
		{"name", extractName},
		{"designation", extractDesignation},
		{"gender", extractGender},
		{"nationality", extractNationality},
		{"addresses", extractAddresses},
	}
	return e
}

// Extract 对纯文本依次应用全部规则，返回部分填充的候选人记录
// 每条规则独立隔离执行，规则内部的panic只会跳过该字段
func (e *DeterministicExtractor) Extract(text string) *types.CandidateRecord {
	rec := types.NewCandidateRecord()
	for _, rule := range e.rules {
		e.applyIsolated(rule, text, rec)
	}
	return rec
}

// applyIsolated 隔离执行单条规则，捕获panic避免一条坏规则压制其余规则
func (e *DeterministicExtractor) applyIsolated(rule fieldRule, text string, rec *types.CandidateRecord) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Printf("规则 %s 执行异常，已跳过: %v", rule.name, r)
		}
	}()
	rule.apply(text, rec)
}

func extractEmail(text string, rec *types.CandidateRecord) {
	if m := emailRe.FindString(text); m != "" {
		rec.Identity.Email = m
	}
}

func extractPhone(text string, rec *types.CandidateRecord) {
	if m := phoneRe.FindString(text); m != "" {
		// 归一化：去除连字符和空格
		m = strings.ReplaceAll(m, "-", "")
		m = strings.ReplaceAll(m, " ", "")
		rec.Identity.Phone = m
	}
}

func extractPAN(text string, rec *types.CandidateRecord) {
	if m := panRe.FindString(strings.ToUpper(text)); m != "" {
		rec.Documents.PANNumber = m
	}
}

func extractUAN(text string, rec *types.CandidateRecord) {
	if m := uanRe.FindString(text); m != "" {
		rec.Documents.UANNumber = m
	}
}

func extractPassport(text string, rec *types.CandidateRecord) {
	if m := passportRe.FindString(strings.ToUpper(text)); m != "" {
		rec.Documents.PassportNumber = m
	}
}

func extractDOB(text string, rec *types.CandidateRecord) {
	// 按模式优先级取第一个命中的模式，模式内取最早出现的位置
	for _, re := range dobRes {
		if m := re.FindString(text); m != "" {
			rec.Identity.DOB = m
			return
		}
	}
}

func extractName(text string, rec *types.CandidateRecord) {
	if m := nameLabeledRe.FindStringSubmatch(text); len(m) > 1 {
		rec.Identity.Name = strings.TrimSpace(m[1])
		return
	}
	if m := nameFallbackRe.FindStringSubmatch(text); len(m) > 1 {
		rec.Identity.Name = strings.TrimSpace(m[1])
	}
}

func extractDesignation(text string, rec *types.CandidateRecord) {
	if m := designationLabeledRe.FindStringSubmatch(text); len(m) > 1 {
		rec.Identity.Designation = strings.TrimSpace(m[1])
		return
	}
	// 词表命中时保留原文出现形式
	if m := designationVocabRe.FindString(text); m != "" {
		rec.Identity.Designation = m
	}
}

func extractGender(text string, rec *types.CandidateRecord) {
	if m := genderRe.FindStringSubmatch(strings.ToLower(text)); len(m) > 1 {
		rec.Identity.Gender = m[1]
	}
}

func extractNationality(text string, rec *types.CandidateRecord) {
	if m := nationalityRe.FindStringSubmatch(text); len(m) > 1 {
		rec.Identity.Nationality = strings.TrimSpace(m[1])
	}
}

// extractAddresses 扫描全部行，含关键词的行按文档顺序归集：
// 前3行拼为现住址，第4~6行拼为永久住址；不足4行时永久住址等于现住址
func extractAddresses(text string, rec *types.CandidateRecord) {
	var addressLines []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, keyword := range addressKeywords {
			if strings.Contains(lower, keyword) {
				addressLines = append(addressLines, strings.TrimSpace(line))
				break
			}
		}
	}

	if len(addressLines) == 0 {
		return
	}

	currentEnd := len(addressLines)
	if currentEnd > 3 {
		currentEnd = 3
	}
	rec.Addresses.Current = strings.Join(addressLines[:currentEnd], " ")

	if len(addressLines) > 3 {
		permanentEnd := len(addressLines)
		if permanentEnd > 6 {
			permanentEnd = 6
		}
		rec.Addresses.Permanent = strings.Join(addressLines[3:permanentEnd], " ")
	} else {
		rec.Addresses.Permanent = rec.Addresses.Current
	}
}
