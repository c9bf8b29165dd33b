package constants

import "time"

const (
	// DefaultParserVer 当前解析管线版本，写入提交记录便于追溯
	DefaultParserVer = "1.0"

	// MinDirectTextLen PDF直接提取文本的最小长度（去除首尾空白后），
	// 低于该值视为图片型PDF并转入OCR路径
	MinDirectTextLen = 100

	// GenerativeInputLimit 传给生成式抽取器的文本截断长度
	GenerativeInputLimit = 3000

	// CandidateIDHexLen 候选人ID取摘要十六进制的前N位
	CandidateIDHexLen = 8

	// FileStabilityWait 监视目录中新文件的大小稳定等待时间
	FileStabilityWait = 1 * time.Second

	// DrivePollErrorBackoff Drive轮询出错后的退避时间
	DrivePollErrorBackoff = 60 * time.Second
)

// SupportedExtensions 摄入端接受的文件扩展名
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".doc":  true,
}
