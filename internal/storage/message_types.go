package storage

import "time"

// CandidateUploadMessage 原始文件已入库事件，发布到摄入队列
type CandidateUploadMessage struct {
	SubmissionUUID      string    `json:"submission_uuid"`          // 摄入记录UUID，主键
	SubmissionTimestamp time.Time `json:"submission_timestamp"`     // 文件到达时间
	SourceChannel       string    `json:"source_channel,omitempty"` // watcher / drive / api
	OriginalFilename    string    `json:"original_filename"`        // 原始文件名
	OriginalObjectKey   string    `json:"original_object_key"`      // MinIO原始文件对象路径
	RawFileMD5          string    `json:"raw_file_md5,omitempty"`   // 原始文件MD5，失败回滚去重记录时使用
}

// CandidateParsedMessage 档案已解析事件，经outbox发布到投递队列
type CandidateParsedMessage struct {
	SubmissionUUID   string `json:"submission_uuid"`
	CandidateID      string `json:"candidate_id"`
	RecordObjectKey  string `json:"record_object_key"`           // 解析结果JSON在MinIO中的对象路径
	OriginalFilename string `json:"original_filename,omitempty"` // 投递时回填的来源文件列
	SourceChannel    string `json:"source_channel,omitempty"`
	ParserVersion    string `json:"parser_version,omitempty"`
}
