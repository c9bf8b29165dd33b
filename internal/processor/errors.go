package processor

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrFileDownloadFailed   = errors.New("下载原始文件失败")
	ErrParseTextFailed      = errors.New("提取文档文本失败")
	ErrStoreRecordFailed    = errors.New("上传解析结果失败")
	ErrPublishMessageFailed = errors.New("发布事件消息失败")
	ErrUpdateStatusFailed   = errors.New("更新摄入状态失败")
	ErrDatabaseFailed       = errors.New("数据库操作失败")
	ErrDeliveryFailed       = errors.New("投递候选人档案失败")
)

// CandidateProcessError 包含详细错误信息的自定义错误
type CandidateProcessError struct {
	SubmissionUUID string
	Op             string
	BaseErr        error
	Detail         string
}

func (e *CandidateProcessError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (操作:%s, UUID:%s): %s", e.BaseErr, e.Op, e.SubmissionUUID, e.Detail)
	}
	return fmt.Sprintf("%s (操作:%s, UUID:%s)", e.BaseErr, e.Op, e.SubmissionUUID)
}

func (e *CandidateProcessError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *CandidateProcessError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// 错误构造函数
func NewDownloadError(uuid, detail string) error {
	return &CandidateProcessError{
		SubmissionUUID: uuid,
		Op:             "download",
		BaseErr:        ErrFileDownloadFailed,
		Detail:         detail,
	}
}

func NewParseError(uuid, detail string) error {
	return &CandidateProcessError{
		SubmissionUUID: uuid,
		Op:             "parse",
		BaseErr:        ErrParseTextFailed,
		Detail:         detail,
	}
}

func NewStoreError(uuid, detail string) error {
	return &CandidateProcessError{
		SubmissionUUID: uuid,
		Op:             "store",
		BaseErr:        ErrStoreRecordFailed,
		Detail:         detail,
	}
}

func NewPublishError(uuid, detail string) error {
	return &CandidateProcessError{
		SubmissionUUID: uuid,
		Op:             "publish",
		BaseErr:        ErrPublishMessageFailed,
		Detail:         detail,
	}
}

func NewUpdateError(uuid, detail string) error {
	return &CandidateProcessError{
		SubmissionUUID: uuid,
		Op:             "update",
		BaseErr:        ErrUpdateStatusFailed,
		Detail:         detail,
	}
}

func NewDatabaseError(uuid, detail string) error {
	return &CandidateProcessError{
		SubmissionUUID: uuid,
		Op:             "database",
		BaseErr:        ErrDatabaseFailed,
		Detail:         detail,
	}
}

func NewDeliveryError(uuid, detail string) error {
	return &CandidateProcessError{
		SubmissionUUID: uuid,
		Op:             "delivery",
		BaseErr:        ErrDeliveryFailed,
		Detail:         detail,
	}
}
