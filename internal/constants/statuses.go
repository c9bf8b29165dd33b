package constants

// 摄入记录的处理状态流转:
// PENDING_PARSING -> PARSING -> PARSED -> DELIVERED
// 任何阶段失败进入对应的 *_FAILED 状态；重复文件进入 DUPLICATE_SKIPPED
const (
	StatusPendingParsing   = "PENDING_PARSING"
	StatusParsing          = "PARSING"
	StatusParsed           = "PARSED"
	StatusDelivered        = "DELIVERED"
	StatusDuplicateSkipped = "DUPLICATE_SKIPPED"
	StatusParseFailed      = "PARSE_FAILED"
	StatusDeliveryFailed   = "DELIVERY_FAILED"
)

// AllowedStatusesForParsing 允许进入解析阶段的状态集合
// 幂等性保证：重复投递的消息在状态不匹配时直接确认跳过
var AllowedStatusesForParsing = map[string]bool{
	StatusPendingParsing: true,
	StatusParseFailed:    true,
}

// AllowedStatusesForDelivery 允许进入投递阶段的状态集合
var AllowedStatusesForDelivery = map[string]bool{
	StatusParsed:         true,
	StatusDeliveryFailed: true,
}

// IsStatusAllowed 判断状态是否在允许的集合中
func IsStatusAllowed(status string, allowed map[string]bool) bool {
	return allowed[status]
}
