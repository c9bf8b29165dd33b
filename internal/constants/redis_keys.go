package constants

// Redis Key 前缀和格式常量
// 统一命名规范: app:{module}:{entity}[:{unique_id}]
const (
	// AppPrefix 所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// FileModulePrefix 文件模块
	FileModulePrefix = "file"
	// DriveModulePrefix 云盘模块
	DriveModulePrefix = "drive"

	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityMD5ToID MD5到候选人ID的映射实体
	EntityMD5ToID = "md5_to_id"

	// KeyRawFileMD5Set 原始文件MD5去重集合 (SET)
	// 格式: app:file:dedup_set
	KeyRawFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyDriveFileIDSet 已处理的Drive文件ID集合 (SET)
	// 格式: app:drive:dedup_set
	KeyDriveFileIDSet = AppPrefix + ":" + DriveModulePrefix + ":" + EntityDedupSet

	// KeyFileMD5ToCandidateID 文件MD5到候选人ID的映射 (STRING)
	// 格式: app:file:md5_to_id:{md5}
	KeyFileMD5ToCandidateID = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToID + ":%s"

	// KeyDrivePollLock Drive轮询周期的分布式锁 (STRING)
	// 格式: app:drive:lock
	KeyDrivePollLock = AppPrefix + ":" + DriveModulePrefix + ":" + EntityLock
)
