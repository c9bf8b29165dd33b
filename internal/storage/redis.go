package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"candidate-parser-go/internal/config"
	"candidate-parser-go/internal/constants"
	"candidate-parser-go/internal/tracing"
)

// ErrNotFound key不存在时返回，包装底层的redis.Nil
var ErrNotFound = redis.Nil

// Redis操作专用tracer
var redisTracer = otel.Tracer("candidate-parser-go/storage/redis")

// Redis 去重记录与分布式锁的键值存储
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建Redis客户端连接
func NewRedisAdapter(cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client: client,
		config: cfg,
	}, nil
}

// Close 关闭Redis连接
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// GetMD5ExpireDuration 返回配置的MD5记录过期时间
func (r *Redis) GetMD5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 180
	}
	return time.Duration(days) * 24 * time.Hour
}

// checkAndAddSetMember 原子地检查成员是否已在集合中并添加，返回之前是否存在
// Lua脚本保证检查与添加之间没有并发窗口
func (r *Redis) checkAndAddSetMember(ctx context.Context, spanName, setKey, member string) (exists bool, err error) {
	ctx, span := redisTracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("net.peer.name", r.config.Address),
		attribute.String("db.operation", "EVAL"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(setKey)),
		attribute.String("db.redis.member", tracing.SafeRedisKey(member)),
	)

	if r.Client == nil {
		err = fmt.Errorf("redis client is not initialized")
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return false, err
	}

	script := `
		local exists = redis.call('SISMEMBER', KEYS[1], ARGV[1])
		redis.call('SADD', KEYS[1], ARGV[1])
		redis.call('EXPIRE', KEYS[1], ARGV[2])
		return exists
	`

	expiry := r.GetMD5ExpireDuration().Seconds()

	res, err := r.Client.Eval(ctx, script, []string{setKey}, member, expiry).Result()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return false, fmt.Errorf("执行原子检查和添加操作失败: %w", err)
	}

	existsVal, ok := res.(int64)
	if !ok {
		err := fmt.Errorf("意外的Redis返回类型: %T", res)
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return false, err
	}

	exists = existsVal == 1
	span.SetAttributes(attribute.Bool("already_exists", exists))
	span.SetStatus(codes.Ok, "")

	return exists, nil
}

// CheckAndAddRawFileMD5 原子地检查并登记原始文件MD5，返回之前是否已见过
func (r *Redis) CheckAndAddRawFileMD5(ctx context.Context, md5Hex string) (bool, error) {
	return r.checkAndAddSetMember(ctx, "Redis.CheckAndAddRawFileMD5", constants.KeyRawFileMD5Set, md5Hex)
}

// CheckAndAddDriveFileID 原子地检查并登记Drive文件ID，返回之前是否已处理
func (r *Redis) CheckAndAddDriveFileID(ctx context.Context, fileID string) (bool, error) {
	return r.checkAndAddSetMember(ctx, "Redis.CheckAndAddDriveFileID", constants.KeyDriveFileIDSet, fileID)
}

// RemoveRawFileMD5 从去重集合中移除原始文件MD5
// 摄入失败时回滚去重记录，使同一文件可被重新提交
func (r *Redis) RemoveRawFileMD5(ctx context.Context, md5Hex string) error {
	ctx, span := redisTracer.Start(ctx, "Redis.RemoveRawFileMD5",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.String("db.operation", "SREM"),
		attribute.String("db.redis.key", constants.KeyRawFileMD5Set),
		attribute.String("db.redis.member", tracing.SafeRedisKey(md5Hex)),
	)

	result, err := r.Client.SRem(ctx, constants.KeyRawFileMD5Set, md5Hex).Result()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("从集合中移除MD5失败: %w", err)
	}

	span.SetAttributes(attribute.Int64("removed_count", result))
	span.SetStatus(codes.Ok, "")

	return nil
}

// MapMD5ToCandidateID 记录文件MD5到候选人ID的映射，便于追溯重复文件的归属
func (r *Redis) MapMD5ToCandidateID(ctx context.Context, md5Hex, candidateID string) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	key := fmt.Sprintf(constants.KeyFileMD5ToCandidateID, md5Hex)
	return r.Client.Set(ctx, key, candidateID, r.GetMD5ExpireDuration()).Err()
}

// GetCandidateIDByMD5 查询文件MD5对应的候选人ID
func (r *Redis) GetCandidateIDByMD5(ctx context.Context, md5Hex string) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	key := fmt.Sprintf(constants.KeyFileMD5ToCandidateID, md5Hex)
	return r.Client.Get(ctx, key).Result()
}

// AcquireLock 尝试获取分布式锁，成功时返回锁持有者标识
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	if r.Client == nil {
		return "", fmt.Errorf("redis client is not initialized")
	}
	lockValue := fmt.Sprintf("%d", time.Now().UnixNano())
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return lockValue, nil
	}
	return "", nil
}

// ReleaseLock 释放分布式锁，Lua脚本保证只释放自己持有的锁
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	if r.Client == nil {
		return false, fmt.Errorf("redis client is not initialized")
	}
	script := `
        if redis.call("get", KEYS[1]) == ARGV[1] then
            return redis.call("del", KEYS[1])
        else
            return 0
        end
    `
	res, err := r.Client.Eval(ctx, script, []string{lockKey}, lockValue).Result()
	if err != nil {
		return false, err
	}

	if released, ok := res.(int64); ok && released == 1 {
		return true, nil
	}

	return false, nil
}
