package api

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	bloomBits   = 1 << 20
	bloomHashes = 4
	bloomWindow = time.Minute
)

// 文档注释：计算布隆过滤器位置
// 背景：FNV64a 结合索引扰动生成 k 个位置，用于 GetBit/SetBit。
// 约束：m 取 2 的幂；k 过大会放大每次请求的 Redis 往返。
func bloomPositions(data []byte, m uint32, k int) []int64 {
	pos := make([]int64, k)
	for i := 0; i < k; i++ {
		h := fnv.New64a()
		h.Write([]byte{byte(i)})
		h.Write(data)
		pos[i] = int64(uint32(h.Sum64() % uint64(m)))
	}
	return pos
}

// 文档注释：检查并写入布隆过滤器位图
// 返回：true 表示首次见到（已写入位图）；false 表示窗口内已出现过。
// 异常：rc 为 nil 或 Redis 出错时视为首次见到，不阻断主流程。
func bloomCheckAndSet(ctx context.Context, rc *redis.Client, key string, positions []int64, ttl time.Duration) (bool, error) {
	if rc == nil {
		return true, nil
	}
	pipe := rc.Pipeline()
	cmds := make([]*redis.IntCmd, len(positions))
	for i, p := range positions {
		cmds[i] = pipe.GetBit(ctx, key, p)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return true, err
	}
	seen := true
	for _, c := range cmds {
		if c.Val() == 0 {
			seen = false
		}
	}
	if seen {
		return false, nil
	}
	pipe = rc.Pipeline()
	for _, p := range positions {
		pipe.SetBit(ctx, key, p, 1)
	}
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return true, err
}

// firstInWindow：同一访问者在一个窗口内重复提交同一请求只计数一次
func firstInWindow(ctx context.Context, rc *redis.Client, visitor, executor, request string, now time.Time) bool {
	bucket := strconv.FormatInt(now.Unix()/int64(bloomWindow/time.Second), 10)
	pos := bloomPositions([]byte(visitor+"|"+executor+"|"+request), bloomBits, bloomHashes)
	first, err := bloomCheckAndSet(ctx, rc, "stats:bloom:"+bucket, pos, 2*bloomWindow)
	return first || err != nil
}
