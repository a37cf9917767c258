// 包 lru：带 TTL 的进程内 LRU 缓存，供地理编码与路径规划结果复用
package lru

import (
	"container/list"
	"sync"
	"time"
)

// Cache：键由调用方构造（归一化短语或 geohash 组合）
// 约束：容量 <= 0 视为 1；过期项在读取时惰性删除
type Cache[V any] struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type entry[V any] struct {
	k   string
	v   V
	exp time.Time
}

func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache[V]{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element), now: time.Now}
}

func (c *Cache[V]) Get(k string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(entry[V])
		if c.now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	var zero V
	return zero, false
}

func (c *Cache[V]) Set(k string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if e, ok := c.dict[k]; ok {
		e.Value = entry[V]{k: k, v: v, exp: exp}
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(entry[V]{k: k, v: v, exp: exp})
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back == nil {
			break
		}
		delete(c.dict, back.Value.(entry[V]).k)
		c.lst.Remove(back)
	}
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
