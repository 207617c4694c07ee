package statuscache

import (
	"sync"
	"time"

	"view_bot/internal/whatsapp/media"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
)

// Entry 一条已缓存的状态（story）
type Entry struct {
	CachedAt  time.Time
	MessageID types.MessageID
	Author    string    // 发布者 JID（缺失时为会话 JID）
	AltAuthor string    // 发布者的另一种寻址形式（LID），可为空
	Chat      types.JID // 通常为 status@broadcast
	Sender    types.JID
	Message   *waE2E.Message // 原始消息（可能带 view-once 外层）
	MimeType  string
	Kind      media.Kind
	Envelope  media.Envelope
}

// Key 生成缓存键：messageId|author
func Key(messageID, author string) string {
	return messageID + "|" + author
}

// Cache 状态缓存，按 TTL 过期
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]Entry
	aliases map[string]string // 备用键 -> 主键
	now     func() time.Time
}

// New 创建状态缓存
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]Entry),
		aliases: make(map[string]string),
		now:     time.Now,
	}
}

// TTL 缓存有效期
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Put 写入缓存，同键覆盖；带 AltAuthor 的条目同时可按 id|AltAuthor 读取
func (c *Cache) Put(key string, entry Entry) {
	if entry.CachedAt.IsZero() {
		entry.CachedAt = c.now()
	}

	c.mu.Lock()
	c.entries[key] = entry
	if entry.AltAuthor != "" {
		if alias := Key(string(entry.MessageID), entry.AltAuthor); alias != key {
			c.aliases[alias] = key
		}
	}
	c.mu.Unlock()
}

// Get 读取缓存；已过期（未被清理）的条目视为不存在，读取不会刷新时间
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	if !ok {
		if primary, found := c.aliases[key]; found {
			entry, ok = c.entries[primary]
		}
	}
	c.mu.RUnlock()

	if !ok || c.expired(entry, c.now()) {
		return Entry{}, false
	}
	return entry, true
}

// Lookup 先按 id|author 查找，未命中时回退到 id|（作者为空）
func (c *Cache) Lookup(messageID, author string) (Entry, bool) {
	if entry, ok := c.Get(Key(messageID, author)); ok {
		return entry, true
	}
	if author == "" {
		return Entry{}, false
	}
	return c.Get(Key(messageID, ""))
}

// Sweep 删除所有已过期条目，返回删除数量
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
			removed++
		}
	}
	for alias, primary := range c.aliases {
		if _, ok := c.entries[primary]; !ok {
			delete(c.aliases, alias)
		}
	}
	return removed
}

// Len 当前条目数
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) expired(entry Entry, now time.Time) bool {
	return now.Sub(entry.CachedAt) >= c.ttl
}

// Descriptor 将缓存的状态转为可转发的媒体描述
func (e Entry) Descriptor() (*media.Descriptor, bool) {
	return media.VisualDescriptor(e.Message, media.Source{
		Chat:      e.Chat,
		MessageID: e.MessageID,
		Sender:    e.Sender,
	})
}
