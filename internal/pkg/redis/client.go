// internal/pkg/redis/client.go
package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client 封装 go-redis 客户端，并托管业务注册的 Lua 脚本
type Client struct {
	rdb *redis.Client

	scriptsLock sync.RWMutex
	scripts     map[string]*redis.Script
}

// NewClient 创建一个新的 Redis 客户端
func NewClient(addr string) *Client {
	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
		scripts: make(map[string]*redis.Script),
	}
}

// GetClient 暴露底层客户端，供需要 pipeline 等高级能力的调用方使用
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// LoadScriptFromContent 注册一段 Lua 脚本
// go-redis 的 Script 会优先走 EVALSHA，未命中时自动回退 EVAL
func (c *Client) LoadScriptFromContent(name, content string) error {
	if content == "" {
		return fmt.Errorf("script %q is empty", name)
	}
	c.scriptsLock.Lock()
	defer c.scriptsLock.Unlock()
	c.scripts[name] = redis.NewScript(content)
	return nil
}

// RunScript 执行一段已注册的脚本
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...interface{}) (interface{}, error) {
	c.scriptsLock.RLock()
	script, ok := c.scripts[name]
	c.scriptsLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("script %q is not loaded", name)
	}
	return script.Run(ctx, c.rdb, keys, args...).Result()
}

// Close 关闭底层连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
