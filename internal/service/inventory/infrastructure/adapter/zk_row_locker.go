package adapter

import (
	"stockd/internal/zookeeper"
)

// ZkRowLocker 是 port.RowLocker 的 ZooKeeper 实现
// 对账用它保证同一库存行同一时刻只有一个实例在写校正分录
type ZkRowLocker struct {
	conn *zookeeper.Conn
}

// NewZkRowLocker 创建一个新的行锁适配器
func NewZkRowLocker(conn *zookeeper.Conn) *ZkRowLocker {
	return &ZkRowLocker{conn: conn}
}

// Lock 阻塞获取 resourceID 对应的锁，返回解锁函数
func (l *ZkRowLocker) Lock(resourceID string) (func() error, error) {
	lock := zookeeper.NewDistributedLock(l.conn, resourceID)
	if err := lock.Lock(); err != nil {
		return nil, err
	}
	return lock.Unlock, nil
}
