// internal/zookeeper/conn.go
package zookeeper

import (
	"time"

	"github.com/go-zookeeper/zk"
)

// Conn 是对 zk.Conn 的轻量封装，统一连接参数并方便测试替换
type Conn struct {
	*zk.Conn
}

// NewConn 建立到 ZooKeeper 集群的连接
func NewConn(addrs []string) (*Conn, error) {
	conn, _, err := zk.Connect(addrs, 10*time.Second)
	if err != nil {
		return nil, err
	}
	return &Conn{Conn: conn}, nil
}
