// internal/service/inventory/port/locker.go
package port

// RowLocker 提供跨实例的行级互斥
// 对账在持锁状态下重放台账并写校正分录，避免两个实例同时校正同一行
type RowLocker interface {
	// Lock 阻塞直到拿到 resourceID 对应的锁，返回解锁函数
	Lock(resourceID string) (unlock func() error, err error)
}
