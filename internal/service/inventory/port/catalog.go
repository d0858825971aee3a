// internal/service/inventory/port/catalog.go
package port

import "context"

// CatalogService 是商品目录协作方的出站端口
// 只在首次为 variant 建库存行时校验其存在性；常规请求假定调用方已完成校验
type CatalogService interface {
	ResolveVariant(ctx context.Context, variantID string) error
}
