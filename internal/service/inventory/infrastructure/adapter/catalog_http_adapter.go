package adapter

import (
	"context"
	"net/url"

	"stockd/internal/pkg/httpclient"
)

// CatalogHTTPAdapter 是 port.CatalogService 的 HTTP 实现
// 建库存行前调用商品目录服务确认 variant 存在
type CatalogHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

// NewCatalogHTTPAdapter 创建一个新的目录服务适配器
func NewCatalogHTTPAdapter(client *httpclient.Client, baseURL string) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client, baseURL: baseURL}
}

// ResolveVariant 校验 variant 在目录服务中存在
func (a *CatalogHTTPAdapter) ResolveVariant(ctx context.Context, variantID string) error {
	params := url.Values{}
	params.Set("variantId", variantID)
	return a.client.Post(ctx, a.baseURL+"/variants/resolve", params)
}
