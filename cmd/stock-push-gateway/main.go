// cmd/stock-push-gateway/main.go
//
// 库存推送网关：消费 stock-events 主题，把水位变化实时推给
// 订阅了对应 variant 的 WebSocket 客户端（运营后台、商详页）
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"stockd/internal/pkg/bootstrap"
	"stockd/internal/pkg/logger"
	"stockd/internal/pkg/mq"
	"stockd/internal/service/inventory/domain"
)

const (
	serviceName = "stock-push-gateway"
	servicePort = 8088
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub 维护所有活跃连接，按 variant 维度做订阅分发
type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan domain.StockEvent

	lock sync.RWMutex
	// variant ID -> 订阅了它的客户端集合
	subscribers map[string]map[*Client]struct{}
}

func newHub() *Hub {
	return &Hub{
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		events:      make(chan domain.StockEvent, 256),
		subscribers: make(map[string]map[*Client]struct{}),
	}
}

func (h *Hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.lock.Lock()
			for _, variantID := range client.variants {
				if h.subscribers[variantID] == nil {
					h.subscribers[variantID] = make(map[*Client]struct{})
				}
				h.subscribers[variantID][client] = struct{}{}
			}
			h.lock.Unlock()
			logger.Logger().Info().Strs("variants", client.variants).Msg("Client subscribed")
		case client := <-h.unregister:
			h.lock.Lock()
			for _, variantID := range client.variants {
				if set, ok := h.subscribers[variantID]; ok {
					if _, member := set[client]; member {
						delete(set, client)
						if len(set) == 0 {
							delete(h.subscribers, variantID)
						}
					}
				}
			}
			h.lock.Unlock()
			close(client.send)
		case event := <-h.events:
			h.broadcast(event)
		}
	}
}

func (h *Hub) broadcast(event domain.StockEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.lock.RLock()
	defer h.lock.RUnlock()
	for client := range h.subscribers[event.VariantID] {
		select {
		case client.send <- payload:
		default:
			// 发送缓冲已满的慢客户端直接丢这条，不阻塞广播
		}
	}
}

// Client 是一个 WebSocket 连接
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	variants []string
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		// 客户端只发心跳，读到错误即视为断开
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	variants := r.URL.Query()["variant_id"]
	if len(variants) == 0 {
		http.Error(w, "at least one variant_id is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger().Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), variants: variants}
	hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeStockEvents 消费库存事件并喂给 Hub
// FetchMessage + 显式 CommitMessages，推送失败的消息不影响位点推进：
// 推送是尽力而为的旁路，落后的客户端重连后以查询接口对齐
func consumeStockEvents(ctx context.Context, reader *kafka.Reader, hub *Hub, failures *mq.FailureHandler) {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Ctx(ctx).Error().Err(err).Msg("Failed to fetch stock event")
			continue
		}
		msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)

		var event domain.StockEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			// 坏消息移交 DLT 后照常提交位点，不阻塞后续事件
			failures.Handle(msgCtx, msg, err)
		} else {
			select {
			case hub.events <- event:
			case <-ctx.Done():
				return
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Msg("Failed to commit stock event offset")
		}
	}
}

func main() {
	bootstrap.Init(serviceName)
	cfg := bootstrap.GetCurrentConfig()

	hub := newHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.run(hubCtx)

	reader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.StockEventsTopic, serviceName+"-group")
	dltWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.StockEventsTopic+".dlt")
	failures := mq.NewFailureHandler(dltWriter)
	go consumeStockEvents(hubCtx, reader, hub, failures)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, w, r)
			})
		},
		OnShutdown: func(ctx context.Context) {
			stopHub()
			if err := reader.Close(); err != nil {
				logger.Logger().Error().Err(err).Msg("Error closing kafka reader")
			}
			if err := dltWriter.Close(); err != nil {
				logger.Logger().Error().Err(err).Msg("Error closing DLT writer")
			}
		},
	})
}
