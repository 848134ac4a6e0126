// Package hub 维护本实例上的 WebSocket 连接，并把房间事件在
// Redis Pub/Sub 与本地客户端之间双向转发。所有广播都走 Redis 频道，
// 多实例部署时各实例的 Hub 订阅同一频道即可互通。
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"collaborative-whiteboard/internal/domain"
	"collaborative-whiteboard/internal/repository"
	"collaborative-whiteboard/internal/service"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type    string // "register", "unregister", "inbound"
	RoomID  uint
	UserID  uint
	Client  *Client
	RawData []byte // 仅用于 inbound (原始 WebSocket 消息)
}

// roomSubscription 记录一个房间的 Redis 订阅，房间清空时取消。
type roomSubscription struct {
	cancel func()
}

// Hub 维护活跃客户端集合并协调消息处理。
type Hub struct {
	messageChan chan HubMessage

	// map[roomID]map[*Client]bool
	rooms   map[uint]map[*Client]bool
	subs    map[uint]*roomSubscription
	roomsMu sync.RWMutex

	liveService    *service.LiveService
	messageService *service.MessageService
	boardService   *service.BoardService
	subscriber     repository.EventSubscriber
	live           repository.LiveStateRepository
}

// NewHub 创建并返回一个新的 Hub 实例。
func NewHub(
	liveService *service.LiveService,
	messageService *service.MessageService,
	boardService *service.BoardService,
	subscriber repository.EventSubscriber,
	live repository.LiveStateRepository,
) *Hub {
	if liveService == nil {
		panic("LiveService cannot be nil for Hub")
	}
	if messageService == nil {
		panic("MessageService cannot be nil for Hub")
	}
	if boardService == nil {
		panic("BoardService cannot be nil for Hub")
	}
	if subscriber == nil {
		panic("EventSubscriber cannot be nil for Hub")
	}
	if live == nil {
		panic("LiveStateRepository cannot be nil for Hub")
	}
	return &Hub{
		messageChan:    make(chan HubMessage, 512),
		rooms:          make(map[uint]map[*Client]bool),
		subs:           make(map[uint]*roomSubscription),
		liveService:    liveService,
		messageService: messageService,
		boardService:   boardService,
		subscriber:     subscriber,
		live:           live,
	}
}

// Run 启动 Hub 的主事件处理循环。应在单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.Type {
		case "register":
			h.registerClient(msg.Client)
		case "unregister":
			h.unregisterClient(msg.Client)
		case "inbound":
			// 异步处理，避免慢的 DB/Redis 调用阻塞 Hub 主循环
			go h.handleInbound(msg)
		default:
			log.Warnf("Hub: Received unknown message type: %s from user %d in room %d", msg.Type, msg.UserID, msg.RoomID)
		}
	}
	log.Info("Hub is shutting down...")
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 false 表示队列已满，消息被丢弃。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithFields(logrus.Fields{
			"message_type": msg.Type,
			"room_id":      msg.RoomID,
			"user_id":      msg.UserID,
		}).Warn("Hub message channel full, dropping message")
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to register a nil client")
		return
	}
	roomID := client.RoomID()
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": client.UserID(),
		"action":  "registerClient",
	})

	h.roomsMu.Lock()
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[*Client]bool)
		// 本实例首个进入该房间的客户端，建立 Redis 订阅
		h.subscribeRoomLocked(roomID)
	}
	h.rooms[roomID][client] = true
	h.roomsMu.Unlock()
	logCtx.Info("Client registered to Hub")

	go h.sendInitialState(client)
}

func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: Attempted to unregister a nil client")
		return
	}
	roomID := client.RoomID()
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": client.UserID(),
		"action":  "unregisterClient",
	})

	h.roomsMu.Lock()
	if roomClients, roomExists := h.rooms[roomID]; roomExists {
		if _, clientExists := roomClients[client]; clientExists {
			delete(roomClients, client)

			// 关闭 send 通道使 WritePump 退出 (幂等，缓冲非空也会关闭)
			client.closeSend()

			if len(roomClients) == 0 {
				delete(h.rooms, roomID)
				// 本实例最后一个客户端离开，取消 Redis 订阅
				if sub, ok := h.subs[roomID]; ok {
					sub.cancel()
					delete(h.subs, roomID)
				}
				logCtx.Info("Room empty, removed from Hub and unsubscribed")
			}
		} else {
			logCtx.Warn("Client not found in room during unregister")
		}
	} else {
		logCtx.Warn("Room not found during client unregister")
	}
	h.roomsMu.Unlock()
	logCtx.Info("Client unregistered from Hub")
}

// subscribeRoomLocked 建立房间的 Redis 订阅并启动转发 goroutine。
// 调用方必须持有 roomsMu 写锁。
func (h *Hub) subscribeRoomLocked(roomID uint) {
	events, cancel, err := h.subscriber.SubscribeRoom(context.Background(), roomID)
	if err != nil {
		logrus.WithError(err).WithField("room_id", roomID).
			Error("Hub: Failed to subscribe room channel, cross-instance events unavailable")
		return
	}
	h.subs[roomID] = &roomSubscription{cancel: cancel}

	go func() {
		for payload := range events {
			h.broadcastLocal(roomID, payload)
		}
		logrus.WithField("room_id", roomID).Debug("Hub: Room subscription loop exited")
	}()
}

// broadcastLocal 把一条已编码的事件发给本实例上该房间的所有客户端。
// 事件信封中带有来源 user_id，客户端自行决定是否忽略自己的回声。
func (h *Hub) broadcastLocal(roomID uint, payload []byte) {
	h.roomsMu.RLock()
	roomClients, ok := h.rooms[roomID]
	clientsToSend := make([]*Client, 0, len(roomClients))
	if ok {
		for client := range roomClients {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.roomsMu.RUnlock()

	if len(clientsToSend) == 0 {
		return
	}

	for _, client := range clientsToSend {
		// 非阻塞发送，避免单个慢客户端阻塞广播
		if !client.trySend(payload) {
			logrus.WithFields(logrus.Fields{
				"room_id":          roomID,
				"receiver_user_id": client.UserID(),
			}).Warn("Client send channel full or closed during broadcast, skipping this client")
		}
	}
}

// sendInitialState 把房间当前激活状态推送给新连接的客户端。
func (h *Hub) sendInitialState(client *Client) {
	if client == nil {
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":   client.RoomID(),
		"user_id":   client.UserID(),
		"operation": "sendInitialState",
	})

	ctx := context.Background()
	state, err := h.boardService.GetActiveState(ctx, client.RoomID())
	if err != nil {
		logCtx.WithError(err).Error("Failed to get active state for new client")
		errorMsg := `{"type": "error", "message": "Failed to load initial board state"}`
		client.trySend([]byte(errorMsg))
		return
	}

	snapshotMsg := map[string]interface{}{
		"type":     "snapshot",
		"board_id": state.BoardID,
		"version":  state.Version,
		"state":    json.RawMessage(state.Data),
	}
	stateBytes, err := json.Marshal(snapshotMsg)
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal snapshot message")
		return
	}

	if client.trySend(stateBytes) {
		logCtx.WithField("version", state.Version).Info("Initial state sent to client channel")
	} else {
		logCtx.Warn("Client send channel full or closed when trying to send initial state, message dropped")
	}
}

// inboundEnvelope 是客户端上行消息的信封。
type inboundEnvelope struct {
	Type    string          `json:"type"` // "chat" / "cursor" / "patch"
	Payload json.RawMessage `json:"payload"`
}

// chatPayload 是 chat 上行消息的内容。
type chatPayload struct {
	Text string `json:"text"`
}

// handleInbound 处理一条客户端上行消息。
// chat 先持久化再广播；cursor 只广播不落库；patch 交给 LiveService
// (暂存 + 计数 + 广播)。所有广播统一经由 Redis 频道回流到各实例。
func (h *Hub) handleInbound(msg HubMessage) {
	ctx := context.Background()
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":   msg.RoomID,
		"user_id":   msg.UserID,
		"operation": "handleInbound",
	})

	var envelope inboundEnvelope
	if err := json.Unmarshal(msg.RawData, &envelope); err != nil {
		logCtx.WithError(err).Warn("Failed to decode inbound envelope, dropping")
		return
	}

	switch envelope.Type {
	case "chat":
		var chat chatPayload
		if err := json.Unmarshal(envelope.Payload, &chat); err != nil {
			logCtx.WithError(err).Warn("Failed to decode chat payload")
			return
		}
		message, err := h.messageService.PostMessage(ctx, msg.RoomID, msg.UserID, chat.Text)
		if err != nil {
			logCtx.WithError(err).Warn("Failed to persist chat message")
			return
		}
		payload, err := json.Marshal(message)
		if err != nil {
			logCtx.WithError(err).Error("Failed to marshal chat message for broadcast")
			return
		}
		event := domain.RoomEvent{Type: "chat", RoomID: msg.RoomID, UserID: msg.UserID, Payload: payload}
		if err := h.live.PublishEvent(ctx, event); err != nil {
			logCtx.WithError(err).Warn("Failed to broadcast chat message")
		}

	case "cursor":
		// 光标位置是瞬态数据，只广播不持久化
		event := domain.RoomEvent{Type: "cursor", RoomID: msg.RoomID, UserID: msg.UserID, Payload: envelope.Payload}
		if err := h.live.PublishEvent(ctx, event); err != nil {
			logCtx.WithError(err).Debug("Failed to broadcast cursor event")
		}

	case "patch":
		var patch domain.Patch
		if err := json.Unmarshal(envelope.Payload, &patch); err != nil {
			logCtx.WithError(err).Warn("Failed to decode patch payload")
			return
		}
		patch.UserID = msg.UserID
		if err := h.liveService.ApplyPatch(ctx, msg.RoomID, patch); err != nil {
			logCtx.WithError(err).Warn("Failed to apply patch")
		}

	default:
		logCtx.Warnf("Unknown inbound message type: %s", envelope.Type)
	}
}
