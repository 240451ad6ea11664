package service

import (
	"sync"

	"identidraw-be/internal/service/dto"

	"go.uber.org/zap"
)

// Broadcaster 是编排器对外可见的唯一广播出口，
// 测试中用记录型假实现替换。
type Broadcaster interface {
	Broadcast(code string, resp dto.ResponseWrapper)
	BroadcastExcept(code string, socketID string, resp dto.ResponseWrapper)
	Unicast(socketID string, resp dto.ResponseWrapper)
	JoinRoom(socketID, code string)
	LeaveRoom(socketID, code string)
}

// Hub 维护连接与房间的成员关系。
// 每个连接注册一个带缓冲的发送通道，由传输层的写协程消费；
// 通道满时丢弃消息而不是阻塞领域逻辑。
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan<- dto.ResponseWrapper
	rooms   map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]chan<- dto.ResponseWrapper),
		rooms:   make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Register(socketID string, sendCh chan<- dto.ResponseWrapper) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[socketID] = sendCh
}

// Unregister 移除连接并退出其加入的所有房间。
func (h *Hub) Unregister(socketID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, socketID)

	for code, members := range h.rooms {
		delete(members, socketID)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

// RoomsOf 返回某连接当前加入的所有房间码，供断线清理使用。
func (h *Hub) RoomsOf(socketID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var codes []string

	for code, members := range h.rooms {
		if _, ok := members[socketID]; ok {
			codes = append(codes, code)
		}
	}

	return codes
}

func (h *Hub) JoinRoom(socketID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[code]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[code] = members
	}

	members[socketID] = struct{}{}
}

func (h *Hub) LeaveRoom(socketID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[code]; ok {
		delete(members, socketID)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
}

func (h *Hub) Broadcast(code string, resp dto.ResponseWrapper) {
	h.BroadcastExcept(code, "", resp)
}

func (h *Hub) BroadcastExcept(code string, exceptSocketID string, resp dto.ResponseWrapper) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for socketID := range h.rooms[code] {
		if socketID == exceptSocketID {
			continue
		}

		h.send(socketID, resp)
	}
}

func (h *Hub) Unicast(socketID string, resp dto.ResponseWrapper) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.send(socketID, resp)
}

// send 要求调用方至少持有读锁。
func (h *Hub) send(socketID string, resp dto.ResponseWrapper) {
	sendCh, ok := h.clients[socketID]
	if !ok {
		return
	}

	select {
	case sendCh <- resp:
	default:
		zap.L().Warn(
			"发送响应失败：连接发送通道已满",
			zap.String("socket_id", socketID),
			zap.String("response_type", resp.RespType),
		)
	}
}
