package transport

import (
	"go.uber.org/zap"

	"mensajeria/models"
)

// RoomBinder 告诉服务端当前视图在看哪个会话，推送按房间过滤。
// 纯信令透传，不持有状态。切换会话时必须先 Leave 旧的再 Join 新的
type RoomBinder struct {
	manager *Manager
	log     *zap.Logger
}

func NewRoomBinder(m *Manager, log *zap.Logger) *RoomBinder {
	return &RoomBinder{manager: m, log: log}
}

// JoinRoom 订阅会话。没有活连接或 id 非法时为空操作
func (b *RoomBinder) JoinRoom(conversacionID uint) {
	if conversacionID == 0 {
		return
	}
	conn := b.manager.Current()
	if conn == nil {
		return
	}
	if err := conn.Emit(models.PushEnvelope{Tipo: models.PushJoin, ConversacionID: conversacionID}); err != nil {
		b.log.Warn("join room failed", zap.Uint("conversacion_id", conversacionID), zap.Error(err))
	}
}

// LeaveRoom 取消订阅
func (b *RoomBinder) LeaveRoom(conversacionID uint) {
	if conversacionID == 0 {
		return
	}
	conn := b.manager.Current()
	if conn == nil {
		return
	}
	if err := conn.Emit(models.PushEnvelope{Tipo: models.PushLeave, ConversacionID: conversacionID}); err != nil {
		b.log.Warn("leave room failed", zap.Uint("conversacion_id", conversacionID), zap.Error(err))
	}
}
