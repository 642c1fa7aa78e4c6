package models

// 推送通道上的信令类型
const (
	PushJoin    = "join"    // 客户端 -> 服务端：订阅某个会话
	PushLeave   = "leave"   // 客户端 -> 服务端：取消订阅
	PushLeer    = "leer"    // 客户端 -> 服务端：已读回执（ws 镜像）
	PushMensaje = "mensaje" // 服务端 -> 客户端：新消息
	PushLeido   = "leido"   // 服务端 -> 客户端：某参与者的已读水位更新
)

// PushEnvelope 推送通道上的统一信封，按 Tipo 区分字段
type PushEnvelope struct {
	Tipo           string   `json:"tipo"`
	ConversacionID uint     `json:"conversacion_id,omitempty"`
	UsuarioID      uint     `json:"usuario_id,omitempty"`
	MensajeID      uint     `json:"mensaje_id,omitempty"`
	Mensaje        *Message `json:"mensaje,omitempty"`
}
