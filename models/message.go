package models

import "time"

// Message 消息体。ID 由服务端分配，会话内严格递增，排序只看 ID
type Message struct {
	ID                 uint      `json:"id"`
	ConversacionID     uint      `json:"conversacion_id"`
	RemitenteUsuarioID uint      `json:"remitente_usuario_id"`
	RemitenteNombre    string    `json:"remitente_nombre"`
	Cuerpo             string    `json:"cuerpo"`
	CreatedAt          time.Time `json:"created_at"`
}

// IsFrom 是否由该用户发送
func (m Message) IsFrom(usuarioID uint) bool {
	return m.RemitenteUsuarioID == usuarioID
}
