package models

// Participant 会话参与者。UltimoLeidoMensajeID 是已读水位线，只增不减
type Participant struct {
	ConversacionID       uint   `json:"conversacion_id"`
	UsuarioID            uint   `json:"usuario_id"`
	Rol                  string `json:"rol"`
	Nombre               string `json:"nombre"`
	AvatarURL            string `json:"avatar_url"`
	UltimoLeidoMensajeID uint   `json:"ultimo_leido_mensaje_id"`
}
