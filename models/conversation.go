package models

import "time"

// 会话类型
const (
	TipoDirecta = "directa" // 两个用户之间的直接会话
	TipoVacante = "vacante" // 绑定到某个职位的会话
)

// 对方用户的展示信息，字段随角色变化由服务端解析
type Counterpart struct {
	UsuarioID uint   `json:"usuario_id"`
	Nombre    string `json:"nombre"`
	AvatarURL string `json:"avatar_url"`
	Rol       string `json:"rol"` // "empresa" | "candidato" | "admin"
}

type Conversation struct {
	ID                 uint        `json:"id"`
	Tipo               string      `json:"tipo"`
	VacanteID          uint        `json:"vacante_id,omitempty"`
	VacanteTitulo      string      `json:"vacante_titulo,omitempty"`
	Contraparte        Counterpart `json:"contraparte"`
	UltimoMensaje      string      `json:"ultimo_mensaje"`
	UltimoMensajeFecha time.Time   `json:"ultimo_mensaje_fecha"`
	NoLeidos           int         `json:"no_leidos"`
}

// DisplayTitle 解析会话标题：职位会话带职位名，直接会话只显示对方
func (c Conversation) DisplayTitle() string {
	if c.Tipo == TipoVacante && c.VacanteTitulo != "" {
		return c.VacanteTitulo + " / " + c.Contraparte.Nombre
	}
	return c.Contraparte.Nombre
}

// 会话详情：元数据 + 参与者
type ConversationDetail struct {
	Conversation
	Participantes []Participant `json:"participantes"`
}
