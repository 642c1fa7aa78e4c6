package devserver

import "time"

// 角色
const (
	RolEmpresa   = "empresa"
	RolCandidato = "candidato"
	RolAdmin     = "admin"
)

// Usuario 用户模型
type Usuario struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Nombre    string    `json:"nombre"`
	Email     string    `gorm:"unique;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Rol       string    `gorm:"type:varchar(16);index" json:"rol"`
	AvatarURL string    `json:"avatar_url"`
	CreatedAt time.Time `json:"created_at"`
}

// Vacante 职位
type Vacante struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	EmpresaID uint      `gorm:"index" json:"empresa_id"`
	Titulo    string    `json:"titulo"`
	Activa    bool      `gorm:"default:true;index" json:"activa"`
	CreatedAt time.Time `json:"created_at"`
}

// Postulacion 候选人对职位的投递，职位会话的创建前提
type Postulacion struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	VacanteID   uint      `gorm:"index:idx_postulacion_par,unique" json:"vacante_id"`
	CandidatoID uint      `gorm:"index:idx_postulacion_par,unique" json:"candidato_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Conversacion 会话。职位会话对 (vacante_id, usuario_b) 幂等，
// usuario_a 是企业侧，usuario_b 是候选人
type Conversacion struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Tipo               string    `gorm:"type:varchar(10);index" json:"tipo"`
	VacanteID          *uint     `gorm:"index" json:"vacante_id"`
	UsuarioA           uint      `gorm:"index" json:"usuario_a"`
	UsuarioB           uint      `gorm:"index" json:"usuario_b"`
	UltimoMensaje      string    `json:"ultimo_mensaje"`
	UltimoMensajeFecha time.Time `json:"ultimo_mensaje_fecha"`
	CreatedAt          time.Time `json:"created_at"`

	UsuarioAUser Usuario `gorm:"foreignKey:UsuarioA;references:ID" json:"-"`
	UsuarioBUser Usuario `gorm:"foreignKey:UsuarioB;references:ID" json:"-"`
}

// Mensaje 消息，自增主键就是会话内的全序
type Mensaje struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ConversacionID uint      `gorm:"index" json:"conversacion_id"`
	RemitenteID    uint      `json:"remitente_usuario_id"`
	Cuerpo         string    `gorm:"type:text" json:"cuerpo"`
	CreatedAt      time.Time `json:"created_at"`
}

// Participante 参与者的已读水位，只增不减
type Participante struct {
	ConversacionID       uint      `gorm:"primaryKey" json:"conversacion_id"`
	UsuarioID            uint      `gorm:"primaryKey" json:"usuario_id"`
	UltimoLeidoMensajeID uint      `json:"ultimo_leido_mensaje_id"`
	JoinedAt             time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// Otro 返回会话里 usuario 的对方
func (c Conversacion) Otro(usuarioID uint) uint {
	if c.UsuarioA == usuarioID {
		return c.UsuarioB
	}
	return c.UsuarioA
}

// Incluye 是否是会话成员
func (c Conversacion) Incluye(usuarioID uint) bool {
	return c.UsuarioA == usuarioID || c.UsuarioB == usuarioID
}
