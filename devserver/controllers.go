package devserver

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"mensajeria/models"
)

// 用户注册
func Register(c *gin.Context) {
	var input struct {
		Nombre   string `json:"nombre" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		Rol      string `json:"rol" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var existing Usuario
	if err := DB.Where("email = ?", input.Email).First(&existing).Error; err == nil {
		RespondError(c, http.StatusBadRequest, "email_taken", "Email already registered")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to hash password")
		return
	}

	usuario := Usuario{Nombre: input.Nombre, Email: input.Email, Password: string(hashed), Rol: input.Rol}
	if err := DB.Create(&usuario).Error; err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to create user")
		return
	}

	token, err := GenerateToken(&usuario)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to generate token")
		return
	}
	RespondSuccess(c, gin.H{"token": token, "usuario": usuario}, nil)
}

// 用户登录
func Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var usuario Usuario
	if err := DB.Where("email = ?", input.Email).First(&usuario).Error; err != nil {
		RespondError(c, http.StatusUnauthorized, "bad_credentials", "Invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(usuario.Password), []byte(input.Password)); err != nil {
		RespondError(c, http.StatusUnauthorized, "bad_credentials", "Invalid email or password")
		return
	}

	token, err := GenerateToken(&usuario)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to generate token")
		return
	}
	RespondSuccess(c, gin.H{"token": token, "usuario": usuario}, nil)
}

func pageParams(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// GetConversaciones 当前用户的会话列表，按最近活跃降序分页
func GetConversaciones(c *gin.Context) {
	usuario, ok := currentUsuario(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no_user", "User not found in context")
		return
	}
	page, pageSize := pageParams(c)

	query := DB.Model(&Conversacion{}).
		Preload("UsuarioAUser").
		Preload("UsuarioBUser").
		Where("usuario_a = ? OR usuario_b = ?", usuario.ID, usuario.ID)
	if tipo := c.Query("tipo"); tipo != "" {
		query = query.Where("tipo = ?", tipo)
	}

	var total int64
	query.Count(&total)

	var conversaciones []Conversacion
	err := query.
		Order("ultimo_mensaje_fecha DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&conversaciones).Error
	if err != nil {
		log.Println("Error fetching conversations:", err)
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to fetch conversations")
		return
	}

	q := strings.ToLower(c.Query("q"))
	items := make([]models.Conversation, 0, len(conversaciones))
	for _, conv := range conversaciones {
		dto := toConversationDTO(conv, usuario.ID)
		if q != "" && !strings.Contains(strings.ToLower(dto.Contraparte.Nombre), q) &&
			!strings.Contains(strings.ToLower(dto.VacanteTitulo), q) {
			continue
		}
		items = append(items, dto)
	}

	RespondSuccess(c, items, &Meta{Page: page, PageSize: pageSize, Total: total})
}

// GetConversacionByID 会话详情 + 参与者
func GetConversacionByID(c *gin.Context) {
	usuario, ok := currentUsuario(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no_user", "User not found in context")
		return
	}

	conv, done := loadConversacion(c, usuario)
	if done {
		return
	}

	var participantes []Participante
	if err := DB.Where("conversacion_id = ?", conv.ID).Find(&participantes).Error; err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to fetch participants")
		return
	}

	detail := models.ConversationDetail{Conversation: toConversationDTO(*conv, usuario.ID)}
	for _, p := range participantes {
		var u Usuario
		if err := DB.First(&u, p.UsuarioID).Error; err != nil {
			continue
		}
		detail.Participantes = append(detail.Participantes, models.Participant{
			ConversacionID:       p.ConversacionID,
			UsuarioID:            p.UsuarioID,
			Rol:                  u.Rol,
			Nombre:               u.Nombre,
			AvatarURL:            u.AvatarURL,
			UltimoLeidoMensajeID: p.UltimoLeidoMensajeID,
		})
	}
	RespondSuccess(c, detail, nil)
}

// GetMensajes 分页消息历史，页内按 ID 升序
func GetMensajes(c *gin.Context) {
	usuario, ok := currentUsuario(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no_user", "User not found in context")
		return
	}

	conv, done := loadConversacion(c, usuario)
	if done {
		return
	}
	page, pageSize := pageParams(c)

	var total int64
	DB.Model(&Mensaje{}).Where("conversacion_id = ?", conv.ID).Count(&total)

	var mensajes []Mensaje
	err := DB.Where("conversacion_id = ?", conv.ID).
		Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&mensajes).Error
	if err != nil {
		log.Println("Error fetching messages:", err)
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to fetch messages")
		return
	}

	items := make([]models.Message, 0, len(mensajes))
	for _, m := range mensajes {
		items = append(items, toMessageDTO(m))
	}
	RespondSuccess(c, items, &Meta{Page: page, PageSize: pageSize, Total: total})
}

// CreateConversacion 创建会话。职位会话对 (vacante_id, candidato_id) 幂等，
// 且候选人必须投递过该职位；直接会话对无序用户对幂等
func CreateConversacion(c *gin.Context) {
	usuario, ok := currentUsuario(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no_user", "User not found in context")
		return
	}

	var input struct {
		Tipo              string `json:"tipo" binding:"required"`
		VacanteID         uint   `json:"vacante_id"`
		CandidatoID       uint   `json:"candidato_id"`
		UsuarioObjetivoID uint   `json:"usuario_objetivo_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	switch input.Tipo {
	case models.TipoVacante:
		createVacanteConversacion(c, usuario, input.VacanteID, input.CandidatoID)
	case models.TipoDirecta:
		createDirectaConversacion(c, usuario, input.UsuarioObjetivoID)
	default:
		RespondError(c, http.StatusBadRequest, "bad_tipo", "tipo must be 'vacante' or 'directa'")
	}
}

func createVacanteConversacion(c *gin.Context, usuario *Usuario, vacanteID, candidatoID uint) {
	if vacanteID == 0 || candidatoID == 0 {
		RespondError(c, http.StatusBadRequest, "bad_request", "vacante_id and candidato_id are required")
		return
	}

	var vacante Vacante
	if err := DB.First(&vacante, vacanteID).Error; err != nil {
		RespondError(c, http.StatusNotFound, "not_found", "Vacante not found")
		return
	}

	// 没有投递就不允许建会话
	var postulacion Postulacion
	if err := DB.Where("vacante_id = ? AND candidato_id = ?", vacanteID, candidatoID).
		First(&postulacion).Error; err != nil {
		RespondError(c, http.StatusForbidden, "not_eligible", "Candidato has no application for this vacante")
		return
	}

	// 幂等：同一对 (vacante, candidato) 永远只有一个会话
	var existing Conversacion
	err := DB.Preload("UsuarioAUser").Preload("UsuarioBUser").
		Where("tipo = ? AND vacante_id = ? AND usuario_b = ?", models.TipoVacante, vacanteID, candidatoID).
		First(&existing).Error
	if err == nil {
		RespondSuccess(c, toConversationDTO(existing, usuario.ID), nil)
		return
	}

	conv := Conversacion{
		Tipo:               models.TipoVacante,
		VacanteID:          &vacanteID,
		UsuarioA:           vacante.EmpresaID,
		UsuarioB:           candidatoID,
		UltimoMensajeFecha: time.Now(),
	}
	if err := insertConversacion(&conv); err != nil {
		log.Println("Error creating conversation:", err)
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to create conversation")
		return
	}
	DB.Preload("UsuarioAUser").Preload("UsuarioBUser").First(&conv, conv.ID)
	RespondSuccess(c, toConversationDTO(conv, usuario.ID), nil)
}

func createDirectaConversacion(c *gin.Context, usuario *Usuario, objetivoID uint) {
	if objetivoID == 0 {
		RespondError(c, http.StatusBadRequest, "bad_request", "usuario_objetivo_id is required")
		return
	}
	if objetivoID == usuario.ID {
		RespondError(c, http.StatusBadRequest, "bad_request", "Cannot create a conversation with yourself")
		return
	}
	var objetivo Usuario
	if err := DB.First(&objetivo, objetivoID).Error; err != nil {
		RespondError(c, http.StatusNotFound, "not_found", "Target user not found")
		return
	}

	var existing Conversacion
	err := DB.Preload("UsuarioAUser").Preload("UsuarioBUser").
		Where("tipo = ? AND ((usuario_a = ? AND usuario_b = ?) OR (usuario_a = ? AND usuario_b = ?))",
			models.TipoDirecta, usuario.ID, objetivoID, objetivoID, usuario.ID).
		First(&existing).Error
	if err == nil {
		RespondSuccess(c, toConversationDTO(existing, usuario.ID), nil)
		return
	}

	conv := Conversacion{
		Tipo:               models.TipoDirecta,
		UsuarioA:           usuario.ID,
		UsuarioB:           objetivoID,
		UltimoMensajeFecha: time.Now(),
	}
	if err := insertConversacion(&conv); err != nil {
		log.Println("Error creating conversation:", err)
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to create conversation")
		return
	}
	DB.Preload("UsuarioAUser").Preload("UsuarioBUser").First(&conv, conv.ID)
	RespondSuccess(c, toConversationDTO(conv, usuario.ID), nil)
}

func insertConversacion(conv *Conversacion) error {
	if err := DB.Create(conv).Error; err != nil {
		return err
	}
	participantes := []Participante{
		{ConversacionID: conv.ID, UsuarioID: conv.UsuarioA},
		{ConversacionID: conv.ID, UsuarioID: conv.UsuarioB},
	}
	return DB.Create(&participantes).Error
}

// SendMensaje 落库消息、刷新会话预览、推送给对方
func SendMensaje(c *gin.Context) {
	usuario, ok := currentUsuario(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no_user", "User not found in context")
		return
	}

	conv, done := loadConversacion(c, usuario)
	if done {
		return
	}

	var input struct {
		Cuerpo string `json:"cuerpo" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if strings.TrimSpace(input.Cuerpo) == "" {
		RespondError(c, http.StatusBadRequest, "empty_body", "Message body is empty")
		return
	}

	mensaje := Mensaje{
		ConversacionID: conv.ID,
		RemitenteID:    usuario.ID,
		Cuerpo:         input.Cuerpo,
	}
	if err := DB.Create(&mensaje).Error; err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to send message")
		return
	}

	// 更新会话列表排序
	if err := DB.Model(&Conversacion{}).Where("id = ?", conv.ID).
		Updates(map[string]interface{}{
			"ultimo_mensaje":       mensaje.Cuerpo,
			"ultimo_mensaje_fecha": mensaje.CreatedAt,
		}).Error; err != nil {
		log.Println("Failed to update conversation preview:", err)
	}

	dto := toMessageDTO(mensaje)
	GetHub().PushMensaje(conv.Otro(usuario.ID), dto)

	RespondSuccess(c, dto, nil)
}

// MarcarLeido 已读回执。mensaje_id 为空表示读到最新；水位只增不减
func MarcarLeido(c *gin.Context) {
	usuario, ok := currentUsuario(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no_user", "User not found in context")
		return
	}

	conv, done := loadConversacion(c, usuario)
	if done {
		return
	}

	var input struct {
		MensajeID *uint `json:"mensaje_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	var mensajeID uint
	if input.MensajeID != nil {
		mensajeID = *input.MensajeID
	} else {
		var ultimo Mensaje
		if err := DB.Where("conversacion_id = ?", conv.ID).Order("id DESC").First(&ultimo).Error; err == nil {
			mensajeID = ultimo.ID
		}
	}

	if err := DB.Model(&Participante{}).
		Where("conversacion_id = ? AND usuario_id = ? AND ultimo_leido_mensaje_id < ?", conv.ID, usuario.ID, mensajeID).
		Update("ultimo_leido_mensaje_id", mensajeID).Error; err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to update read state")
		return
	}

	GetHub().PushLeido(conv.ID, usuario.ID, mensajeID)
	RespondSuccess(c, gin.H{"mensaje_id": mensajeID}, nil)
}

// GetActiveVacantes 企业侧：我的在招职位
func GetActiveVacantes(c *gin.Context) {
	usuario, ok := currentUsuario(c)
	if !ok {
		RespondError(c, http.StatusUnauthorized, "no_user", "User not found in context")
		return
	}

	var vacantes []Vacante
	if err := DB.Where("empresa_id = ? AND activa = true", usuario.ID).Find(&vacantes).Error; err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to fetch vacantes")
		return
	}
	items := make([]models.Vacante, 0, len(vacantes))
	for _, v := range vacantes {
		items = append(items, models.Vacante{ID: v.ID, Titulo: v.Titulo, Activa: v.Activa})
	}
	RespondSuccess(c, items, nil)
}

// GetPostulaciones 某职位的投递列表
func GetPostulaciones(c *gin.Context) {
	vacanteID, err := strconv.ParseUint(c.Param("vacante_id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", "Invalid vacante_id")
		return
	}

	var postulaciones []Postulacion
	if err := DB.Where("vacante_id = ?", vacanteID).Find(&postulaciones).Error; err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to fetch postulaciones")
		return
	}

	items := make([]models.Postulacion, 0, len(postulaciones))
	for _, p := range postulaciones {
		var candidato Usuario
		if err := DB.First(&candidato, p.CandidatoID).Error; err != nil {
			continue
		}
		items = append(items, models.Postulacion{
			VacanteID:       p.VacanteID,
			CandidatoID:     p.CandidatoID,
			CandidatoNombre: candidato.Nombre,
		})
	}
	RespondSuccess(c, items, nil)
}

// loadConversacion 取 URL 里的会话并做成员校验。出错时已写好响应，返回 done=true
func loadConversacion(c *gin.Context, usuario *Usuario) (*Conversacion, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", "Invalid conversation id")
		return nil, true
	}

	var conv Conversacion
	if err := DB.Preload("UsuarioAUser").Preload("UsuarioBUser").First(&conv, uint(id)).Error; err != nil {
		RespondError(c, http.StatusNotFound, "not_found", "Conversation not found")
		return nil, true
	}
	if !conv.Incluye(usuario.ID) {
		RespondError(c, http.StatusForbidden, "forbidden", "You are not part of this conversation")
		return nil, true
	}
	return &conv, false
}

// toConversationDTO 按观察者解析对方展示信息和未读数
func toConversationDTO(conv Conversacion, viewerID uint) models.Conversation {
	otro := conv.UsuarioAUser
	if conv.UsuarioA == viewerID {
		otro = conv.UsuarioBUser
	}

	dto := models.Conversation{
		ID:   conv.ID,
		Tipo: conv.Tipo,
		Contraparte: models.Counterpart{
			UsuarioID: otro.ID,
			Nombre:    otro.Nombre,
			AvatarURL: otro.AvatarURL,
			Rol:       otro.Rol,
		},
		UltimoMensaje:      conv.UltimoMensaje,
		UltimoMensajeFecha: conv.UltimoMensajeFecha,
	}
	if conv.Tipo == models.TipoVacante && conv.VacanteID != nil {
		dto.VacanteID = *conv.VacanteID
		var vacante Vacante
		if err := DB.First(&vacante, *conv.VacanteID).Error; err == nil {
			dto.VacanteTitulo = vacante.Titulo
		}
	}

	// 未读 = 对方发的、ID 大于我的水位线的消息数
	var participante Participante
	if err := DB.Where("conversacion_id = ? AND usuario_id = ?", conv.ID, viewerID).
		First(&participante).Error; err == nil {
		var unread int64
		DB.Model(&Mensaje{}).
			Where("conversacion_id = ? AND remitente_id <> ? AND id > ?",
				conv.ID, viewerID, participante.UltimoLeidoMensajeID).
			Count(&unread)
		dto.NoLeidos = int(unread)
	}
	return dto
}

func toMessageDTO(m Mensaje) models.Message {
	var remitente Usuario
	nombre := ""
	if err := DB.First(&remitente, m.RemitenteID).Error; err == nil {
		nombre = remitente.Nombre
	}
	return models.Message{
		ID:                 m.ID,
		ConversacionID:     m.ConversacionID,
		RemitenteUsuarioID: m.RemitenteID,
		RemitenteNombre:    nombre,
		Cuerpo:             m.Cuerpo,
		CreatedAt:          m.CreatedAt,
	}
}
