package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"mensajeria/models"
)

// ListConversations 分页拉取会话列表，按最近活跃排序。q 和 tipo 可为空
func (c *Client) ListConversations(ctx context.Context, page, pageSize int, q, tipo string) ([]models.Conversation, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	if q != "" {
		query.Set("q", q)
	}
	if tipo != "" {
		query.Set("tipo", tipo)
	}

	var items []models.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations", query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetConversation 拉取单个会话的元数据和参与者
func (c *Client) GetConversation(ctx context.Context, id uint) (*models.ConversationDetail, error) {
	var detail models.ConversationDetail
	if err := c.do(ctx, http.MethodGet, "/conversations/"+strconv.FormatUint(uint64(id), 10), nil, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

type createConversationRequest struct {
	Tipo              string `json:"tipo"`
	VacanteID         uint   `json:"vacante_id,omitempty"`
	CandidatoID       uint   `json:"candidato_id,omitempty"`
	UsuarioObjetivoID uint   `json:"usuario_objetivo_id,omitempty"`
}

// CreateVacanteConversation 为 (职位, 候选人) 创建会话。服务端保证幂等：
// 同一对参数重复调用返回同一个会话
func (c *Client) CreateVacanteConversation(ctx context.Context, vacanteID, candidatoID uint) (*models.Conversation, error) {
	req := createConversationRequest{Tipo: models.TipoVacante, VacanteID: vacanteID, CandidatoID: candidatoID}
	var conv models.Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", nil, req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// CreateDirectaConversation 创建（或取回已有的）直接会话
func (c *Client) CreateDirectaConversation(ctx context.Context, usuarioObjetivoID uint) (*models.Conversation, error) {
	req := createConversationRequest{Tipo: models.TipoDirecta, UsuarioObjetivoID: usuarioObjetivoID}
	var conv models.Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", nil, req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}
