package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"mensajeria/models"
)

// ListMessages 分页拉取消息历史，页内按 ID 升序（最早在前）
func (c *Client) ListMessages(ctx context.Context, conversacionID uint, page, pageSize int) ([]models.Message, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))

	path := "/conversations/" + strconv.FormatUint(uint64(conversacionID), 10) + "/mensajes"
	var items []models.Message
	if err := c.do(ctx, http.MethodGet, path, query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SendMessage 发送消息，返回服务端落库后的消息（含 ID 和时间戳）
func (c *Client) SendMessage(ctx context.Context, conversacionID uint, cuerpo string) (*models.Message, error) {
	path := "/conversations/" + strconv.FormatUint(uint64(conversacionID), 10) + "/mensajes"
	req := map[string]string{"cuerpo": cuerpo}
	var msg models.Message
	if err := c.do(ctx, http.MethodPost, path, nil, req, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead 上报已读回执。mensajeID 为 nil 表示读到最新
func (c *Client) MarkRead(ctx context.Context, conversacionID uint, mensajeID *uint) error {
	path := "/conversations/" + strconv.FormatUint(uint64(conversacionID), 10) + "/leer"
	req := map[string]*uint{"mensaje_id": mensajeID}
	return c.do(ctx, http.MethodPost, path, nil, req, nil)
}
