package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"mensajeria/api"
	"mensajeria/models"
	"mensajeria/stores"
)

var (
	// 空消息不请求服务端
	ErrEmptyBody = errors.New("composer: empty message body")
	// 上一次发送还没返回，重复提交被忽略
	ErrSendInFlight = errors.New("composer: send already in flight")
	// 没有打开的会话
	ErrNoOpenConversation = errors.New("session: no open conversation")
)

// Composer 发送管线。没有乐观回显：消息只在服务端确认后出现，
// 换一点延迟换来不重复、不重排的保证。失败时草稿保留等待重试
type Composer struct {
	api    *api.Client
	detail *stores.DetailStore
	list   *stores.ListStore
	log    *zap.Logger

	mu      sync.Mutex
	sending bool
	draft   string
}

func NewComposer(ac *api.Client, detail *stores.DetailStore, list *stores.ListStore, log *zap.Logger) *Composer {
	return &Composer{api: ac, detail: detail, list: list, log: log}
}

// SetDraft 输入框内容跟随
func (c *Composer) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

func (c *Composer) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// Sending 是否有一次发送在途
func (c *Composer) Sending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sending
}

// Send 提交消息。空白内容直接拒绝；在途期间的重复提交返回 ErrSendInFlight。
// 成功后消息进详情历史、会话提到列表最前、草稿清空；失败只返回错误，草稿不动
func (c *Composer) Send(ctx context.Context, conversacionID uint, cuerpo string) (*models.Message, error) {
	trimmed := strings.TrimSpace(cuerpo)
	if trimmed == "" {
		return nil, ErrEmptyBody
	}

	c.mu.Lock()
	if c.sending {
		c.mu.Unlock()
		return nil, ErrSendInFlight
	}
	c.sending = true
	c.draft = cuerpo
	c.mu.Unlock()

	msg, err := c.api.SendMessage(ctx, conversacionID, trimmed)

	c.mu.Lock()
	c.sending = false
	if err == nil {
		c.draft = ""
	}
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("send failed", zap.Uint("conversacion_id", conversacionID), zap.Error(err))
		return nil, err
	}

	c.detail.AppendSentMessage(*msg)
	c.list.ApplyIncomingMessage(*msg, c.detail.ConversationID())
	return msg, nil
}
