package stores

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"mensajeria/api"
	"mensajeria/models"
)

// Layout 决定列表刷新后选中项丢失时的回退行为
type Layout int

const (
	LayoutDesktop Layout = iota // 回退到第一项
	LayoutNarrow                // 回退到无选中
)

// ListStore 当前用户可见的会话列表，按最近活跃降序。
// 数据来自 REST 刷新，本地发送和推送通过 ApplyIncomingMessage 增量修改
type ListStore struct {
	api        *api.Client
	log        *zap.Logger
	selfUserID uint
	layout     Layout

	mu       sync.Mutex
	items    []models.Conversation
	selected uint
	gen      uint64 // 刷新代号，丢弃被超越的响应
}

func NewListStore(ac *api.Client, selfUserID uint, layout Layout, log *zap.Logger) *ListStore {
	return &ListStore{api: ac, log: log, selfUserID: selfUserID, layout: layout}
}

// Refresh 重新拉取列表并整体替换。请求发出后如果又有新的 Refresh，
// 旧响应到达时直接丢弃，不写入状态
func (s *ListStore) Refresh(ctx context.Context, page, pageSize int) ([]models.Conversation, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	items, err := s.api.ListConversations(ctx, page, pageSize, "", "")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		s.log.Debug("stale list refresh discarded")
		return s.snapshotLocked(), nil
	}

	// 排序以服务端时间戳为准，相等的保持原有相对顺序
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UltimoMensajeFecha.After(items[j].UltimoMensajeFecha)
	})
	s.items = items

	if !s.containsLocked(s.selected) {
		if s.layout == LayoutDesktop && len(items) > 0 {
			s.selected = items[0].ID
		} else {
			s.selected = 0
		}
	}
	return s.snapshotLocked(), nil
}

// ApplyIncomingMessage 新消息到达（推送或本地发送确认）时更新预览并把会话
// 提到最前。别人发来的、且会话当前没打开的，未读数加一
func (s *ListStore) ApplyIncomingMessage(msg models.Message, openID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.items {
		if s.items[i].ID == msg.ConversacionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		// 会话不在当前页里，等下次刷新再出现
		s.log.Debug("message for unlisted conversation", zap.Uint("conversacion_id", msg.ConversacionID))
		return
	}

	conv := s.items[idx]
	conv.UltimoMensaje = msg.Cuerpo
	conv.UltimoMensajeFecha = msg.CreatedAt
	if !msg.IsFrom(s.selfUserID) && msg.ConversacionID != openID {
		conv.NoLeidos++
	}

	copy(s.items[1:idx+1], s.items[:idx])
	s.items[0] = conv
}

// ClearUnread 未读数清零，已读回执确认后由 reconciler 调用
func (s *ListStore) ClearUnread(conversacionID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == conversacionID {
			s.items[i].NoLeidos = 0
			return
		}
	}
}

func (s *ListStore) Items() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *ListStore) Selected() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

func (s *ListStore) Select(conversacionID uint) {
	s.mu.Lock()
	s.selected = conversacionID
	s.mu.Unlock()
}

func (s *ListStore) snapshotLocked() []models.Conversation {
	out := make([]models.Conversation, len(s.items))
	copy(out, s.items)
	return out
}

func (s *ListStore) containsLocked(id uint) bool {
	for i := range s.items {
		if s.items[i].ID == id {
			return true
		}
	}
	return false
}
