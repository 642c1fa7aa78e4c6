package stores

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mensajeria/api"
	"mensajeria/models"
)

// 打开期间用户又切到了别的会话，响应作废
var ErrSuperseded = errors.New("stores: open superseded by newer navigation")

// Detail 一次 Open 的结果快照
type Detail struct {
	Conversation models.Conversation
	Participants []models.Participant
	Messages     []models.Message
}

// DetailStore 同一时刻只装载一个打开会话的完整消息历史和参与者。
// 消息永远按 ID 升序持有，到达顺序不影响展示顺序
type DetailStore struct {
	api *api.Client
	log *zap.Logger

	mu           sync.Mutex
	conversacion models.Conversation
	participants []models.Participant
	messages     []models.Message
	openID       uint
	gen          uint64
}

func NewDetailStore(ac *api.Client, log *zap.Logger) *DetailStore {
	return &DetailStore{api: ac, log: log}
}

// Open 并发拉取会话详情和消息历史，成功后整体替换当前状态。
// 期间若有新的 Open 把本次超越，返回 ErrSuperseded 且不碰状态
func (s *DetailStore) Open(ctx context.Context, conversacionID uint, page, pageSize int) (*Detail, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	var (
		detail *models.ConversationDetail
		msgs   []models.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.api.GetConversation(gctx, conversacionID)
		if err != nil {
			return err
		}
		detail = d
		return nil
	})
	g.Go(func() error {
		m, err := s.api.ListMessages(gctx, conversacionID, page, pageSize)
		if err != nil {
			return err
		}
		msgs = m
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// ID 是权威顺序，不按时间戳重排
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return nil, ErrSuperseded
	}
	s.conversacion = detail.Conversation
	s.participants = detail.Participantes
	s.messages = msgs
	s.openID = conversacionID

	return s.detailLocked(), nil
}

// Close 关闭当前会话（窄布局回到纯列表时）
func (s *DetailStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.openID = 0
	s.messages = nil
	s.participants = nil
	s.conversacion = models.Conversation{}
}

// AppendIncoming 推送到达的消息进入历史。不属于当前打开会话或 ID 已存在
// 时不做任何事，返回是否真的插入了
func (s *DetailStore) AppendIncoming(msg models.Message) bool {
	return s.append(msg)
}

// AppendSentMessage 发送确认返回的消息进入历史。和推送走同一条去重路径，
// 先到者生效，后到的同 ID 是空操作
func (s *DetailStore) AppendSentMessage(msg models.Message) bool {
	return s.append(msg)
}

func (s *DetailStore) append(msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.openID == 0 || msg.ConversacionID != s.openID {
		return false
	}
	// 按 ID 找插入点，已存在即去重
	i := sort.Search(len(s.messages), func(i int) bool { return s.messages[i].ID >= msg.ID })
	if i < len(s.messages) && s.messages[i].ID == msg.ID {
		return false
	}
	s.messages = append(s.messages, models.Message{})
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = msg
	return true
}

// ApplyReadReceipt 推送的已读水位。水位线只增不减，旧事件不回退
func (s *DetailStore) ApplyReadReceipt(usuarioID, mensajeID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.participants {
		p := &s.participants[i]
		if p.UsuarioID == usuarioID && mensajeID > p.UltimoLeidoMensajeID {
			p.UltimoLeidoMensajeID = mensajeID
		}
	}
}

// ConversationID 当前打开的会话，0 表示没有
func (s *DetailStore) ConversationID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openID
}

// LatestMessageID 历史里最大的消息 ID，空历史返回 0
func (s *DetailStore) LatestMessageID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return 0
	}
	return s.messages[len(s.messages)-1].ID
}

func (s *DetailStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *DetailStore) Participants() []models.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Participant, len(s.participants))
	copy(out, s.participants)
	return out
}

func (s *DetailStore) detailLocked() *Detail {
	msgs := make([]models.Message, len(s.messages))
	copy(msgs, s.messages)
	parts := make([]models.Participant, len(s.participants))
	copy(parts, s.participants)
	return &Detail{Conversation: s.conversacion, Participants: parts, Messages: msgs}
}
