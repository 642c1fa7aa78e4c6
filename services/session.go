package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"mensajeria/api"
	"mensajeria/models"
	"mensajeria/stores"
	"mensajeria/transport"
)

// Session 消息视图的逻辑所有者：持有一份共享连接，把推送事件分发进
// 两个 store，并保证切换会话时 leave 在前、join 在后
type Session struct {
	manager    *transport.Manager
	rooms      *transport.RoomBinder
	reconciler *Reconciler
	log        *zap.Logger
	selfUserID uint

	List     *stores.ListStore
	Detail   *stores.DetailStore
	Composer *Composer
}

func NewSession(ac *api.Client, manager *transport.Manager, selfUserID uint, layout stores.Layout, log *zap.Logger) *Session {
	list := stores.NewListStore(ac, selfUserID, layout, log)
	detail := stores.NewDetailStore(ac, log)
	return &Session{
		manager:    manager,
		rooms:      transport.NewRoomBinder(manager, log),
		reconciler: NewReconciler(ac, list, log),
		log:        log,
		selfUserID: selfUserID,
		List:       list,
		Detail:     detail,
		Composer:   NewComposer(ac, detail, list, log),
	}
}

// Start 占用一份共享连接并挂好事件分发。对应的 Close 必须成对调用
func (s *Session) Start(token string) error {
	conn, err := s.manager.Acquire(token)
	if err != nil {
		return err
	}
	conn.OnMessage(s.handleMessage)
	conn.OnRead(s.handleRead)
	conn.OnError(func(err error) {
		s.log.Warn("push channel error", zap.Error(err))
	})
	return nil
}

// Close 归还连接持有。最后一个持有者之后连接延迟关闭
func (s *Session) Close() {
	s.manager.Release()
}

// OpenConversation 打开一个会话：先退出旧房间，拉详情+历史，再进新房间，
// 最后把最新消息上报已读。被更快的导航超越时返回 stores.ErrSuperseded
func (s *Session) OpenConversation(ctx context.Context, conversacionID uint, page, pageSize int) (*stores.Detail, error) {
	if prev := s.Detail.ConversationID(); prev != 0 && prev != conversacionID {
		s.rooms.LeaveRoom(prev)
	}

	detail, err := s.Detail.Open(ctx, conversacionID, page, pageSize)
	if err != nil {
		if !errors.Is(err, stores.ErrSuperseded) {
			s.log.Warn("open conversation failed", zap.Uint("conversacion_id", conversacionID), zap.Error(err))
		}
		return nil, err
	}

	s.rooms.JoinRoom(conversacionID)
	s.List.Select(conversacionID)

	var mensajeID *uint
	if latest := s.Detail.LatestMessageID(); latest > 0 {
		mensajeID = &latest
	}
	// UI 视角 fire-and-forget，reconciler 内部保证旧回执被新回执取消
	go func() {
		_ = s.reconciler.MarkRead(context.Background(), conversacionID, mensajeID)
	}()

	return detail, nil
}

// Send 在当前打开的会话里发送
func (s *Session) Send(ctx context.Context, cuerpo string) (*models.Message, error) {
	open := s.Detail.ConversationID()
	if open == 0 {
		return nil, ErrNoOpenConversation
	}
	return s.Composer.Send(ctx, open, cuerpo)
}

// Watermark 当前打开会话的对方已读水位线
func (s *Session) Watermark() uint {
	return CounterpartWatermark(s.Detail.Participants(), s.selfUserID)
}

func (s *Session) handleMessage(msg models.Message) {
	open := s.Detail.ConversationID()
	if msg.ConversacionID == open && s.Detail.AppendIncoming(msg) {
		// 会话开着时收到新消息立刻回执，未读数不积累
		id := msg.ID
		go func() {
			_ = s.reconciler.MarkRead(context.Background(), msg.ConversacionID, &id)
		}()
	}
	s.List.ApplyIncomingMessage(msg, open)
}

func (s *Session) handleRead(conversacionID, usuarioID, mensajeID uint) {
	if conversacionID == s.Detail.ConversationID() {
		s.Detail.ApplyReadReceipt(usuarioID, mensajeID)
	}
}
