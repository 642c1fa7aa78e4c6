package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"mensajeria/api"
	"mensajeria/models"
	"mensajeria/stores"
)

// CounterpartWatermark 除自己以外所有参与者的最大已读 ID，没有则 0。
// 当前业务只有 1:1 会话，所以一条水位线对整个会话成立
func CounterpartWatermark(participants []models.Participant, selfUserID uint) uint {
	var max uint
	for _, p := range participants {
		if p.UsuarioID == selfUserID {
			continue
		}
		if p.UltimoLeidoMensajeID > max {
			max = p.UltimoLeidoMensajeID
		}
	}
	return max
}

// IsSeen 只有自己发的消息才有已读状态：ID 不超过对方水位线即已读
func IsSeen(msg models.Message, watermark, selfUserID uint) bool {
	return msg.IsFrom(selfUserID) && msg.ID <= watermark
}

// Reconciler 把本地的"读到哪了"上报服务端并同步未读数。
// 同一会话并发的回执里只有最新的生效，旧的直接取消，
// 避免快速切换会话时把错误的 ID 当成已读上报
type Reconciler struct {
	api  *api.Client
	list *stores.ListStore
	log  *zap.Logger

	mu       sync.Mutex
	inflight map[uint]*ack
}

type ack struct {
	cancel context.CancelFunc
}

func NewReconciler(ac *api.Client, list *stores.ListStore, log *zap.Logger) *Reconciler {
	return &Reconciler{api: ac, list: list, log: log, inflight: make(map[uint]*ack)}
}

// MarkRead 上报已读回执，成功后清掉列表里的未读数。
// mensajeID 为 nil 表示读到最新。被更新的回执超越时静默返回
func (r *Reconciler) MarkRead(ctx context.Context, conversacionID uint, mensajeID *uint) error {
	ctx, cancel := context.WithCancel(ctx)
	mine := &ack{cancel: cancel}

	r.mu.Lock()
	if prev, ok := r.inflight[conversacionID]; ok {
		prev.cancel()
	}
	r.inflight[conversacionID] = mine
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		if r.inflight[conversacionID] == mine {
			delete(r.inflight, conversacionID)
		}
		r.mu.Unlock()
	}()

	if err := r.api.MarkRead(ctx, conversacionID, mensajeID); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		r.log.Warn("mark read failed", zap.Uint("conversacion_id", conversacionID), zap.Error(err))
		return err
	}

	r.list.ClearUnread(conversacionID)
	return nil
}
