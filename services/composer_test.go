package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mensajeria/api"
	"mensajeria/models"
	"mensajeria/stores"
)

// composerBackend 详情、历史、列表、发送全套端点
type composerBackend struct {
	sends    atomic.Int32
	sendFail atomic.Bool
	block    chan struct{} // 非 nil 时发送请求挂住
}

func (b *composerBackend) handler(t *testing.T) http.HandlerFunc {
	base := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/mensajes"):
			b.sends.Add(1)
			if b.block != nil {
				<-b.block
			}
			if b.sendFail.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"boom"}`))
				return
			}
			var input struct {
				Cuerpo string `json:"cuerpo"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&input))
			msg := models.Message{
				ID: 501, ConversacionID: 42, RemitenteUsuarioID: selfID,
				Cuerpo: input.Cuerpo, CreatedAt: base.Add(time.Minute),
			}
			raw, _ := json.Marshal(msg)
			w.Write([]byte(`{"data":` + string(raw) + `}`))

		case strings.HasSuffix(r.URL.Path, "/mensajes"):
			w.Write([]byte(`{"data":[]}`))

		case strings.HasPrefix(r.URL.Path, "/conversations/"):
			detail := models.ConversationDetail{
				Conversation: models.Conversation{ID: 42, Tipo: models.TipoDirecta},
				Participantes: []models.Participant{
					{ConversacionID: 42, UsuarioID: selfID},
					{ConversacionID: 42, UsuarioID: 5},
				},
			}
			raw, _ := json.Marshal(detail)
			w.Write([]byte(`{"data":` + string(raw) + `}`))

		default:
			items := []models.Conversation{
				{ID: 9, Tipo: models.TipoDirecta, UltimoMensaje: "previo", UltimoMensajeFecha: base},
				{ID: 42, Tipo: models.TipoDirecta, UltimoMensaje: "viejo", UltimoMensajeFecha: base.Add(-time.Hour)},
			}
			raw, _ := json.Marshal(items)
			w.Write([]byte(`{"data":` + string(raw) + `}`))
		}
	}
}

func newComposer(t *testing.T, backend *composerBackend) (*Composer, *stores.ListStore, *stores.DetailStore) {
	t.Helper()
	srv := httptest.NewServer(backend.handler(t))
	t.Cleanup(srv.Close)

	log := zaptest.NewLogger(t)
	client := api.New(srv.URL, "tok", log)
	list := stores.NewListStore(client, selfID, stores.LayoutDesktop, log)
	detail := stores.NewDetailStore(client, log)

	_, err := list.Refresh(context.Background(), 1, 20)
	require.NoError(t, err)
	_, err = detail.Open(context.Background(), 42, 1, 50)
	require.NoError(t, err)

	return NewComposer(client, detail, list, log), list, detail
}

func TestSendRejectsBlankBody(t *testing.T) {
	backend := &composerBackend{}
	c, _, _ := newComposer(t, backend)

	for _, cuerpo := range []string{"", "   ", "\n\t"} {
		_, err := c.Send(context.Background(), 42, cuerpo)
		assert.ErrorIs(t, err, ErrEmptyBody)
	}
	// 没碰服务端
	assert.Equal(t, int32(0), backend.sends.Load())
}

func TestSendSuccess(t *testing.T) {
	backend := &composerBackend{}
	c, list, detail := newComposer(t, backend)
	c.SetDraft("Hola")

	msg, err := c.Send(context.Background(), 42, "Hola")
	require.NoError(t, err)
	require.Equal(t, uint(501), msg.ID)

	// 详情里恰好出现一次
	mensajes := detail.Messages()
	require.Len(t, mensajes, 1)
	assert.Equal(t, uint(501), mensajes[0].ID)
	assert.Equal(t, "Hola", mensajes[0].Cuerpo)

	// 会话 42 提到列表最前，预览更新，自己发的不加未读
	items := list.Items()
	assert.Equal(t, uint(42), items[0].ID)
	assert.Equal(t, "Hola", items[0].UltimoMensaje)
	assert.Equal(t, 0, items[0].NoLeidos)

	// 草稿清空
	assert.Empty(t, c.Draft())
}

func TestSendConfirmationAfterPushIsNoop(t *testing.T) {
	backend := &composerBackend{}
	c, _, detail := newComposer(t, backend)

	// 推送先到
	pushed := models.Message{ID: 501, ConversacionID: 42, RemitenteUsuarioID: selfID, Cuerpo: "Hola"}
	require.True(t, detail.AppendIncoming(pushed))

	// 发送确认后到，同 ID 去重
	_, err := c.Send(context.Background(), 42, "Hola")
	require.NoError(t, err)
	assert.Len(t, detail.Messages(), 1)
}

func TestSendFailureRetainsDraft(t *testing.T) {
	backend := &composerBackend{}
	backend.sendFail.Store(true)
	c, list, detail := newComposer(t, backend)

	_, err := c.Send(context.Background(), 42, "Hola")
	require.Error(t, err)

	// 输入保留等待重试，没有消息进任何 store
	assert.Equal(t, "Hola", c.Draft())
	assert.Empty(t, detail.Messages())
	assert.Equal(t, "viejo", list.Items()[1].UltimoMensaje)
	assert.False(t, c.Sending())
}

func TestSendIgnoresDoubleSubmit(t *testing.T) {
	backend := &composerBackend{block: make(chan struct{})}
	c, _, detail := newComposer(t, backend)

	firstDone := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), 42, "Hola")
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return c.Sending() }, time.Second, 5*time.Millisecond)

	// 在途期间的重复提交被忽略，不产生第二次请求
	_, err := c.Send(context.Background(), 42, "Hola")
	assert.ErrorIs(t, err, ErrSendInFlight)

	close(backend.block)
	require.NoError(t, <-firstDone)
	assert.Equal(t, int32(1), backend.sends.Load())
	assert.Len(t, detail.Messages(), 1)
}
