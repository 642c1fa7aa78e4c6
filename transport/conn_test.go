package transport

import (
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mensajeria/models"
)

func TestConnDispatchMensaje(t *testing.T) {
	url, rec := newWSServer(t)
	m := NewManager(url, zaptest.NewLogger(t))
	conn, err := m.Acquire("tok")
	require.NoError(t, err)
	defer m.Release()

	received := make(chan models.Message, 1)
	conn.OnMessage(func(msg models.Message) { received <- msg })

	payload := models.Message{ID: 501, ConversacionID: 42, RemitenteUsuarioID: 7, Cuerpo: "Hola"}
	err = rec.LastConn().WriteJSON(models.PushEnvelope{Tipo: models.PushMensaje, Mensaje: &payload})
	require.NoError(t, err)

	select {
	case msg := <-received:
		assert.Equal(t, payload.ID, msg.ID)
		assert.Equal(t, "Hola", msg.Cuerpo)
	case <-time.After(time.Second):
		t.Fatal("mensaje event not dispatched")
	}
}

func TestConnDispatchLeido(t *testing.T) {
	url, rec := newWSServer(t)
	m := NewManager(url, zaptest.NewLogger(t))
	conn, err := m.Acquire("tok")
	require.NoError(t, err)
	defer m.Release()

	type leido struct{ conv, user, msg uint }
	received := make(chan leido, 1)
	conn.OnRead(func(conversacionID, usuarioID, mensajeID uint) {
		received <- leido{conversacionID, usuarioID, mensajeID}
	})

	err = rec.LastConn().WriteJSON(models.PushEnvelope{
		Tipo: models.PushLeido, ConversacionID: 42, UsuarioID: 7, MensajeID: 502,
	})
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, leido{42, 7, 502}, got)
	case <-time.After(time.Second):
		t.Fatal("leido event not dispatched")
	}
}

func TestConnHeartbeatPong(t *testing.T) {
	url, rec := newWSServer(t)
	m := NewManager(url, zaptest.NewLogger(t))
	_, err := m.Acquire("tok")
	require.NoError(t, err)
	defer m.Release()

	server := rec.LastConn()
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte("ping")))

	require.Eventually(t, func() bool { return rec.Pongs() == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, rec.Frames())
	assert.NotNil(t, m.Current())
}

func TestConnErrorsAsEvents(t *testing.T) {
	url, rec := newWSServer(t)
	m := NewManager(url, zaptest.NewLogger(t))
	conn, err := m.Acquire("tok")
	require.NoError(t, err)
	defer m.Release()

	errs := make(chan error, 1)
	conn.OnError(func(err error) { errs <- err })

	rec.LastConn().Close()

	select {
	case err := <-errs:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("connection error not surfaced as event")
	}
	assert.False(t, conn.Alive())
}

func TestConnEmitAfterClose(t *testing.T) {
	url, rec := newWSServer(t)
	m := NewManager(url, zaptest.NewLogger(t))
	conn, err := m.Acquire("tok")
	require.NoError(t, err)
	defer m.Release()

	rec.LastConn().Close()
	require.Eventually(t, func() bool { return !conn.Alive() }, time.Second, 5*time.Millisecond)

	err = conn.Emit(models.PushEnvelope{Tipo: models.PushJoin, ConversacionID: 1})
	assert.ErrorIs(t, err, ErrConnClosed)
}
