package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mensajeria/models"
)

func TestRoomBinderJoinLeave(t *testing.T) {
	url, rec := newWSServer(t)
	log := zaptest.NewLogger(t)
	m := NewManager(url, log)
	_, err := m.Acquire("tok")
	require.NoError(t, err)
	defer m.Release()

	b := NewRoomBinder(m, log)
	b.JoinRoom(42)
	b.LeaveRoom(42)
	b.JoinRoom(9)

	require.Eventually(t, func() bool { return len(rec.Frames()) == 3 }, time.Second, 5*time.Millisecond)
	frames := rec.Frames()
	assert.Equal(t, models.PushEnvelope{Tipo: models.PushJoin, ConversacionID: 42}, frames[0])
	assert.Equal(t, models.PushEnvelope{Tipo: models.PushLeave, ConversacionID: 42}, frames[1])
	assert.Equal(t, models.PushEnvelope{Tipo: models.PushJoin, ConversacionID: 9}, frames[2])
}

func TestRoomBinderNoConnection(t *testing.T) {
	url, rec := newWSServer(t)
	log := zaptest.NewLogger(t)
	m := NewManager(url, log)

	// 没有活连接：纯空操作，不 panic 不发帧
	b := NewRoomBinder(m, log)
	b.JoinRoom(42)
	b.LeaveRoom(42)

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, rec.Frames())
	assert.Equal(t, 0, rec.Dials())
}

func TestRoomBinderInvalidID(t *testing.T) {
	url, rec := newWSServer(t)
	log := zaptest.NewLogger(t)
	m := NewManager(url, log)
	_, err := m.Acquire("tok")
	require.NoError(t, err)
	defer m.Release()

	b := NewRoomBinder(m, log)
	b.JoinRoom(0)
	b.LeaveRoom(0)

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, rec.Frames())
}
