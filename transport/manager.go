package transport

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// 最后一个持有者释放后等这么久再真正断开，吸收快速的挂载/卸载
const DefaultGraceDelay = 150 * time.Millisecond

// Manager 进程内共享的推送连接，按引用计数管理生命周期。
// 多个逻辑消费者复用同一条物理连接，计数归零后延迟 graceDelay 关闭
type Manager struct {
	url    string
	dialer *websocket.Dialer
	log    *zap.Logger

	mu        sync.Mutex
	conn      *Conn
	consumers int
	teardown  *time.Timer
	grace     time.Duration
}

func NewManager(wsURL string, log *zap.Logger) *Manager {
	return &Manager{
		url:    wsURL,
		dialer: websocket.DefaultDialer,
		log:    log,
		grace:  DefaultGraceDelay,
	}
}

// SetGraceDelay 覆盖默认的延迟断开窗口
func (m *Manager) SetGraceDelay(d time.Duration) {
	m.mu.Lock()
	m.grace = d
	m.mu.Unlock()
}

// Acquire 获取共享连接。已有活连接时直接计数复用，凭证被忽略（不重新认证）；
// 连接已死或不存在时用 token 重连。任何待执行的延迟断开都会被取消
func (m *Manager) Acquire(token string) (*Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.teardown != nil {
		m.teardown.Stop()
		m.teardown = nil
	}

	if m.conn == nil || !m.conn.Alive() {
		header := http.Header{}
		header.Set("Authorization", "Bearer "+token)
		ws, _, err := m.dialer.Dial(m.url, header)
		if err != nil {
			return nil, fmt.Errorf("transport: dial %s: %w", m.url, err)
		}
		m.conn = newConn(ws, m.log)
		m.log.Info("push channel connected", zap.String("url", m.url))
	}

	m.consumers++
	return m.conn, nil
}

// Release 释放一次持有。计数到零后启动延迟断开，窗口内的 Acquire 会取消它
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consumers > 0 {
		m.consumers--
	}
	if m.consumers == 0 && m.conn != nil && m.teardown == nil {
		m.teardown = time.AfterFunc(m.grace, m.closeIfIdle)
	}
}

func (m *Manager) closeIfIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardown = nil
	if m.consumers == 0 && m.conn != nil {
		m.conn.close()
		m.conn = nil
		m.log.Info("push channel closed")
	}
}

// Current 返回当前活连接但不增加计数，给只挂监听、不管生命周期的调用方用
func (m *Manager) Current() *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil && m.conn.Alive() {
		return m.conn
	}
	return nil
}

// Consumers 当前持有者数量，测试用
func (m *Manager) Consumers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumers
}
