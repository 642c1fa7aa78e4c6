package transport

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mensajeria/models"
)

var ErrConnClosed = errors.New("transport: connection closed")

type MessageHandler func(models.Message)
type ReadHandler func(conversacionID, usuarioID, mensajeID uint)
type ErrorHandler func(error)

// Conn 单条推送连接。读写各一个 goroutine，写统一走 send 通道避免并发写
type Conn struct {
	ws   *websocket.Conn
	send chan []byte
	log  *zap.Logger

	mu           sync.RWMutex
	msgHandlers  []MessageHandler
	readHandlers []ReadHandler
	errHandlers  []ErrorHandler

	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, log *zap.Logger) *Conn {
	c := &Conn{
		ws:   ws,
		send: make(chan []byte, 256),
		log:  log,
		done: make(chan struct{}),
	}
	go c.readPump()
	go c.writePump()
	return c
}

// OnMessage 注册新消息回调。连接错误以事件而不是异常形式送达 OnError
func (c *Conn) OnMessage(h MessageHandler) {
	c.mu.Lock()
	c.msgHandlers = append(c.msgHandlers, h)
	c.mu.Unlock()
}

func (c *Conn) OnRead(h ReadHandler) {
	c.mu.Lock()
	c.readHandlers = append(c.readHandlers, h)
	c.mu.Unlock()
}

func (c *Conn) OnError(h ErrorHandler) {
	c.mu.Lock()
	c.errHandlers = append(c.errHandlers, h)
	c.mu.Unlock()
}

// Alive 连接是否仍可用
func (c *Conn) Alive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Emit 发送一条信令到服务端
func (c *Conn) Emit(env models.PushEnvelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if !c.Alive() {
		return ErrConnClosed
	}
	select {
	case <-c.done:
		return ErrConnClosed
	case c.send <- raw:
		return nil
	}
}

func (c *Conn) readPump() {
	defer c.close()
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			c.dispatchError(err)
			return
		}
		// 服务端心跳：文本 ping，原样回 pong
		if string(raw) == "ping" {
			select {
			case c.send <- []byte("pong"):
			case <-c.done:
				return
			}
			continue
		}

		var env models.PushEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn("invalid push frame", zap.ByteString("raw", raw))
			continue
		}
		c.dispatch(env)
	}
}

func (c *Conn) writePump() {
	for {
		select {
		case raw := <-c.send:
			if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
				c.dispatchError(err)
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) dispatch(env models.PushEnvelope) {
	c.mu.RLock()
	msgHandlers := c.msgHandlers
	readHandlers := c.readHandlers
	c.mu.RUnlock()

	switch env.Tipo {
	case models.PushMensaje:
		if env.Mensaje == nil {
			c.log.Warn("mensaje frame without body")
			return
		}
		for _, h := range msgHandlers {
			h(*env.Mensaje)
		}
	case models.PushLeido:
		for _, h := range readHandlers {
			h(env.ConversacionID, env.UsuarioID, env.MensajeID)
		}
	default:
		c.log.Debug("unhandled push frame", zap.String("tipo", env.Tipo))
	}
}

func (c *Conn) dispatchError(err error) {
	c.mu.RLock()
	handlers := c.errHandlers
	c.mu.RUnlock()
	for _, h := range handlers {
		h(err)
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}
