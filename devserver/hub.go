package devserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mensajeria/models"
)

const (
	pingInterval = 10 * time.Second // 发送 ping 的间隔
	pongTimeout  = 15 * time.Second // 超过 15 秒没 pong 就断开
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSClient 一条已认证的推送连接
type WSClient struct {
	Conn         *websocket.Conn
	Send         chan []byte
	UserID       uint
	ConnectionID string
	LastPing     time.Time
	mu           sync.Mutex
	closeOnce    sync.Once
}

// Hub 推送中心：按用户分组的连接 + 按会话分组的房间订阅
type Hub struct {
	mu         sync.Mutex
	clients    map[uint][]*WSClient       // user_id -> 连接列表
	rooms      map[uint]map[uint]struct{} // conversacion_id -> 订阅的 user_id 集合
	register   chan *WSClient
	unregister chan *WSClient
}

var (
	hub     *Hub
	hubOnce sync.Once
)

// GetHub 单例
func GetHub() *Hub {
	hubOnce.Do(func() {
		hub = &Hub{
			clients:    make(map[uint][]*WSClient),
			rooms:      make(map[uint]map[uint]struct{}),
			register:   make(chan *WSClient),
			unregister: make(chan *WSClient),
		}
	})
	return hub
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			log.Printf("🔵 Client connected: user=%d conn=%s", client.UserID, client.ConnectionID)
			go client.startHeartbeat()

		case client := <-h.unregister:
			h.mu.Lock()
			conns := h.clients[client.UserID]
			for i, c := range conns {
				if c == client {
					h.clients[client.UserID] = append(conns[:i], conns[i+1:]...)
					break
				}
			}
			if len(h.clients[client.UserID]) == 0 {
				delete(h.clients, client.UserID)
				// 最后一条连接断开，清掉该用户的所有房间订阅
				for convID, members := range h.rooms {
					delete(members, client.UserID)
					if len(members) == 0 {
						delete(h.rooms, convID)
					}
				}
			}
			h.mu.Unlock()
			client.closeSend()
			log.Printf("🔴 Client disconnected: user=%d conn=%s", client.UserID, client.ConnectionID)
		}
	}
}

// HandleWS 升级连接。凭证走 Authorization 头或 ?token= 查询参数
func HandleWS(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		header := c.GetHeader("Authorization")
		if len(header) > 7 && header[:7] == "Bearer " {
			tokenString = header[7:]
		}
	}
	usuario, err := ParseToken(tokenString)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "bad_token", "Invalid or missing token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", "Failed to upgrade connection")
		return
	}

	client := &WSClient{
		Conn:         conn,
		Send:         make(chan []byte, 256),
		UserID:       usuario.ID,
		ConnectionID: uuid.New().String(),
		LastPing:     time.Now(),
	}
	GetHub().register <- client

	go client.readMessages()
	go client.writeMessages()
}

func (c *WSClient) readMessages() {
	defer func() {
		GetHub().unregister <- c
		c.Conn.Close()
	}()
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			return
		}
		if string(raw) == "pong" {
			c.mu.Lock()
			c.LastPing = time.Now()
			c.mu.Unlock()
			continue
		}

		var env models.PushEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Println("Invalid ws frame:", string(raw))
			continue
		}

		switch env.Tipo {
		case models.PushJoin:
			GetHub().joinRoom(env.ConversacionID, c.UserID)
		case models.PushLeave:
			GetHub().leaveRoom(env.ConversacionID, c.UserID)
		case models.PushLeer:
			// REST /leer 的 ws 镜像
			GetHub().applyLeer(env.ConversacionID, c.UserID, env.MensajeID)
		default:
			log.Println("Unhandled ws frame tipo:", env.Tipo)
		}
	}
}

func (c *WSClient) writeMessages() {
	for msg := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

func (c *WSClient) startHeartbeat() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		if err := c.Conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
			log.Printf("Ping failed, closing connection: user=%d", c.UserID)
			c.close()
			return
		}
		c.mu.Lock()
		timedOut := time.Since(c.LastPing) > pongTimeout
		c.mu.Unlock()
		if timedOut {
			log.Printf("Client timeout, closing connection: user=%d", c.UserID)
			c.close()
			return
		}
	}
}

func (c *WSClient) close() {
	c.Conn.Close()
	GetHub().unregister <- c
}

func (c *WSClient) closeSend() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (h *Hub) joinRoom(conversacionID, userID uint) {
	if conversacionID == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[conversacionID] == nil {
		h.rooms[conversacionID] = make(map[uint]struct{})
	}
	h.rooms[conversacionID][userID] = struct{}{}
}

func (h *Hub) leaveRoom(conversacionID, userID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[conversacionID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, conversacionID)
		}
	}
}

func (h *Hub) applyLeer(conversacionID, userID, mensajeID uint) {
	if err := DB.Model(&Participante{}).
		Where("conversacion_id = ? AND usuario_id = ? AND ultimo_leido_mensaje_id < ?", conversacionID, userID, mensajeID).
		Update("ultimo_leido_mensaje_id", mensajeID).Error; err != nil {
		log.Println("Failed to apply read receipt:", err)
		return
	}
	h.PushLeido(conversacionID, userID, mensajeID)
}

// PushMensaje 新消息推给接收方的所有连接。列表未读数依赖这个事件，
// 所以不按房间过滤，接收方没打开会话也推
func (h *Hub) PushMensaje(receiverID uint, mensaje models.Message) {
	raw, err := json.Marshal(models.PushEnvelope{Tipo: models.PushMensaje, Mensaje: &mensaje})
	if err != nil {
		log.Println("Failed to marshal push:", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.clients[receiverID] {
		select {
		case client.Send <- raw:
		default:
			log.Printf("⚠️ Send buffer full, skipping: user=%d", receiverID)
		}
	}
}

// PushLeido 已读水位更新只推给订阅了该会话房间的用户
func (h *Hub) PushLeido(conversacionID, userID, mensajeID uint) {
	raw, err := json.Marshal(models.PushEnvelope{
		Tipo:           models.PushLeido,
		ConversacionID: conversacionID,
		UsuarioID:      userID,
		MensajeID:      mensajeID,
	})
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for memberID := range h.rooms[conversacionID] {
		for _, client := range h.clients[memberID] {
			select {
			case client.Send <- raw:
			default:
			}
		}
	}
}
