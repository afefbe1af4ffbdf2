package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/polaris/backend/internal/handler/apierror"
	"github.com/zhouzirui/polaris/backend/internal/logging"
	chatservice "github.com/zhouzirui/polaris/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
)

// 出站消息类型
const (
	TypeSessionCreated = "session_created"
	TypeToken          = "token"
	TypeDone           = "done"
	TypeError          = "error"
)

// Handler WebSocket流式聊天处理器
type Handler struct {
	chatSvc  *chatservice.Service
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器
func New(chatSvc *chatservice.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/chat", h.handleWebSocket)
}

type inboundMessage struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// OutgoingMessage 服务端推送的消息
type OutgoingMessage struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id,omitempty"`
	Text         string `json:"text,omitempty"`
	FullResponse string `json:"full_response,omitempty"`
	Error        string `json:"error,omitempty"`
}

// conn 串行化写操作，ping 和消息发送并发进行
type conn struct {
	ws     *websocket.Conn
	mu     sync.Mutex
	logger *slog.Logger
}

func (c *conn) send(msg OutgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.ws.WriteJSON(msg); err != nil {
		c.logger.Warn("websocket write failed", "type", msg.Type, "error", err)
		return err
	}
	return nil
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接；会话 id 在连接内保持，首条消息可以不带
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer wsConn.Close()

	c := &conn{ws: wsConn, logger: h.logger}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = wsConn.SetReadDeadline(time.Now().Add(readTimeout))
	wsConn.SetPongHandler(func(string) error {
		return wsConn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, c)

	var sessionID string
	for {
		var msg inboundMessage
		if err := wsConn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "session_id", sessionID, "error", err)
			}
			h.logger.Debug("websocket closed", "session_id", sessionID)
			return
		}
		_ = wsConn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" {
			sessionID = msg.SessionID
		}
		if strings.TrimSpace(msg.Message) == "" {
			_ = c.send(OutgoingMessage{Type: TypeError, Error: "message is required"})
			continue
		}

		next, err := h.handleMessage(ctx, c, sessionID, msg.Message)
		sessionID = next
		if err != nil {
			return
		}
	}
}

// handleMessage 处理一条用户消息，返回之后使用的会话 id。返回错误表示连接已不可写。
func (h *Handler) handleMessage(ctx context.Context, c *conn, sessionID, message string) (string, error) {
	id, created, err := h.chatSvc.EnsureSession(ctx, sessionID)
	if err != nil {
		_, msg := apierror.Status(err)
		return sessionID, c.send(OutgoingMessage{Type: TypeError, SessionID: sessionID, Error: msg})
	}
	if created {
		if err := c.send(OutgoingMessage{Type: TypeSessionCreated, SessionID: id}); err != nil {
			return id, err
		}
	}

	var writeErr error
	reply, err := h.chatSvc.Stream(ctx, id, message, func(delta string) error {
		writeErr = c.send(OutgoingMessage{Type: TypeToken, SessionID: id, Text: delta})
		return writeErr
	})
	if writeErr != nil {
		return id, writeErr
	}
	if err != nil {
		_, msg := apierror.Status(err)
		return id, c.send(OutgoingMessage{Type: TypeError, SessionID: id, Error: msg})
	}

	return id, c.send(OutgoingMessage{Type: TypeDone, SessionID: id, FullResponse: reply.Response})
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
