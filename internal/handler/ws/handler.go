package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chathandler "github.com/zhouzirui/heartline/backend/internal/handler/chat"
	"github.com/zhouzirui/heartline/backend/internal/metrics"
	"github.com/zhouzirui/heartline/backend/internal/model/chat"
	chatService "github.com/zhouzirui/heartline/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Message types.
const (
	TypeMessage = "message"
	TypePing    = "ping"
	TypePong    = "pong"
	TypeReply   = "reply"
	TypeError   = "error"
)

// Handler WebSocket聊天处理器
type Handler struct {
	chatSvc  chathandler.Responder
	metrics  metrics.Recorder
	log      *zap.Logger
	upgrader websocket.Upgrader
}

// New 创建WebSocket处理器。allowOrigin 为 nil 时接受任意来源。
func New(chatSvc chathandler.Responder, recorder metrics.Recorder, log *zap.Logger, allowOrigin func(origin string) bool) *Handler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		chatSvc: chatSvc,
		metrics: recorder,
		log:     log.With(zap.String("component", "websocket")),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowOrigin == nil || origin == "" || allowOrigin(origin)
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
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type textPayload struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type errorPayload struct {
	Detail string `json:"detail"`
}

// handleWebSocket 处理WebSocket连接，每条入站消息对应一轮对话
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID = chat.DefaultUserID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.log.With(zap.String("user_id", userID))
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go h.pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read error", zap.Error(err))
			}
			return
		}
		if !h.handleMessage(ctx, conn, userID, &msg, log) {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

// handleMessage returns false when the connection should be closed.
func (h *Handler) handleMessage(ctx context.Context, conn *websocket.Conn, userID string, msg *inboundMessage, log *zap.Logger) bool {
	switch msg.Type {
	case TypePing:
		return h.write(conn, outgoingMessage{Type: TypePong}, log)
	case TypeMessage:
		var payload textPayload
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &payload); err != nil {
				h.metrics.IncRequest(metrics.StatusBadRequest)
				return h.sendError(conn, "invalid message payload", log)
			}
		}

		req := chat.Request{Message: payload.Text, UserID: userID}
		if detail := chathandler.ValidateRequest(&req); detail != "" {
			h.metrics.IncRequest(metrics.StatusBadRequest)
			return h.sendError(conn, detail, log)
		}

		resp, err := h.chatSvc.Respond(ctx, chatService.Turn{
			Message:    req.Message,
			UserID:     req.UserID,
			ResponseID: chathandler.NewResponseID(),
		})
		if err != nil {
			_, detail := chathandler.ErrorStatus(err)
			return h.sendError(conn, detail, log)
		}
		return h.write(conn, outgoingMessage{Type: TypeReply, Data: resp}, log)
	default:
		return h.sendError(conn, "unsupported message type: "+msg.Type, log)
	}
}

func (h *Handler) sendError(conn *websocket.Conn, detail string, log *zap.Logger) bool {
	return h.write(conn, outgoingMessage{Type: TypeError, Data: errorPayload{Detail: detail}}, log)
}

func (h *Handler) write(conn *websocket.Conn, msg outgoingMessage, log *zap.Logger) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn("write failed", zap.String("type", msg.Type), zap.Error(err))
		return false
	}
	return true
}

// pingLoop 定期发送ping消息。WriteControl 可与其他写操作并发调用。
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
