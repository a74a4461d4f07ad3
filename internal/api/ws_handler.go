package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"jobPortal/internal/auth"
	"jobPortal/internal/tasks"
)

const (
	wsAuthTimeout  = 10 * time.Second
	wsPingInterval = 30 * time.Second
	wsPongWait     = wsPingInterval + 10*time.Second
	wsWriteWait    = 5 * time.Second
	wsMaxFrame     = 4096
)

type pubsubSubscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// WsHandler 推送岗位通知与个人投递回执。连接建立后首帧必须是 auth 消息。
type WsHandler struct {
	subscriber pubsubSubscriber
	tokens     *auth.AuthService
	logger     *slog.Logger
	upgrader   websocket.Upgrader
}

// NewWsHandler 构造 WebSocket 处理器；allowedOrigins 为空时只接受同源请求。
func NewWsHandler(subscriber pubsubSubscriber, tokens *auth.AuthService, logger *slog.Logger, allowedOrigins []string) *WsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WsHandler{
		subscriber: subscriber,
		tokens:     tokens,
		logger:     logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return originAllowed(r, allowedOrigins) },
		},
	}
}

func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(allowed) > 0 {
		return slices.Contains(allowed, origin)
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

type wsAuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type wsReadyMessage struct {
	Type     string   `json:"type"`
	UserID   uint     `json:"user_id"`
	Channels []string `json:"channels"`
}

// wsCloseError 携带关闭帧的状态码与原因。
type wsCloseError struct {
	code   int
	reason string
	err    error
}

func (e *wsCloseError) Error() string { return e.reason + ": " + e.err.Error() }
func (e *wsCloseError) Unwrap() error { return e.err }

func policyViolation(reason string, err error) error {
	return &wsCloseError{code: websocket.ClosePolicyViolation, reason: reason, err: err}
}

// HandleConnection 升级连接、完成鉴权后转发订阅消息，直到任一方断开。
func (h *WsHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxFrame)

	log := h.logger.With(slog.String("client_ip", c.ClientIP()))

	claims, err := h.authenticate(conn)
	if err != nil {
		log.Warn("websocket authentication failed", slog.Any("error", err))
		closeWith(conn, err)
		return
	}
	log = log.With(slog.Uint64("user_id", uint64(claims.UserID)))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	err = h.forward(ctx, cancel, conn, claims.UserID, log)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Info("websocket connection closed", slog.Any("error", err))
		closeWith(conn, err)
		return
	}
	log.Info("websocket connection closed")
}

func (h *WsHandler) authenticate(conn *websocket.Conn) (*auth.TokenClaims, error) {
	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read auth frame: %w", err)
	}

	var msg wsAuthMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, policyViolation("invalid auth payload", err)
	}
	if msg.Type != "auth" || msg.Token == "" {
		return nil, policyViolation("auth required", errors.New("first frame is not an auth message"))
	}

	claims, err := h.tokens.ValidateToken(msg.Token)
	if err != nil {
		return nil, policyViolation("unauthorized", err)
	}
	if claims.TokenType != auth.TokenTypeAccess {
		return nil, policyViolation("access token required", fmt.Errorf("token type %q", claims.TokenType))
	}
	if claims.MustChangePassword {
		return nil, policyViolation("password change required", errors.New("password change pending"))
	}
	return claims, nil
}

// forward 订阅广播频道与用户私有频道，读循环只用于感知断开与 pong。
func (h *WsHandler) forward(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, userID uint, log *slog.Logger) error {
	channels := []string{tasks.NotificationChannel, tasks.UserChannel(userID)}
	pubsub := h.subscriber.Subscribe(ctx, channels...)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := writeJSON(conn, wsReadyMessage{Type: "ready", UserID: userID, Channels: channels}); err != nil {
		return err
	}
	log.Info("websocket subscribed", slog.Any("channels", channels))

	readErr := make(chan error, 1)
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	messages := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			select {
			case err := <-readErr:
				return err
			default:
				return ctx.Err()
			}
		case msg, ok := <-messages:
			if !ok {
				return errors.New("pubsub channel closed")
			}
			log.Debug("forwarding message", slog.String("channel", msg.Channel))
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

func closeWith(conn *websocket.Conn, err error) {
	code, reason := websocket.CloseInternalServerErr, "internal error"
	var closeErr *wsCloseError
	if errors.As(err, &closeErr) {
		code, reason = closeErr.code, closeErr.reason
	}
	var wsErr *websocket.CloseError
	if errors.As(err, &wsErr) {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}
