package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/laundry-marketplace/internal/model"
	"go.uber.org/zap"
)

const (
	wsMaxFrameBytes = 64 << 10
	wsOutboxSize    = 64
	wsPongWait      = 60 * time.Second
	wsPingPeriod    = (wsPongWait * 9) / 10
	wsWriteWait     = 10 * time.Second
)

// joinParams accepts accountId/accountType and the older userId/userType keys
type joinParams struct {
	AccountID   int64  `json:"accountId"`
	AccountType string `json:"accountType"`
	UserID      int64  `json:"userId"`
	UserType    string `json:"userType"`
}

type conversationParams struct {
	ConversationID string `json:"conversationId"`
}

type sendMessageParams struct {
	SenderType   string `json:"senderType"`
	SenderID     int64  `json:"senderId"`
	ReceiverType string `json:"receiverType"`
	ReceiverID   int64  `json:"receiverId"`
	ShopID       *int64 `json:"shopId,omitempty"`
	MessageBody  string `json:"messageBody"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Client is one websocket session
type Client struct {
	id     string
	conn   *websocket.Conn
	hub    *Hub
	logger *zap.Logger

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// ID implements Conn
func (c *Client) ID() string {
	return c.id
}

// Send implements Conn. A full outbox drops the frame.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// Handler upgrades HTTP requests to websocket sessions served by a hub
type Handler struct {
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler. allowedOrigins empty or containing "*" accepts any origin.
func NewHandler(hub *Hub, logger *zap.Logger, allowedOrigins []string) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger.Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		id:     uuid.NewString(),
		conn:   conn,
		hub:    h.hub,
		logger: h.logger,
		send:   make(chan []byte, wsOutboxSize),
		done:   make(chan struct{}),
	}
	h.hub.Connect(c)

	go c.writeLoop()
	code, reason := c.readLoop()

	c.close()
	h.hub.Disconnect(c, code, reason)
}

func (c *Client) readLoop() (int, string) {
	c.conn.SetReadLimit(wsMaxFrameBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return closeErr.Code, closeErr.Text
			}
			return websocket.CloseAbnormalClosure, err.Error()
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if err := c.handleFrame(data); err != nil {
			c.sendError(err.Error())
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *Client) handleFrame(raw []byte) error {
	var frame Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return fmt.Errorf("malformed frame: %w", err)
	}

	switch frame.Event {
	case "join":
		id, err := decodeJoin(frame.Data)
		if err != nil {
			return err
		}
		c.hub.Join(c, id)
		return nil

	case "joinConversation", "leaveConversation":
		channel, err := conversationID(frame.Data)
		if err != nil {
			return err
		}
		if frame.Event == "joinConversation" {
			c.hub.JoinConversation(c, channel)
		} else {
			c.hub.LeaveConversation(c, channel)
		}
		return nil

	case "sendMessage":
		msg, err := decodeMessage(frame.Data)
		if err != nil {
			return err
		}
		c.hub.SendMessage(msg)
		return nil

	default:
		return fmt.Errorf("unknown event %q", frame.Event)
	}
}

func (c *Client) sendError(message string) {
	frame, err := EncodeFrame(EventError, errorPayload{Message: message})
	if err != nil {
		return
	}
	c.Send(frame)
}

// conversationID accepts either a bare string or {"conversationId": "..."}
func conversationID(data json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		var p conversationParams
		if err := json.Unmarshal(data, &p); err != nil {
			return "", fmt.Errorf("invalid conversation payload: %w", err)
		}
		id = p.ConversationID
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("conversationId is required")
	}
	return id, nil
}

func decodeJoin(data json.RawMessage) (model.Identity, error) {
	var p joinParams
	if err := json.Unmarshal(data, &p); err != nil {
		return model.Identity{}, fmt.Errorf("invalid join payload: %w", err)
	}
	if p.AccountType == "" {
		p.AccountType = p.UserType
	}
	if p.AccountID == 0 {
		p.AccountID = p.UserID
	}

	accountType, err := model.ParseAccountType(p.AccountType)
	if err != nil {
		return model.Identity{}, err
	}
	if p.AccountID <= 0 {
		return model.Identity{}, errors.New("accountId is required")
	}
	return model.NewIdentity(accountType, p.AccountID), nil
}

func decodeMessage(data json.RawMessage) (*model.Message, error) {
	var p sendMessageParams
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid message payload: %w", err)
	}

	senderType, err := model.ParseAccountType(p.SenderType)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	receiverType, err := model.ParseAccountType(p.ReceiverType)
	if err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}
	if p.SenderID <= 0 || p.ReceiverID <= 0 {
		return nil, errors.New("senderId and receiverId are required")
	}
	if strings.TrimSpace(p.MessageBody) == "" {
		return nil, errors.New("messageBody is required")
	}

	return &model.Message{
		SenderType:   senderType,
		SenderID:     p.SenderID,
		ReceiverType: receiverType,
		ReceiverID:   p.ReceiverID,
		ShopID:       p.ShopID,
		Body:         p.MessageBody,
	}, nil
}

func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
