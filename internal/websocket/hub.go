package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"salesboard/internal/metrics"
	"salesboard/internal/middleware"
	"salesboard/internal/model"
	"salesboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for dev simplicity
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const maxCommandSize = 64 * 1024

var errAccessDenied = errors.New("access denied: not a member of this project")

// MembershipFunc reports whether a user may browse a project.
type MembershipFunc func(ctx context.Context, projectID, userID uuid.UUID) (bool, error)

// Client is one connected browser tab with its own sales session
type Client struct {
	Hub     *Hub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uuid.UUID
	browser *service.SalesBrowser

	mu     sync.Mutex
	closed bool
}

// Hub tracks connected clients
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex

	salesService service.SalesService
	isMember     MembershipFunc
	log          logrus.FieldLogger
}

func NewHub(salesService service.SalesService, isMember MembershipFunc, log logrus.FieldLogger) *Hub {
	return &Hub{
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		clients:      make(map[*Client]bool),
		salesService: salesService,
		isMember:     isMember,
		log:          log,
	}
}

// Run starts the core dispatch loop for client registration
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.BrowserSessions.Inc()
			h.log.WithField("user_id", client.UserID).Info("sales session opened")
		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			delete(h.clients, client)
			h.mu.Unlock()
			if ok {
				client.close()
				metrics.BrowserSessions.Dec()
				h.log.WithField("user_id", client.UserID).Info("sales session closed")
			}
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// NewClient builds a client whose session state is pushed to Send.
func (h *Hub) NewClient(conn *websocket.Conn, userID uuid.UUID) *Client {
	c := &Client{Hub: h, Conn: conn, Send: make(chan []byte, 256), UserID: userID}
	c.browser = service.NewSalesBrowser(h.salesService, h.log.WithField("user_id", userID), c.pushState)
	return c
}

// --- Messages ---

// Command is a client request. Page is used by "fetch" and "goto", PageSize
// by "fetch" and "set_page_size".
type Command struct {
	Type      string            `json:"type"`
	ProjectID string            `json:"project_id,omitempty"`
	Filter    model.SalesFilter `json:"filter"`
	Page      int               `json:"page,omitempty"`
	PageSize  int               `json:"page_size,omitempty"`
}

// Message is pushed to the client after every state change or failed command
type Message struct {
	Type  string                `json:"type"` // "state" or "error"
	State *service.BrowserState `json:"state,omitempty"`
	Error string                `json:"error,omitempty"`
}

func (c *Client) pushState(s service.BrowserState) {
	c.enqueue(Message{Type: "state", State: &s})
}

func (c *Client) pushError(err error) {
	c.enqueue(Message{Type: "error", Error: err.Error()})
}

// enqueue drops the message when the client is gone or too slow.
func (c *Client) enqueue(m Message) {
	b, err := json.Marshal(m)
	if err != nil {
		c.Hub.log.WithError(err).Error("failed to encode websocket message")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- b:
	default:
		c.Hub.log.WithField("user_id", c.UserID).Warn("websocket send buffer full, dropping message")
	}
}

// close stops delivery to Send. The browser session is closed by readPump so
// the hub loop never waits on pending totals.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// handle runs one command. Commands of a client are handled one at a time.
func (c *Client) handle(ctx context.Context, raw []byte) error {
	var cmd Command
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return fmt.Errorf("invalid command: %w", err)
	}

	switch cmd.Type {
	case "fetch":
		projectID, err := uuid.Parse(cmd.ProjectID)
		if err != nil {
			return fmt.Errorf("%w: project id", service.ErrInvalidFilter)
		}
		member, err := c.Hub.isMember(ctx, projectID, c.UserID)
		if err != nil {
			return fmt.Errorf("verify project access: %w", err)
		}
		if !member {
			return errAccessDenied
		}
		return c.browser.Fetch(ctx, projectID, cmd.Filter, cmd.Page, cmd.PageSize)
	case "next":
		return c.browser.Next(ctx)
	case "prev":
		return c.browser.Prev(ctx)
	case "goto":
		return c.browser.Goto(ctx, cmd.Page)
	case "set_page_size":
		return c.browser.SetPageSize(ctx, cmd.PageSize)
	}
	return fmt.Errorf("unknown command %q", cmd.Type)
}

// writePump handles writing queued messages to the WebSocket connection
func (c *Client) writePump() {
	defer func() {
		_ = c.Conn.Close()
	}()
	for message := range c.Send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump reads commands until the connection closes
func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.browser.Close()
		c.Hub.unregister <- c
		_ = c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxCommandSize)
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.log.WithError(err).Warn("websocket read failed")
			}
			break
		}
		if err := c.handle(ctx, data); err != nil {
			c.pushError(err)
		}
	}
}

// ServeWs handles websocket requests from the peer
func ServeWs(hub *Hub, c *gin.Context, secret []byte) {
	// 1. Authenticate via token query param
	tokenString := c.Query("token")
	if tokenString == "" {
		hub.log.Warn("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	userID, err := middleware.ParseUserID(tokenString, secret)
	if err != nil {
		hub.log.WithError(err).Warn("WebSocket connection rejected: invalid token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		hub.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	client := hub.NewClient(conn, userID)
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in new goroutines
	go client.writePump()
	go client.readPump()
}
