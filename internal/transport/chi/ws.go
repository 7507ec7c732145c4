package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ucc-hostels/hostelfinder/internal/domain"
	"github.com/ucc-hostels/hostelfinder/internal/domain/geo"
	"github.com/ucc-hostels/hostelfinder/internal/logger"
	"github.com/ucc-hostels/hostelfinder/internal/usecase/live"
	searchuc "github.com/ucc-hostels/hostelfinder/internal/usecase/search"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	readLimit    = 16 << 10
	outboundSize = 64
)

// wsConn serialises writes to one socket through a single writer goroutine.
type wsConn struct {
	conn *websocket.Conn
	out  chan any
	done chan struct{}
	once sync.Once
	log  *zap.Logger
}

func newWSConn(conn *websocket.Conn, log *zap.Logger) *wsConn {
	c := &wsConn{
		conn: conn,
		out:  make(chan any, outboundSize),
		done: make(chan struct{}),
		log:  log,
	}
	go c.writeLoop()
	return c
}

// send queues v. A client that falls a full buffer behind is disconnected.
func (c *wsConn) send(v any) {
	select {
	case <-c.done:
	case c.out <- v:
	default:
		c.log.Warn("websocket client too slow, closing")
		c.close()
	}
}

func (c *wsConn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case v := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(v); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.close()
				return
			}
		}
	}
}

// readLoop calls handle for every text message until the socket closes.
func (c *wsConn) readLoop(handle func(msg []byte)) {
	defer c.close()

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt == websocket.TextMessage {
			handle(msg)
		}
	}
}

func (c *wsConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

type liveRequest struct {
	Op string `json:"op"` // "subscribe" / "unsubscribe"
	live.Resource
}

// LiveMessage is pushed to /ws/live clients.
type LiveMessage struct {
	Type string `json:"type"` // "snapshot" / "unsubscribed" / "error"
	live.Resource
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

func eventToMessage(e live.Event) LiveMessage {
	msg := LiveMessage{Type: "snapshot", Resource: e.Resource}
	switch {
	case e.Err != nil:
		msg.Type, msg.Error = "error", errorBody(e.Err)
	case e.Hostel != nil:
		msg.Data = e.Hostel
	case e.Favorited != nil:
		msg.Data = *e.Favorited
	default:
		msg.Data = e.Reviews
	}
	return msg
}

// LiveSocket handles GET /ws/live. Each connection is one view; its
// subscriptions are cancelled when the socket closes.
func (s *Server) LiveSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.FromContext(r.Context()).Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	view := uuid.NewString()
	log := logger.FromContext(r.Context()).With(zap.String("view", view))
	c := newWSConn(conn, log)
	defer s.Live.Close(view)

	ctx, uid := r.Context(), callerUID(r)
	c.readLoop(func(raw []byte) {
		var req liveRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			c.send(LiveMessage{Type: "error", Error: errorBody(fmt.Errorf("malformed message: %w", domain.ErrInvalidInput))})
			return
		}
		switch req.Op {
		case "subscribe":
			err := s.Live.Subscribe(ctx, view, req.Resource, uid, func(e live.Event) {
				c.send(eventToMessage(e))
			})
			if err != nil {
				log.Info("subscribe rejected", zap.Error(err))
				c.send(LiveMessage{Type: "error", Resource: req.Resource, Error: errorBody(err)})
			}
		case "unsubscribe":
			s.Live.Unsubscribe(view, req.Resource)
			c.send(LiveMessage{Type: "unsubscribed", Resource: req.Resource})
		default:
			c.send(LiveMessage{
				Type:     "error",
				Resource: req.Resource,
				Error:    errorBody(fmt.Errorf("unknown op %q: %w", req.Op, domain.ErrInvalidInput)),
			})
		}
	})
}

type searchRequest struct {
	Q string `json:"q"`
}

// SearchMessage is pushed to /ws/search clients.
type SearchMessage struct {
	Type    string         `json:"type"` // "results" / "error"
	Q       string         `json:"q"`
	Hostels any            `json:"hostels,omitempty"`
	Bounds  *geo.Bounds    `json:"bounds,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
}

// SearchSocket handles GET /ws/search: search-as-you-type. Keystrokes are
// debounced and only the last term in a quiet window is searched.
func (s *Server) SearchSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.FromContext(r.Context()).Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newWSConn(conn, logger.FromContext(r.Context()))
	ctx, uid := r.Context(), callerUID(r)

	debouncer := searchuc.NewDebouncer(s.debounce, func(q string) {
		res, err := s.Search.Text(ctx, uid, q)
		if err != nil {
			c.send(SearchMessage{Type: "error", Q: q, Error: errorBody(err)})
			return
		}
		c.send(searchResults(q, res))
	})
	defer debouncer.Stop()

	c.readLoop(func(raw []byte) {
		var req searchRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			c.send(SearchMessage{Type: "error", Error: errorBody(fmt.Errorf("malformed message: %w", domain.ErrInvalidInput))})
			return
		}
		debouncer.Trigger(req.Q)
	})
}

func searchResults(q string, res searchuc.Result) SearchMessage {
	msg := SearchMessage{Type: "results", Q: q, Hostels: res.Hostels, Bounds: res.Bounds}
	if res.Hostels == nil {
		msg.Hostels = []struct{}{}
	}
	return msg
}
