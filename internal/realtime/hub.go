package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"instantride/internal/logger"
	"instantride/internal/service"
)

const (
	writeWait      = 5 * time.Second
	sendBuffer     = 16
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is what a tracking client receives.
type Event struct {
	Type    string    `json:"type"`
	RideID  string    `json:"ride_id"`
	Message string    `json:"message,omitempty"`
	Ride    any       `json:"ride,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// Event types.
const (
	EventSnapshot = "snapshot"
	EventUpdate   = "update"
)

type subscriber struct {
	once   sync.Once
	done   chan struct{}
	sendCh chan Event
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// push drops the event when the client cannot keep up.
func (s *subscriber) push(e Event) bool {
	select {
	case <-s.done:
		return false
	case s.sendCh <- e:
		return true
	default:
		return false
	}
}

// Hub streams customer notifications to websocket clients tracking a ride.
type Hub struct {
	mu         sync.Mutex
	rides      map[string]map[*subscriber]struct{}
	closed     bool
	pingPeriod time.Duration
	log        logger.ILogger
	now        func() time.Time
}

// NewHub creates a new Hub. Clients are pinged every pingPeriod and dropped
// after two missed pongs.
func NewHub(pingPeriod time.Duration, log logger.ILogger) *Hub {
	if pingPeriod <= 0 {
		pingPeriod = 30 * time.Second
	}
	return &Hub{
		rides:      make(map[string]map[*subscriber]struct{}),
		pingPeriod: pingPeriod,
		log:        log,
		now:        time.Now,
	}
}

// Serve upgrades the request and streams events for rideID until the client
// goes away. snapshot is sent first.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, rideID string, snapshot any) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warning("websocket upgrade failed", logger.String("ride_id", rideID), logger.Error(err))
		return
	}
	defer conn.Close()

	sub := &subscriber{done: make(chan struct{}), sendCh: make(chan Event, sendBuffer)}
	if !h.subscribe(rideID, sub) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		return
	}
	defer h.unsubscribe(rideID, sub)

	sub.push(Event{Type: EventSnapshot, RideID: rideID, Ride: snapshot, SentAt: h.now()})

	go h.reader(conn, sub)
	h.writer(conn, sub)
}

// reader consumes pongs and close frames; tracking clients send nothing else.
func (h *Hub) reader(conn *websocket.Conn, sub *subscriber) {
	defer sub.close()

	pongWait := 2 * h.pingPeriod
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writer(conn *websocket.Conn, sub *subscriber) {
	defer sub.close()

	ticker := time.NewTicker(h.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-sub.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case e := <-sub.sendCh:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) subscribe(rideID string, sub *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	subs, ok := h.rides[rideID]
	if !ok {
		subs = make(map[*subscriber]struct{})
		h.rides[rideID] = subs
	}
	subs[sub] = struct{}{}
	return true
}

func (h *Hub) unsubscribe(rideID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.rides[rideID]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.rides, rideID)
		}
	}
}

// Subscribers returns the number of clients tracking rideID.
func (h *Hub) Subscribers(rideID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rides[rideID])
}

// NotifyCustomer pushes message to everyone tracking rideID.
func (h *Hub) NotifyCustomer(_ context.Context, rideID string, message string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	e := Event{Type: EventUpdate, RideID: rideID, Message: message, SentAt: h.now()}
	for sub := range h.rides[rideID] {
		if !sub.push(e) {
			h.log.Warning("tracking client too slow, event dropped", logger.String("ride_id", rideID))
		}
	}
	return nil
}

// NotifyDriver is a no-op; drivers are reached on the other channels.
func (h *Hub) NotifyDriver(context.Context, string, service.RideSummary) error {
	return nil
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, subs := range h.rides {
		for sub := range subs {
			sub.close()
		}
	}
}
