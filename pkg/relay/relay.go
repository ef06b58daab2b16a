// Package relay bridges a work queue to the network. Peers connect over
// WebSocket and send action envelopes, which are decoded against local
// registries and assigned to the queue. Workers wrapped by Relay.Worker
// broadcast a receipt for every delivery attempt to all connected peers.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/petrijr/echo/pkg/api"
	"github.com/petrijr/echo/pkg/log"
)

const (
	writeWait          = 10 * time.Second
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10
	maxMessageSize     = 64 * 1024
	wsBufferSize       = 1024
	incomingBufferSize = 16
	outgoingBufferSize = 64
)

type (
	// Relay accepts action envelopes from WebSocket peers and assigns them
	// to a work queue.
	Relay struct {
		decoder  *Decoder
		queue    *api.WorkQueue
		logger   *slog.Logger
		upgrader websocket.Upgrader

		mu     sync.RWMutex
		peers  map[*peer]struct{}
		closed bool
	}

	// Option configures a Relay.
	Option func(*Relay)

	peer struct {
		relay *Relay
		conn  *websocket.Conn
		send  chan []byte
		done  chan struct{}
		once  sync.Once
	}
)

var _ http.Handler = (*Relay)(nil)

// WithLogger sets the relay logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// WithCheckOrigin overrides the WebSocket origin check. All origins are
// accepted by default.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(r *Relay) { r.upgrader.CheckOrigin = fn }
}

// New creates a Relay that decodes frames with d and assigns the resulting
// actions to q.
func New(d *Decoder, q *api.WorkQueue, opts ...Option) *Relay {
	r := &Relay{
		decoder: d,
		queue:   q,
		logger:  slog.Default(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsBufferSize,
			WriteBufferSize: wsBufferSize,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
		peers: make(map[*peer]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ServeHTTP upgrades the connection and serves the peer until it
// disconnects or the relay is closed.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket_upgrade_failed", log.Error(err))
		return
	}

	p := &peer{
		relay: r,
		conn:  conn,
		send:  make(chan []byte, outgoingBufferSize),
		done:  make(chan struct{}),
	}
	if !r.register(p) {
		_ = conn.Close()
		return
	}
	go p.run()
}

// Peers returns the number of connected peers.
func (r *Relay) Peers() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

// Broadcast sends v as JSON to every connected peer. A peer whose outgoing
// buffer is full misses the frame.
func (r *Relay) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Error("relay_encode_failed", log.Error(err))
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for p := range r.peers {
		select {
		case p.send <- data:
		default:
			r.logger.Warn("relay_peer_slow",
				slog.String("remote", p.conn.RemoteAddr().String()))
		}
	}
}

// Worker wraps next so that each delivery attempt is reported to peers.
func (r *Relay) Worker(next api.Worker) api.Worker {
	return api.WorkerFunc(func(ctx context.Context, action api.Executable, ec *api.ExecutionContext) error {
		err := next.Receive(ctx, action, ec)
		r.Broadcast(NewReceipt(action, err))
		return err
	})
}

// Accept decodes a frame and assigns the action to the queue.
func (r *Relay) Accept(data []byte) (api.Executable, error) {
	action, err := r.decoder.Decode(data)
	if err != nil {
		return nil, err
	}
	r.queue.Assign(action)
	return action, nil
}

// Close disconnects every peer and rejects new ones.
func (r *Relay) Close() {
	r.mu.Lock()
	r.closed = true
	peers := make([]*peer, 0, len(r.peers))
	for p := range r.peers {
		peers = append(peers, p)
	}
	r.mu.Unlock()

	for _, p := range peers {
		p.stop()
	}
}

func (r *Relay) register(p *peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.peers[p] = struct{}{}
	return true
}

func (r *Relay) unregister(p *peer) {
	r.mu.Lock()
	delete(r.peers, p)
	r.mu.Unlock()
}

func (p *peer) stop() {
	p.once.Do(func() { close(p.done) })
}

func (p *peer) run() {
	defer func() {
		p.relay.unregister(p)
		p.stop()
		_ = p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	incoming := make(chan []byte, incomingBufferSize)
	go p.readMessages(incoming)

	for {
		select {
		case message, ok := <-incoming:
			if !ok {
				return
			}
			if !p.handleFrame(message) {
				return
			}

		case data := <-p.send:
			if !p.write(websocket.TextMessage, data) {
				return
			}

		case <-ticker.C:
			if !p.write(websocket.PingMessage, nil) {
				return
			}

		case <-p.done:
			_ = p.write(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay closed"))
			return
		}
	}
}

func (p *peer) readMessages(incoming chan []byte) {
	defer close(incoming)
	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		select {
		case incoming <- message:
		case <-p.done:
			return
		}
	}
}

func (p *peer) handleFrame(message []byte) bool {
	action, err := p.relay.Accept(message)
	if err != nil {
		id := gjson.GetBytes(message, "id").String()
		p.relay.logger.Warn("relay_frame_rejected",
			slog.String("id", id),
			log.Error(err))
		data, _ := json.Marshal(ErrorFrame{Type: TypeError, ID: id, Error: err.Error()})
		return p.write(websocket.TextMessage, data)
	}
	p.relay.logger.Debug("relay_action_accepted",
		log.Action(action.Name()),
		log.ActionID(action.ID()),
		log.Queue(p.relay.queue.Name()))
	return true
}

func (p *peer) write(messageType int, data []byte) bool {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := p.conn.WriteMessage(messageType, data); err != nil {
		p.relay.logger.Debug("relay_write_failed", log.Error(err))
		return false
	}
	return true
}
