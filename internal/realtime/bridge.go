// Package realtime maintains the websocket connection to the backend's
// change feed and fans decoded insert/update/delete events out to local
// subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State is the connection lifecycle of the bridge.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

const (
	heartbeatInterval = 30 * time.Second
	maxReconnectWait  = 30 * time.Second
)

// Callbacks receive the changed row for each event kind. Nil callbacks are
// skipped. Callbacks run on the bridge's read goroutine; within one
// subscription they are invoked in delivery order.
type Callbacks struct {
	OnInsert func(Row)
	OnUpdate func(Row)
	OnDelete func(Row)
}

// Filter restricts a subscription to rows where Column equals Value.
type Filter struct {
	Column string
	Value  string
}

func (f *Filter) encode() string {
	if f == nil {
		return ""
	}

	return f.Column + "=eq." + f.Value
}

// Subscription is one table channel. Unsubscribe must be called when the
// consumer goes away or the channel leaks.
type Subscription struct {
	topic  string
	table  string
	filter string
	cb     Callbacks
	bridge *Bridge
}

func (s *Subscription) Unsubscribe() {
	s.bridge.unsubscribe(s)
}

// Bridge owns the socket, heartbeats, channel joins and reconnection.
type Bridge struct {
	url     string
	apiKey  string
	token   func() string
	logger  *slog.Logger
	onState func(State)

	mu    sync.Mutex
	conn  *websocket.Conn
	state State
	ref   int
	subs  map[string]*Subscription

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBridge creates a bridge. token supplies the current access token for
// channel joins; onState (optional) observes connection-state changes.
func NewBridge(url, apiKey string, token func() string, logger *slog.Logger, onState func(State)) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}

	return &Bridge{
		url:     url,
		apiKey:  apiKey,
		token:   token,
		logger:  logger,
		onState: onState,
		state:   StateDisconnected,
		subs:    make(map[string]*Subscription),
	}
}

// Connect dials the socket and starts the read and heartbeat loops. The
// bridge keeps itself connected until Close: when the initial dial fails
// the error is returned but the read loop keeps redialing in the
// background with the same backoff used after a dropped connection.
func (b *Bridge) Connect(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.setState(StateConnecting)

	err := b.dial()
	if err == nil {
		b.setState(StateConnected)
		b.joinAll()
	}

	b.wg.Add(2)
	go b.readLoop()
	go b.heartbeatLoop()

	return err
}

// Close tears down the socket and all channels.
func (b *Bridge) Close() {
	if b.cancel != nil {
		b.cancel()
	}

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.mu.Unlock()

	b.wg.Wait()
	b.setState(StateDisconnected)
}

// State returns the current connection state.
func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Subscribe joins a channel for the table (optionally filtered to one
// column equality) and registers the callbacks.
func (b *Bridge) Subscribe(table string, filter *Filter, cb Callbacks) (*Subscription, error) {
	sub := &Subscription{
		topic:  channelTopic(table, filter.encode()),
		table:  table,
		filter: filter.encode(),
		cb:     cb,
		bridge: b,
	}

	b.mu.Lock()
	if _, exists := b.subs[sub.topic]; exists {
		b.mu.Unlock()
		return nil, fmt.Errorf("already subscribed to %s", sub.topic)
	}

	b.subs[sub.topic] = sub
	connected := b.state == StateConnected
	b.mu.Unlock()

	if connected {
		if err := b.join(sub); err != nil {
			b.mu.Lock()
			delete(b.subs, sub.topic)
			b.mu.Unlock()

			return nil, err
		}
	}

	return sub, nil
}

func (b *Bridge) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub.topic)
	connected := b.state == StateConnected
	b.mu.Unlock()

	if connected {
		if err := b.send(&message{Topic: sub.topic, Event: eventLeave, Payload: json.RawMessage("{}"), Ref: b.nextRef()}); err != nil {
			b.logger.Warn("leaving channel", "topic", sub.topic, "error", err)
		}
	}
}

func (b *Bridge) dial() error {
	url := b.url + "?apikey=" + b.apiKey + "&vsn=1.0.0"

	conn, _, err := websocket.DefaultDialer.DialContext(b.ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dialing realtime socket: %w", err)
	}

	b.mu.Lock()
	if b.conn != nil {
		b.conn.Close()
	}
	b.conn = conn
	b.mu.Unlock()

	return nil
}

func (b *Bridge) join(sub *Subscription) error {
	payload, err := joinPayload(sub.table, sub.filter, b.token())
	if err != nil {
		return fmt.Errorf("building join payload: %w", err)
	}

	return b.send(&message{Topic: sub.topic, Event: eventJoin, Payload: payload, Ref: b.nextRef()})
}

func (b *Bridge) joinAll() {
	b.mu.Lock()
	subs := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		if err := b.join(s); err != nil {
			b.logger.Warn("joining channel", "topic", s.topic, "error", err)
		}
	}
}

func (b *Bridge) send(msg *message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return fmt.Errorf("not connected")
	}

	return b.conn.WriteJSON(msg)
}

func (b *Bridge) nextRef() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ref++

	return strconv.Itoa(b.ref)
}

func (b *Bridge) readLoop() {
	defer b.wg.Done()

	for {
		b.mu.Lock()
		conn := b.conn
		b.mu.Unlock()

		// conn is nil when the initial dial failed; recover the same
		// way as a dropped connection.
		if conn == nil {
			if b.ctx.Err() != nil || !b.reconnect() {
				return
			}

			continue
		}

		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			if b.ctx.Err() != nil {
				return
			}

			b.logger.Warn("realtime socket dropped", "error", err)

			if !b.reconnect() {
				return
			}

			continue
		}

		b.dispatch(&msg)
	}
}

func (b *Bridge) dispatch(msg *message) {
	switch msg.Event {
	case eventChanges:
		b.dispatchChange(msg)
	case eventReply, eventClose:
		// Join/leave acks need no handling.
	case eventError:
		b.logger.Warn("channel error", "topic", msg.Topic)
	}
}

func (b *Bridge) dispatchChange(msg *message) {
	event, err := decodeChange(msg.Payload)
	if err != nil {
		b.logger.Warn("dropping malformed change event", "topic", msg.Topic, "error", err)
		return
	}

	b.mu.Lock()
	sub := b.subs[msg.Topic]
	b.mu.Unlock()

	if sub == nil {
		return
	}

	switch event.Kind {
	case ChangeInsert:
		if sub.cb.OnInsert != nil {
			sub.cb.OnInsert(event.Record)
		}
	case ChangeUpdate:
		if sub.cb.OnUpdate != nil {
			sub.cb.OnUpdate(event.Record)
		}
	case ChangeDelete:
		if sub.cb.OnDelete != nil {
			// Delete events only carry the old row.
			sub.cb.OnDelete(event.Old)
		}
	}
}

// reconnect redials with capped exponential backoff and rejoins all
// channels. Returns false when the bridge is closing.
func (b *Bridge) reconnect() bool {
	b.setState(StateReconnecting)

	wait := time.Second

	for {
		select {
		case <-b.ctx.Done():
			return false
		case <-time.After(wait):
		}

		if err := b.dial(); err == nil {
			b.setState(StateConnected)
			b.joinAll()

			return true
		}

		b.logger.Warn("reconnect failed, backing off", "wait", wait.String())

		wait *= 2
		if wait > maxReconnectWait {
			wait = maxReconnectWait
		}
	}
}

func (b *Bridge) heartbeatLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			// The reconnect loop owns the socket while it is down; a
			// heartbeat against the dead conn would only add noise.
			if b.State() != StateConnected {
				continue
			}

			msg := &message{Topic: topicHeartbeat, Event: eventHeartbeat, Payload: json.RawMessage("{}"), Ref: b.nextRef()}
			if err := b.send(msg); err != nil {
				b.logger.Warn("heartbeat failed", "error", err)
			}
		}
	}
}

func (b *Bridge) setState(s State) {
	b.mu.Lock()
	changed := b.state != s
	b.state = s
	b.mu.Unlock()

	if changed && b.onState != nil {
		b.onState(s)
	}
}
