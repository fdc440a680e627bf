package ipc

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hochfrequenz/claude-exec-monitor/internal/domain"
)

// Backoff constants for reconnection
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
	backoffFactor  = 2
)

// requestTimeout bounds how long a bulk read waits for the CLI to answer
const requestTimeout = 10 * time.Second

// calculateBackoff returns the delay for a given attempt number using
// exponential backoff
func calculateBackoff(attempt int) time.Duration {
	delay := initialBackoff
	for i := 0; i < attempt; i++ {
		delay *= backoffFactor
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// Client connects to the workflow CLI's event socket and implements the
// provider interface over it.
type Client struct {
	url string

	mu   sync.Mutex
	conn *websocket.Conn

	pendingMu sync.Mutex
	pending   map[string]chan EnvelopeRaw

	subsMu    sync.Mutex
	nextSubID int
	onState   map[int]func(any)
	onPlan    map[int]func(*domain.ExecutionPlan)
	onQueue   map[int]func([]domain.QueueItem)
	onRelease map[int]func(domain.Release)
	onSwitch  map[int]func(string)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient creates a client for the given websocket URL
func NewClient(url string) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:       url,
		pending:   make(map[string]chan EnvelopeRaw),
		onState:   make(map[int]func(any)),
		onPlan:    make(map[int]func(*domain.ExecutionPlan)),
		onQueue:   make(map[int]func([]domain.QueueItem)),
		onRelease: make(map[int]func(domain.Release)),
		onSwitch:  make(map[int]func(string)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect dials the socket and starts the read loop
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Run connects and keeps reconnecting with exponential backoff until the
// client is closed
func (c *Client) Run() {
	attempt := 0
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		if err := c.Connect(); err != nil {
			delay := calculateBackoff(attempt)
			log.Printf("connect to %s failed: %v, retrying in %v", c.url, err, delay)
			attempt++
			select {
			case <-time.After(delay):
			case <-c.ctx.Done():
				return
			}
			continue
		}
		attempt = 0

		// Block until the connection drops.
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		<-c.waitClosed(conn)
	}
}

// Close shuts the client down
func (c *Client) Close() {
	c.cancel()
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
}

func (c *Client) waitClosed(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				close(done)
				return
			case <-ticker.C:
				c.mu.Lock()
				gone := c.conn != conn
				c.mu.Unlock()
				if gone {
					close(done)
					return
				}
			}
		}
	}()
	return done
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.failPending()
			return
		}

		var env EnvelopeRaw
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("malformed envelope: %v", err)
			continue
		}
		c.handleEnvelope(env)
	}
}

func (c *Client) handleEnvelope(env EnvelopeRaw) {
	if env.ID != "" {
		c.pendingMu.Lock()
		ch, ok := c.pending[env.ID]
		if ok {
			delete(c.pending, env.ID)
		}
		c.pendingMu.Unlock()
		if ok {
			ch <- env
		}
		return
	}

	switch env.Type {
	case TypeStateChanged:
		var raw any
		if err := json.Unmarshal(env.Payload, &raw); err != nil {
			return
		}
		for _, fn := range c.stateSubs() {
			fn(raw)
		}
	case TypePlanChanged:
		var plan domain.ExecutionPlan
		if err := json.Unmarshal(env.Payload, &plan); err != nil {
			return
		}
		for _, fn := range c.planSubs() {
			fn(&plan)
		}
	case TypeQueueChanged:
		var items []domain.QueueItem
		if err := json.Unmarshal(env.Payload, &items); err != nil {
			return
		}
		for _, fn := range c.queueSubs() {
			fn(items)
		}
	case TypeReleaseChanged:
		var rel domain.Release
		if err := json.Unmarshal(env.Payload, &rel); err != nil {
			return
		}
		for _, fn := range c.releaseSubs() {
			fn(rel)
		}
	case TypeProjectSwitched:
		var ev ProjectSwitchedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return
		}
		for _, fn := range c.switchSubs() {
			fn(ev.Path)
		}
	}
}

func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// request sends an envelope and waits for the correlated response
func (c *Client) request(ctx context.Context, msgType string, payload any) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	id := uuid.NewString()
	ch := make(chan EnvelopeRaw, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	data, err := MarshalEnvelope(msgType, id, payload)
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("write failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	select {
	case env, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("connection closed")
		}
		if env.Error != "" {
			return nil, fmt.Errorf("cli error: %s", env.Error)
		}
		return env.Payload, nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	}
}

// State fetches the raw global state payload
func (c *Client) State(ctx context.Context) (any, error) {
	payload, err := c.request(ctx, TypeGetState, nil)
	if err != nil {
		return nil, err
	}
	var raw any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("parsing state response: %w", err)
	}
	return raw, nil
}

// Plan fetches one issue's plan; nil when the CLI has none
func (c *Client) Plan(ctx context.Context, issue int) (*domain.ExecutionPlan, error) {
	payload, err := c.request(ctx, TypeGetPlan, GetPlanRequest{Issue: issue})
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 || string(payload) == "null" {
		return nil, nil
	}
	var plan domain.ExecutionPlan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan response: %w", err)
	}
	return &plan, nil
}

// Queue fetches the work queue
func (c *Client) Queue(ctx context.Context) ([]domain.QueueItem, error) {
	payload, err := c.request(ctx, TypeGetQueue, nil)
	if err != nil {
		return nil, err
	}
	var items []domain.QueueItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("parsing queue response: %w", err)
	}
	return items, nil
}

// Releases fetches the release registry
func (c *Client) Releases(ctx context.Context) ([]domain.Release, error) {
	payload, err := c.request(ctx, TypeGetReleases, nil)
	if err != nil {
		return nil, err
	}
	var releases []domain.Release
	if err := json.Unmarshal(payload, &releases); err != nil {
		return nil, fmt.Errorf("parsing releases response: %w", err)
	}
	return releases, nil
}

// OnStateChange registers a raw-state callback
func (c *Client) OnStateChange(fn func(any)) func() {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.onState[id] = fn
	c.subsMu.Unlock()
	return func() {
		c.subsMu.Lock()
		delete(c.onState, id)
		c.subsMu.Unlock()
	}
}

// OnPlanChange registers a plan callback
func (c *Client) OnPlanChange(fn func(*domain.ExecutionPlan)) func() {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.onPlan[id] = fn
	c.subsMu.Unlock()
	return func() {
		c.subsMu.Lock()
		delete(c.onPlan, id)
		c.subsMu.Unlock()
	}
}

// OnQueueChange registers a queue callback
func (c *Client) OnQueueChange(fn func([]domain.QueueItem)) func() {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.onQueue[id] = fn
	c.subsMu.Unlock()
	return func() {
		c.subsMu.Lock()
		delete(c.onQueue, id)
		c.subsMu.Unlock()
	}
}

// OnReleaseChange registers a release callback
func (c *Client) OnReleaseChange(fn func(domain.Release)) func() {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.onRelease[id] = fn
	c.subsMu.Unlock()
	return func() {
		c.subsMu.Lock()
		delete(c.onRelease, id)
		c.subsMu.Unlock()
	}
}

// OnProjectSwitched registers a switch-completed callback
func (c *Client) OnProjectSwitched(fn func(string)) func() {
	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.onSwitch[id] = fn
	c.subsMu.Unlock()
	return func() {
		c.subsMu.Lock()
		delete(c.onSwitch, id)
		c.subsMu.Unlock()
	}
}

func (c *Client) stateSubs() []func(any) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make([]func(any), 0, len(c.onState))
	for _, fn := range c.onState {
		out = append(out, fn)
	}
	return out
}

func (c *Client) planSubs() []func(*domain.ExecutionPlan) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make([]func(*domain.ExecutionPlan), 0, len(c.onPlan))
	for _, fn := range c.onPlan {
		out = append(out, fn)
	}
	return out
}

func (c *Client) queueSubs() []func([]domain.QueueItem) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make([]func([]domain.QueueItem), 0, len(c.onQueue))
	for _, fn := range c.onQueue {
		out = append(out, fn)
	}
	return out
}

func (c *Client) releaseSubs() []func(domain.Release) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make([]func(domain.Release), 0, len(c.onRelease))
	for _, fn := range c.onRelease {
		out = append(out, fn)
	}
	return out
}

func (c *Client) switchSubs() []func(string) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	out := make([]func(string), 0, len(c.onSwitch))
	for _, fn := range c.onSwitch {
		out = append(out, fn)
	}
	return out
}
