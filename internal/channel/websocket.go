package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/gorilla/websocket"

	"github.com/nguyentranbao-ct/chat-console/internal/config"
	"github.com/nguyentranbao-ct/chat-console/internal/models"
)

const (
	emitJoinChat  = "join_chat"
	emitLeaveChat = "leave_chat"

	eventBuffer   = 64
	reconnectWait = 2 * time.Second
)

type wsFrame struct {
	Event     string          `json:"event"`
	ChatID    string          `json:"chat_id,omitempty"`
	Message   json.RawMessage `json:"message,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
}

type wsChannel struct {
	url    string
	dialer *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	subs      map[string]struct{}
	closed    bool

	events chan models.ChannelEvent
	done   chan struct{}
}

// NewWebsocketChannel dials the gateway event socket and keeps the
// connection alive, re-joining subscribed chats after a reconnect. The
// initial dial failing is not fatal: the channel starts disconnected and the
// background loop keeps trying.
func NewWebsocketChannel(conf *config.Config) Channel {
	ch := &wsChannel{
		url: conf.Socket.URL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: conf.Socket.Timeout,
		},
		subs:   make(map[string]struct{}),
		events: make(chan models.ChannelEvent, eventBuffer),
		done:   make(chan struct{}),
	}
	go ch.run()
	return ch
}

func (ch *wsChannel) Subscribe(ctx context.Context, chatID string) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if !ch.connected {
		return fmt.Errorf("event channel disconnected")
	}
	if err := ch.emit(emitJoinChat, chatID); err != nil {
		return fmt.Errorf("join chat: %w", err)
	}
	ch.subs[chatID] = struct{}{}
	return nil
}

func (ch *wsChannel) Unsubscribe(ctx context.Context, chatID string) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	delete(ch.subs, chatID)
	if !ch.connected {
		// nothing to leave; the gateway dropped the room with the
		// connection
		return nil
	}
	if err := ch.emit(emitLeaveChat, chatID); err != nil {
		return fmt.Errorf("leave chat: %w", err)
	}
	return nil
}

func (ch *wsChannel) Events() <-chan models.ChannelEvent {
	return ch.events
}

func (ch *wsChannel) Connected() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.connected
}

func (ch *wsChannel) Close() error {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		return nil
	}
	ch.closed = true
	close(ch.done)
	conn := ch.conn
	ch.conn = nil
	ch.connected = false
	ch.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// emit writes a control frame. Callers hold ch.mu.
func (ch *wsChannel) emit(event, chatID string) error {
	if ch.conn == nil {
		return fmt.Errorf("no connection")
	}
	return ch.conn.WriteJSON(wsFrame{Event: event, ChatID: chatID})
}

func (ch *wsChannel) run() {
	ctx := context.Background()
	for {
		select {
		case <-ch.done:
			return
		default:
		}

		conn, _, err := ch.dialer.Dial(ch.url, nil)
		if err != nil {
			log.Warnw(ctx, "event socket dial failed", "url", ch.url, "error", err)
			select {
			case <-ch.done:
				return
			case <-time.After(reconnectWait):
				continue
			}
		}

		ch.attach(ctx, conn)
		ch.readLoop(ctx, conn)
		ch.detach(ctx, conn)
	}
}

func (ch *wsChannel) attach(ctx context.Context, conn *websocket.Conn) {
	ch.mu.Lock()
	ch.conn = conn
	ch.connected = true
	for chatID := range ch.subs {
		if err := ch.emit(emitJoinChat, chatID); err != nil {
			log.Warnw(ctx, "rejoin after reconnect failed", "chat_id", chatID, "error", err)
		}
	}
	ch.mu.Unlock()

	ch.deliver(models.ChannelEvent{Type: models.EventConnected})
}

func (ch *wsChannel) detach(ctx context.Context, conn *websocket.Conn) {
	ch.mu.Lock()
	if ch.conn == conn {
		ch.conn = nil
		ch.connected = false
	}
	ch.mu.Unlock()
	conn.Close()

	ch.deliver(models.ChannelEvent{Type: models.EventDisconnected})
}

func (ch *wsChannel) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			select {
			case <-ch.done:
			default:
				log.Warnw(ctx, "event socket read failed", "error", err)
			}
			return
		}

		switch frame.Event {
		case string(models.EventNewMessage):
			var msg models.Message
			if err := json.Unmarshal(frame.Message, &msg); err != nil {
				log.Errorw(ctx, "malformed new_message event", "error", err)
				continue
			}
			ch.deliver(models.ChannelEvent{
				Type:    models.EventNewMessage,
				ChatID:  frame.ChatID,
				Message: &msg,
			})
		case string(models.EventDocumentProcessed):
			ch.deliver(models.ChannelEvent{
				Type:      models.EventDocumentProcessed,
				ChatID:    frame.ChatID,
				MessageID: frame.MessageID,
			})
		default:
			// presence and typing events are not this core's concern
		}
	}
}

func (ch *wsChannel) deliver(event models.ChannelEvent) {
	select {
	case ch.events <- event:
	case <-ch.done:
	}
}
