package usecase

import (
	"context"
	"fmt"
	"sync"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/qmuntal/stateless"

	"github.com/nguyentranbao-ct/chat-console/internal/channel"
	"github.com/nguyentranbao-ct/chat-console/internal/models"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/transcribe"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/whapi"
)

// Session lifecycle. Live and document events are applied only in Open.
const (
	sessionClosed  = "closed"
	sessionOpening = "opening"
	sessionOpen    = "open"

	triggerOpen   = "open"
	triggerOpened = "opened"
	triggerFail   = "fail"
	triggerClose  = "close"
)

// operatorUserID keys the console operator's own reactions.
const operatorUserID = "me"

func newSessionMachine() *stateless.StateMachine {
	sm := stateless.NewStateMachine(sessionClosed)
	sm.Configure(sessionClosed).
		Permit(triggerOpen, sessionOpening)
	sm.Configure(sessionOpening).
		Permit(triggerOpened, sessionOpen).
		Permit(triggerFail, sessionClosed)
	sm.Configure(sessionOpen).
		Permit(triggerClose, sessionClosed)
	return sm
}

type chatSession struct {
	chatID      string
	generation  uint64
	machine     *stateless.StateMachine
	messages    []models.Message
	seen        map[string]int
	transcripts map[string]models.TranscriptionResult
	degraded    bool
}

func (s *chatSession) state() string {
	return s.machine.MustState().(string)
}

func (s *chatSession) merge(msg models.Message) bool {
	if _, ok := s.seen[msg.ID]; ok {
		return false
	}
	s.seen[msg.ID] = len(s.messages)
	s.messages = append(s.messages, msg)
	return true
}

func (s *chatSession) snapshot() *models.Timeline {
	messages := make([]models.Message, len(s.messages))
	copy(messages, s.messages)
	transcripts := make(map[string]models.TranscriptionResult, len(s.transcripts))
	for k, v := range s.transcripts {
		transcripts[k] = v
	}
	return &models.Timeline{
		ChatID:      s.chatID,
		Messages:    messages,
		Transcripts: transcripts,
		Degraded:    s.degraded,
	}
}

// TimelineUsecase maintains at most one open chat timeline, merging REST
// history, live channel events and transcription results into a single
// ordered, deduplicated view.
type TimelineUsecase struct {
	gateway     whapi.Client
	transcriber transcribe.Client
	channel     channel.Channel

	mu         sync.Mutex
	session    *chatSession
	generation uint64

	stop chan struct{}
	done chan struct{}
}

func NewTimelineUsecase(
	gateway whapi.Client,
	transcriber transcribe.Client,
	ch channel.Channel,
) *TimelineUsecase {
	return &TimelineUsecase{
		gateway:     gateway,
		transcriber: transcriber,
		channel:     ch,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs the channel event dispatcher until Stop.
func (uc *TimelineUsecase) Start(ctx context.Context) {
	go func() {
		defer close(uc.done)
		for {
			select {
			case <-uc.stop:
				return
			case event, ok := <-uc.channel.Events():
				if !ok {
					return
				}
				uc.dispatch(ctx, event)
			}
		}
	}()
}

func (uc *TimelineUsecase) Stop() {
	close(uc.stop)
	<-uc.done
}

func (uc *TimelineUsecase) dispatch(ctx context.Context, event models.ChannelEvent) {
	switch event.Type {
	case models.EventNewMessage:
		if event.Message != nil {
			uc.ApplyLiveMessage(ctx, event.ChatID, *event.Message)
		}
	case models.EventDocumentProcessed:
		uc.ApplyDocumentProcessed(ctx, event.ChatID, event.MessageID)
	case models.EventDisconnected:
		log.Warnw(ctx, "event channel disconnected, live updates suspended")
	case models.EventConnected:
		log.Infow(ctx, "event channel connected")
	}
}

// Open fetches the chat's newest history page, subscribes for live events and
// returns the initial timeline. A prior open chat is closed first: only one
// timeline is active per session. A failed subscription degrades the open to
// history-only instead of aborting it.
func (uc *TimelineUsecase) Open(ctx context.Context, chatID string) (*models.Timeline, error) {
	uc.mu.Lock()
	if uc.session != nil {
		uc.closeLocked(ctx)
	}
	uc.generation++
	session := &chatSession{
		chatID:      chatID,
		generation:  uc.generation,
		machine:     newSessionMachine(),
		seen:        make(map[string]int),
		transcripts: make(map[string]models.TranscriptionResult),
	}
	if err := session.machine.FireCtx(ctx, triggerOpen); err != nil {
		uc.mu.Unlock()
		return nil, err
	}
	uc.session = session
	uc.mu.Unlock()

	// Suspension point: a close or another open may land while this fetch
	// is in flight. The generation check below discards the stale result.
	messages, err := uc.gateway.ListMessages(ctx, chatID, whapi.ListOptions{})

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.session == nil || uc.session.generation != session.generation {
		return nil, fmt.Errorf("open %s superseded", chatID)
	}
	if err != nil {
		_ = session.machine.FireCtx(ctx, triggerFail)
		uc.session = nil
		return nil, err
	}

	for _, msg := range messages {
		session.merge(msg)
	}

	if subErr := uc.channel.Subscribe(ctx, chatID); subErr != nil {
		session.degraded = true
		log.Warnw(ctx, "live subscription failed, history-only mode",
			"chat_id", chatID, "error", subErr)
	}

	if err := session.machine.FireCtx(ctx, triggerOpened); err != nil {
		uc.session = nil
		return nil, err
	}
	return session.snapshot(), nil
}

// Close unsubscribes and discards the timeline. Idempotent: closing a chat
// that is not open is a no-op.
func (uc *TimelineUsecase) Close(ctx context.Context, chatID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.session == nil || uc.session.chatID != chatID {
		return
	}
	uc.closeLocked(ctx)
}

func (uc *TimelineUsecase) closeLocked(ctx context.Context) {
	session := uc.session
	if session == nil {
		return
	}
	if err := uc.channel.Unsubscribe(ctx, session.chatID); err != nil {
		log.Warnw(ctx, "unsubscribe failed", "chat_id", session.chatID, "error", err)
	}
	if session.state() == sessionOpen {
		_ = session.machine.FireCtx(ctx, triggerClose)
	}
	uc.session = nil
}

// LoadOlder fetches the page before the oldest loaded message and merges it
// at the head of the timeline.
func (uc *TimelineUsecase) LoadOlder(ctx context.Context, limit int) (*models.Timeline, error) {
	uc.mu.Lock()
	session := uc.session
	if session == nil || session.state() != sessionOpen {
		uc.mu.Unlock()
		return nil, fmt.Errorf("no open chat")
	}
	chatID := session.chatID
	generation := session.generation
	before := ""
	if len(session.messages) > 0 {
		before = session.messages[0].ID
	}
	uc.mu.Unlock()

	older, err := uc.gateway.ListMessages(ctx, chatID, whapi.ListOptions{Limit: limit, Before: before})
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.session == nil || uc.session.generation != generation {
		return nil, fmt.Errorf("chat %s no longer open", chatID)
	}

	merged := make([]models.Message, 0, len(older)+len(session.messages))
	for _, msg := range older {
		if _, ok := session.seen[msg.ID]; !ok {
			merged = append(merged, msg)
		}
	}
	merged = append(merged, session.messages...)
	session.messages = merged
	session.seen = make(map[string]int, len(merged))
	for i, msg := range merged {
		session.seen[msg.ID] = i
	}
	return session.snapshot(), nil
}

// ApplyLiveMessage appends a pushed message at the tail. Messages for other
// chats, duplicates and events outside the Open state are ignored; the same
// message arriving via both a history fetch and the live path is applied
// once. Live ordering trusts the source's monotonic timestamps; the timeline
// never re-sorts.
func (uc *TimelineUsecase) ApplyLiveMessage(ctx context.Context, chatID string, msg models.Message) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	session := uc.session
	if session == nil || session.state() != sessionOpen || session.chatID != chatID {
		return
	}
	if session.merge(msg) {
		log.Infow(ctx, "live message applied", "chat_id", chatID, "message_id", msg.ID)
	}
}

// ApplyDocumentProcessed re-fetches the finished transcription result and
// joins it into the timeline. The fetch runs off the dispatcher goroutine so
// a slow pipeline read never blocks live message delivery.
func (uc *TimelineUsecase) ApplyDocumentProcessed(ctx context.Context, chatID, messageID string) {
	uc.mu.Lock()
	session := uc.session
	if session == nil || session.state() != sessionOpen || session.chatID != chatID {
		uc.mu.Unlock()
		return
	}
	generation := session.generation
	uc.mu.Unlock()

	// the caller's deadline covers event handling, not the fetch
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		result, err := uc.transcriber.Analyze(fetchCtx, messageID)
		if err != nil {
			log.Errorw(ctx, "transcription fetch failed",
				"chat_id", chatID, "message_id", messageID, "error", err)
			return
		}

		uc.mu.Lock()
		defer uc.mu.Unlock()
		if uc.session == nil || uc.session.generation != generation {
			// chat closed or reopened while the result was in flight
			return
		}
		uc.session.transcripts[messageID] = *result
	}()
}

// SendMessage submits via the gateway and appends the returned canonical
// message. No optimistic local echo: the server record is the only thing
// appended, so a draft can never diverge from it.
func (uc *TimelineUsecase) SendMessage(ctx context.Context, params models.SendMessageParams) (*models.Message, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	uc.mu.Lock()
	session := uc.session
	if session == nil || session.state() != sessionOpen {
		uc.mu.Unlock()
		return nil, fmt.Errorf("no open chat")
	}
	chatID := session.chatID
	generation := session.generation
	uc.mu.Unlock()

	msg, err := uc.gateway.SendMessage(ctx, chatID, params)
	if err != nil {
		return nil, err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.session != nil && uc.session.generation == generation {
		uc.session.merge(*msg)
	}
	return msg, nil
}

// React submits the operator's reaction and applies the replace-by-user rule
// locally on success. On failure the timeline is left unchanged.
func (uc *TimelineUsecase) React(ctx context.Context, messageID, emoji string) error {
	uc.mu.Lock()
	session := uc.session
	if session == nil || session.state() != sessionOpen {
		uc.mu.Unlock()
		return fmt.Errorf("no open chat")
	}
	if _, ok := session.seen[messageID]; !ok {
		uc.mu.Unlock()
		return models.ErrNotFound
	}
	chatID := session.chatID
	generation := session.generation
	uc.mu.Unlock()

	if err := uc.gateway.ReactToMessage(ctx, chatID, messageID, emoji); err != nil {
		return err
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.session == nil || uc.session.generation != generation {
		return nil
	}
	if i, ok := uc.session.seen[messageID]; ok {
		uc.session.messages[i].ApplyReaction(operatorUserID, emoji)
	}
	return nil
}

// Snapshot returns a copy of the open timeline.
func (uc *TimelineUsecase) Snapshot() (*models.Timeline, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.session == nil || uc.session.state() != sessionOpen {
		return nil, fmt.Errorf("no open chat")
	}
	return uc.session.snapshot(), nil
}

// ActiveChatID returns the open chat id, or empty when none is open.
func (uc *TimelineUsecase) ActiveChatID() string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.session == nil {
		return ""
	}
	return uc.session.chatID
}
