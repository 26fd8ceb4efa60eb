package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentranbao-ct/chat-console/internal/models"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/whapi"
)

type fakeGateway struct {
	mu       sync.Mutex
	history  map[string][]models.Message
	listErr  map[string]error
	listHook func(chatID string, opts whapi.ListOptions)
	sendErr  error
	reactErr error
	media    map[string][]models.Attachment
	mediaErr map[string]error
	names    map[string]string
	sent     []models.SendMessageParams
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		history:  map[string][]models.Message{},
		listErr:  map[string]error{},
		media:    map[string][]models.Attachment{},
		mediaErr: map[string]error{},
		names:    map[string]string{},
	}
}

func (f *fakeGateway) ListMessages(ctx context.Context, chatID string, opts whapi.ListOptions) ([]models.Message, error) {
	if f.listHook != nil {
		hook := f.listHook
		f.listHook = nil
		hook(chatID, opts)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[chatID]; err != nil {
		return nil, err
	}
	if opts.Before != "" {
		// pagination fakes are keyed by cursor
		return f.history[chatID+"@"+opts.Before], nil
	}
	return f.history[chatID], nil
}

func (f *fakeGateway) SendMessage(ctx context.Context, chatID string, params models.SendMessageParams) (*models.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, params)
	return &models.Message{
		ID:      fmt.Sprintf("sent-%d", len(f.sent)),
		ChatID:  chatID,
		Type:    models.MessageTypeText,
		Content: params.Text,
		Sender:  "me",
	}, nil
}

func (f *fakeGateway) ReactToMessage(ctx context.Context, chatID, messageID, emoji string) error {
	return f.reactErr
}

func (f *fakeGateway) ListMedia(ctx context.Context, chatID string) ([]models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mediaErr[chatID]; err != nil {
		return nil, err
	}
	return f.media[chatID], nil
}

func (f *fakeGateway) GetChatName(ctx context.Context, chatID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, ok := f.names[chatID]; ok {
		return name, nil
	}
	return "", fmt.Errorf("no name")
}

type fakeTranscriber struct {
	mu      sync.Mutex
	results map[string]*models.TranscriptionResult
	err     error
	block   chan struct{}
}

func (f *fakeTranscriber) Analyze(ctx context.Context, attachmentKey string) (*models.TranscriptionResult, error) {
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if result, ok := f.results[attachmentKey]; ok {
		return result, nil
	}
	return &models.TranscriptionResult{AttachmentKey: attachmentKey, RawText: "extracted"}, nil
}

type fakeChannel struct {
	mu           sync.Mutex
	events       chan models.ChannelEvent
	subscribeErr error
	subscribed   []string
	unsubscribed []string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan models.ChannelEvent, 16)}
}

func (f *fakeChannel) Subscribe(ctx context.Context, chatID string) error {
	if f.subscribeErr != nil {
		return f.subscribeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, chatID)
	return nil
}

func (f *fakeChannel) Unsubscribe(ctx context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed = append(f.unsubscribed, chatID)
	return nil
}

func (f *fakeChannel) Events() <-chan models.ChannelEvent { return f.events }
func (f *fakeChannel) Connected() bool                    { return true }
func (f *fakeChannel) Close() error                       { return nil }

func msg(id string, ts int64) models.Message {
	return models.Message{ID: id, Timestamp: ts, Type: models.MessageTypeText, Content: "m-" + id}
}

const (
	chatA = "12345@s.whatsapp.net"
	chatB = "67890-group@g.us"
)

func newTimelineFixture() (*TimelineUsecase, *fakeGateway, *fakeTranscriber, *fakeChannel) {
	gateway := newFakeGateway()
	transcriber := &fakeTranscriber{}
	ch := newFakeChannel()
	return NewTimelineUsecase(gateway, transcriber, ch), gateway, transcriber, ch
}

func TestOpenFetchesHistoryAndSubscribes(t *testing.T) {
	uc, gateway, _, ch := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100), msg("m2", 200)}

	timeline, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)
	assert.Equal(t, chatA, timeline.ChatID)
	assert.Len(t, timeline.Messages, 2)
	assert.False(t, timeline.Degraded)
	assert.Equal(t, []string{chatA}, ch.subscribed)
	assert.Equal(t, chatA, uc.ActiveChatID())
}

func TestOpenHistoryFailureAbortsOpen(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.listErr[chatA] = fmt.Errorf("gateway down")

	_, err := uc.Open(context.Background(), chatA)
	require.Error(t, err)
	assert.Empty(t, uc.ActiveChatID())

	_, err = uc.Snapshot()
	assert.Error(t, err)
}

func TestOpenSubscribeFailureDegradesToHistoryOnly(t *testing.T) {
	uc, gateway, _, ch := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	ch.subscribeErr = fmt.Errorf("socket disconnected")

	timeline, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)
	assert.True(t, timeline.Degraded)
	assert.Len(t, timeline.Messages, 1)
	assert.Equal(t, chatA, uc.ActiveChatID())
}

func TestOpenClosesPreviousChat(t *testing.T) {
	uc, gateway, _, ch := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	gateway.history[chatB] = []models.Message{msg("g1", 100)}

	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)
	_, err = uc.Open(context.Background(), chatB)
	require.NoError(t, err)

	assert.Equal(t, []string{chatA}, ch.unsubscribed)
	assert.Equal(t, chatB, uc.ActiveChatID())
}

func TestOpenSupersededByNewerOpen(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	gateway.history[chatB] = []models.Message{msg("g1", 100)}

	// a second open lands while the first history fetch is in flight
	gateway.listHook = func(chatID string, _ whapi.ListOptions) {
		if chatID == chatA {
			_, err := uc.Open(context.Background(), chatB)
			require.NoError(t, err)
		}
	}

	_, err := uc.Open(context.Background(), chatA)
	require.Error(t, err)
	assert.Equal(t, chatB, uc.ActiveChatID())

	timeline, err := uc.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, chatB, timeline.ChatID)
	require.Len(t, timeline.Messages, 1)
	assert.Equal(t, "g1", timeline.Messages[0].ID)
}

func TestCloseIsIdempotent(t *testing.T) {
	uc, gateway, _, ch := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}

	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	uc.Close(context.Background(), chatB) // not the open chat, no-op
	assert.Equal(t, chatA, uc.ActiveChatID())

	uc.Close(context.Background(), chatA)
	assert.Empty(t, uc.ActiveChatID())
	assert.Equal(t, []string{chatA}, ch.unsubscribed)

	uc.Close(context.Background(), chatA) // already closed
	assert.Equal(t, []string{chatA}, ch.unsubscribed)
}

func TestApplyLiveMessageAppendsAndDeduplicates(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100), msg("m2", 200)}

	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	ctx := context.Background()
	uc.ApplyLiveMessage(ctx, chatA, msg("m3", 300))
	uc.ApplyLiveMessage(ctx, chatA, msg("m2", 200)) // already in history
	uc.ApplyLiveMessage(ctx, chatA, msg("m3", 300)) // duplicate push
	uc.ApplyLiveMessage(ctx, chatB, msg("x1", 400)) // other chat

	timeline, err := uc.Snapshot()
	require.NoError(t, err)
	require.Len(t, timeline.Messages, 3)
	assert.Equal(t, "m3", timeline.Messages[2].ID)
}

func TestLoadOlderPrependsWithoutDuplicates(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m3", 300), msg("m4", 400)}
	gateway.history[chatA+"@m3"] = []models.Message{msg("m1", 100), msg("m2", 200), msg("m3", 300)}

	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	timeline, err := uc.LoadOlder(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, timeline.Messages, 4)
	assert.Equal(t, "m1", timeline.Messages[0].ID)
	assert.Equal(t, "m4", timeline.Messages[3].ID)
}

func TestLoadOlderRequiresOpenChat(t *testing.T) {
	uc, _, _, _ := newTimelineFixture()
	_, err := uc.LoadOlder(context.Background(), 50)
	assert.Error(t, err)
}

func TestSendMessageRejectsEmptyPayload(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	_, err = uc.SendMessage(context.Background(), models.SendMessageParams{})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	timeline, err := uc.Snapshot()
	require.NoError(t, err)
	assert.Len(t, timeline.Messages, 1)
	assert.Empty(t, gateway.sent)
}

func TestSendMessageAppendsCanonicalRecord(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	sent, err := uc.SendMessage(context.Background(), models.SendMessageParams{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "sent-1", sent.ID)

	timeline, err := uc.Snapshot()
	require.NoError(t, err)
	require.Len(t, timeline.Messages, 2)
	assert.Equal(t, "sent-1", timeline.Messages[1].ID)
	assert.Equal(t, "hello", timeline.Messages[1].Content)
}

func TestSendMessageGatewayFailureLeavesTimelineUnchanged(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	gateway.sendErr = fmt.Errorf("gateway rejected")
	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	_, err = uc.SendMessage(context.Background(), models.SendMessageParams{Text: "hello"})
	require.Error(t, err)

	timeline, err := uc.Snapshot()
	require.NoError(t, err)
	assert.Len(t, timeline.Messages, 1)
}

func TestReactReplacesOperatorReaction(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	m := msg("m1", 100)
	m.Reactions = []models.Reaction{{UserID: "other", Emoji: "👀"}}
	gateway.history[chatA] = []models.Message{m}
	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	require.NoError(t, uc.React(context.Background(), "m1", "👍"))
	require.NoError(t, uc.React(context.Background(), "m1", "❤️"))

	timeline, err := uc.Snapshot()
	require.NoError(t, err)
	reactions := timeline.Messages[0].Reactions
	require.Len(t, reactions, 2)
	assert.Equal(t, models.Reaction{UserID: "other", Emoji: "👀"}, reactions[0])
	assert.Equal(t, models.Reaction{UserID: "me", Emoji: "❤️"}, reactions[1])
}

func TestReactUnknownMessage(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	err = uc.React(context.Background(), "nope", "👍")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestReactGatewayFailureLeavesReactionsUnchanged(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	gateway.reactErr = fmt.Errorf("gateway rejected")
	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	require.Error(t, uc.React(context.Background(), "m1", "👍"))

	timeline, err := uc.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, timeline.Messages[0].Reactions)
}

func TestDocumentProcessedJoinsTranscription(t *testing.T) {
	uc, gateway, transcriber, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	transcriber.results = map[string]*models.TranscriptionResult{
		"m1": {AttachmentKey: "m1", RawText: "invoice total 42", Confidence: 0.97},
	}
	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	uc.ApplyDocumentProcessed(context.Background(), chatA, "m1")

	assert.Eventually(t, func() bool {
		timeline, err := uc.Snapshot()
		if err != nil {
			return false
		}
		result, ok := timeline.Transcripts["m1"]
		return ok && result.RawText == "invoice total 42"
	}, time.Second, 5*time.Millisecond)
}

func TestDocumentProcessedDiscardedAfterReopen(t *testing.T) {
	uc, gateway, transcriber, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	transcriber.block = make(chan struct{})
	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	uc.ApplyDocumentProcessed(context.Background(), chatA, "m1")

	// the chat is reopened before the transcription fetch finishes
	_, err = uc.Open(context.Background(), chatA)
	require.NoError(t, err)
	close(transcriber.block)

	time.Sleep(20 * time.Millisecond)
	timeline, err := uc.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, timeline.Transcripts)
}

func TestDispatcherRoutesChannelEvents(t *testing.T) {
	uc, gateway, _, ch := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}

	uc.Start(context.Background())
	defer uc.Stop()

	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	live := msg("m2", 200)
	ch.events <- models.ChannelEvent{Type: models.EventNewMessage, ChatID: chatA, Message: &live}

	assert.Eventually(t, func() bool {
		timeline, err := uc.Snapshot()
		return err == nil && len(timeline.Messages) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestSnapshotIsACopy(t *testing.T) {
	uc, gateway, _, _ := newTimelineFixture()
	gateway.history[chatA] = []models.Message{msg("m1", 100)}
	_, err := uc.Open(context.Background(), chatA)
	require.NoError(t, err)

	first, err := uc.Snapshot()
	require.NoError(t, err)
	first.Messages[0].Content = "mutated"

	second, err := uc.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "m-m1", second.Messages[0].Content)
}
