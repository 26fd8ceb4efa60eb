package usecase

import (
	"context"
	"sync"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/carousell/ct-go/pkg/workerpool"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/chat-console/internal/config"
	"github.com/nguyentranbao-ct/chat-console/internal/models"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/mongodb"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/whapi"
)

// FilterAll selects every chat or every media type in FilterMedia.
const FilterAll = "all"

// MediaUsecase computes organization-wide media aggregates by fanning out
// across member chats. Aggregation tolerates per-chat failures: one broken
// chat is reported, never fatal.
type MediaUsecase struct {
	gateway whapi.Client
	orgRepo mongodb.OrganizationRepository
	workers int
}

func NewMediaUsecase(
	conf *config.Config,
	gateway whapi.Client,
	orgRepo mongodb.OrganizationRepository,
) *MediaUsecase {
	workers := conf.Gateway.FanoutWorkers
	if workers <= 0 {
		workers = 4
	}
	return &MediaUsecase{
		gateway: gateway,
		orgRepo: orgRepo,
		workers: workers,
	}
}

type chatMedia struct {
	attachments []models.Attachment
	err         error
}

// Aggregate gathers the deduplicated media set across the organization's
// chats. The membership set is snapshotted up front: concurrent membership
// changes do not affect an in-flight run.
func (uc *MediaUsecase) Aggregate(ctx context.Context, orgID primitive.ObjectID) (*models.MediaAggregate, error) {
	org, err := uc.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	chatIDs := make([]string, len(org.ChatIDs))
	copy(chatIDs, org.ChatIDs)

	results := make([]chatMedia, len(chatIDs))
	var mu sync.Mutex

	wp := workerpool.New(uc.workers)
	for i, chatID := range chatIDs {
		i, chatID := i, chatID
		wp.Run(func() {
			attachments, err := uc.fetchChatMedia(ctx, chatID)
			mu.Lock()
			results[i] = chatMedia{attachments: attachments, err: err}
			mu.Unlock()
		})
	}
	wp.Close()
	wp.Wait()

	aggregate := &models.MediaAggregate{OrgID: orgID.Hex()}
	seen := make(map[models.DedupKey]struct{})
	for i, result := range results {
		if result.err != nil {
			log.Warnw(ctx, "chat media fetch failed, excluded from aggregate",
				"chat_id", chatIDs[i], "error", result.err)
			aggregate.FailedChatIDs = append(aggregate.FailedChatIDs, chatIDs[i])
			continue
		}
		// first occurrence wins across the snapshot order
		for _, att := range result.attachments {
			if _, ok := seen[att.Key()]; ok {
				continue
			}
			seen[att.Key()] = struct{}{}
			aggregate.Items = append(aggregate.Items, att)
		}
	}

	if len(aggregate.FailedChatIDs) > 0 {
		log.Infow(ctx, "media aggregation completed with partial failures",
			"org_id", orgID.Hex(),
			"failed", len(aggregate.FailedChatIDs),
			"total", len(chatIDs))
	}
	return aggregate, nil
}

func (uc *MediaUsecase) fetchChatMedia(ctx context.Context, chatID string) ([]models.Attachment, error) {
	attachments, err := uc.gateway.ListMedia(ctx, chatID)
	if err != nil {
		return nil, err
	}

	chatName, err := uc.gateway.GetChatName(ctx, chatID)
	if err != nil {
		// best-effort: fall back to a name synthesized from the id
		chatName = models.ChatDisplayName(chatID)
	}
	for i := range attachments {
		attachments[i].ChatID = chatID
		attachments[i].ChatName = chatName
	}
	return attachments, nil
}

// FilterMedia narrows an already-computed aggregate by chat and media type.
// Pure and synchronous: it never refetches.
func (uc *MediaUsecase) FilterMedia(aggregate *models.MediaAggregate, chatID string, mediaType models.MessageType) []models.Attachment {
	filtered := []models.Attachment{}
	for _, item := range aggregate.Items {
		chatMatches := chatID == FilterAll || chatID == "" || item.ChatID == chatID
		typeMatches := string(mediaType) == FilterAll || mediaType == "" || item.Type == mediaType
		if chatMatches && typeMatches {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
