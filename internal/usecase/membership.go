package usecase

import (
	"context"
	"sync"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/carousell/ct-go/pkg/workerpool"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nguyentranbao-ct/chat-console/internal/models"
	"github.com/nguyentranbao-ct/chat-console/internal/repo/mongodb"
)

// MembershipUsecase mutates the organization/chat relation. Bulk adds commit
// per id: failed ids stay unassigned while the rest land.
type MembershipUsecase struct {
	orgRepo mongodb.OrganizationRepository
	workers int
}

func NewMembershipUsecase(orgRepo mongodb.OrganizationRepository) *MembershipUsecase {
	return &MembershipUsecase{
		orgRepo: orgRepo,
		workers: 4,
	}
}

// AddChatsResult carries the refreshed organization and the ids that could
// not be assigned.
type AddChatsResult struct {
	Organization  *models.Organization `json:"organization"`
	FailedChatIDs []string             `json:"failed_chat_ids,omitempty"`
}

// AddChats assigns the chats concurrently. The relation is idempotent
// ($addToSet), so re-adding a present id is a safe no-op. One id failing
// never rolls back the others.
func (uc *MembershipUsecase) AddChats(ctx context.Context, orgID primitive.ObjectID, chatIDs []string) (*AddChatsResult, error) {
	if _, err := uc.orgRepo.GetByID(ctx, orgID); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var failed []string

	wp := workerpool.New(uc.workers)
	for _, chatID := range chatIDs {
		chatID := chatID
		wp.Run(func() {
			if err := uc.orgRepo.AddChat(ctx, orgID, chatID); err != nil {
				log.Warnw(ctx, "chat assignment failed",
					"org_id", orgID.Hex(), "chat_id", chatID, "error", err)
				mu.Lock()
				failed = append(failed, chatID)
				mu.Unlock()
			}
		})
	}
	wp.Close()
	wp.Wait()

	org, err := uc.orgRepo.GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return &AddChatsResult{Organization: org, FailedChatIDs: failed}, nil
}

// RemoveChat drops one chat from the organization. A cached media aggregate
// is left untouched: its entries for this chat go stale and are purged only
// by the next aggregation run.
func (uc *MembershipUsecase) RemoveChat(ctx context.Context, orgID primitive.ObjectID, chatID string) (*models.Organization, error) {
	if err := uc.orgRepo.RemoveChat(ctx, orgID, chatID); err != nil {
		return nil, err
	}
	return uc.orgRepo.GetByID(ctx, orgID)
}
