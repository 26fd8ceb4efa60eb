package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nguyentranbao-ct/chat-console/internal/models"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Organization, error)
	List(ctx context.Context) ([]*models.Organization, error)
	Update(ctx context.Context, org *models.Organization) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddChat(ctx context.Context, id primitive.ObjectID, chatID string) error
	RemoveChat(ctx context.Context, id primitive.ObjectID, chatID string) error
}

type organizationRepo struct {
	collection *mongo.Collection
}

func NewOrganizationRepository(db *DB) OrganizationRepository {
	return &organizationRepo{
		collection: db.Database.Collection("organizations"),
	}
}

func (r *organizationRepo) Create(ctx context.Context, org *models.Organization) error {
	org.ID = primitive.NewObjectID()
	org.CreatedAt = time.Now()
	org.UpdatedAt = time.Now()
	if org.ChatIDs == nil {
		org.ChatIDs = []string{}
	}

	_, err := r.collection.InsertOne(ctx, org)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

func (r *organizationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Organization, error) {
	var org models.Organization
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&org)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

func (r *organizationRepo) List(ctx context.Context) ([]*models.Organization, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer cursor.Close(ctx)

	var orgs []*models.Organization
	for cursor.Next(ctx) {
		var org models.Organization
		if err := cursor.Decode(&org); err != nil {
			return nil, fmt.Errorf("failed to decode organization: %w", err)
		}
		orgs = append(orgs, &org)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return orgs, nil
}

func (r *organizationRepo) Update(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"name":        org.Name,
		"description": org.Description,
		"updated_at":  org.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": org.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *organizationRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// AddChat is idempotent: $addToSet makes a repeated add a no-op.
func (r *organizationRepo) AddChat(ctx context.Context, id primitive.ObjectID, chatID string) error {
	update := bson.M{
		"$addToSet": bson.M{"chat_ids": chatID},
		"$set":      bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to add chat to organization: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *organizationRepo) RemoveChat(ctx context.Context, id primitive.ObjectID, chatID string) error {
	update := bson.M{
		"$pull": bson.M{"chat_ids": chatID},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to remove chat from organization: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
