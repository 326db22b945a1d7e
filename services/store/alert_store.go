package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"marketglimpse_backend/models"
)

// Store-level errors surfaced to controllers.
var (
	ErrAlertNotFound  = errors.New("alert not found")
	ErrDuplicateAlert = errors.New("similar alert already exists")
	ErrInvalidAlertID = errors.New("invalid alert id")
)

// AlertStore persists price alerts. All writes are single-document updates
// scoped by the alert id; user identity is denormalized onto each document so
// no joins are needed.
type AlertStore struct {
	alerts *mongo.Collection
	logger zerolog.Logger
}

// NewAlertStore creates an alert store over the shared Mongo client.
func NewAlertStore(client *Client, logger zerolog.Logger) *AlertStore {
	return &AlertStore{
		alerts: client.Database().Collection(AlertsCollection),
		logger: logger.With().Str("component", "alert_store").Logger(),
	}
}

// FindPending returns all alerts that are active and not yet triggered.
func (s *AlertStore) FindPending(ctx context.Context) ([]models.PriceAlert, error) {
	cursor, err := s.alerts.Find(ctx, bson.M{"is_active": true, "is_triggered": false})
	if err != nil {
		return nil, fmt.Errorf("find pending alerts: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []models.PriceAlert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("decode pending alerts: %w", err)
	}
	return alerts, nil
}

// FindByUser returns a user's alerts, newest first.
func (s *AlertStore) FindByUser(ctx context.Context, userID string) ([]models.PriceAlert, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.alerts.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find alerts for user: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []models.PriceAlert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("decode user alerts: %w", err)
	}
	return alerts, nil
}

// Create inserts a new alert after rejecting duplicates: an identical
// symbol/target/condition combination that is still pending for the same
// user.
func (s *AlertStore) Create(ctx context.Context, alert *models.PriceAlert) error {
	filter := bson.M{
		"user_id":      alert.UserID,
		"symbol":       alert.Symbol,
		"target_price": alert.TargetPrice,
		"condition":    alert.Condition,
		"is_active":    true,
		"is_triggered": false,
	}

	err := s.alerts.FindOne(ctx, filter).Err()
	if err == nil {
		return ErrDuplicateAlert
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("check duplicate alert: %w", err)
	}

	alert.ID = primitive.NewObjectID()
	alert.CreatedAt = time.Now()
	if _, err := s.alerts.InsertOne(ctx, alert); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}

	s.logger.Info().Str("symbol", alert.Symbol).Str("user_id", alert.UserID).Msg("alert created")
	return nil
}

// Delete removes an alert owned by userID.
func (s *AlertStore) Delete(ctx context.Context, id, userID string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidAlertID
	}

	result, err := s.alerts.DeleteOne(ctx, bson.M{"_id": objectID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// SetActive activates or deactivates an alert owned by userID. Deactivation
// only removes the alert from evaluation; trigger state is untouched.
func (s *AlertStore) SetActive(ctx context.Context, id, userID string, active bool) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidAlertID
	}

	result, err := s.alerts.UpdateOne(ctx,
		bson.M{"_id": objectID, "user_id": userID},
		bson.M{"$set": bson.M{"is_active": active}},
	)
	if err != nil {
		return fmt.Errorf("toggle alert: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// MarkTriggered flips an alert to its terminal triggered state in a single
// update. notification_sent is set together with is_triggered so a later
// delivery failure cannot leave the alert looking untriggered while blocking
// re-evaluation.
func (s *AlertStore) MarkTriggered(ctx context.Context, id primitive.ObjectID, triggeredAt time.Time) error {
	_, err := s.alerts.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"is_triggered":      true,
			"triggered_at":      triggeredAt,
			"notification_sent": true,
		}},
	)
	if err != nil {
		return fmt.Errorf("mark alert triggered: %w", err)
	}
	return nil
}
