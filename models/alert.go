package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Alert condition values
const (
	ConditionAbove = "above"
	ConditionBelow = "below"
)

// PriceAlert represents a user's standing instruction to be notified when a
// symbol's price crosses a threshold. Once triggered it is never re-evaluated.
type PriceAlert struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           string             `bson:"user_id" json:"userId"`
	UserEmail        string             `bson:"user_email" json:"userEmail"`
	Symbol           string             `bson:"symbol" json:"symbol"`
	Company          string             `bson:"company" json:"company"`
	TargetPrice      float64            `bson:"target_price" json:"targetPrice"`
	Condition        string             `bson:"condition" json:"condition"`
	IsActive         bool               `bson:"is_active" json:"isActive"`
	IsTriggered      bool               `bson:"is_triggered" json:"isTriggered"`
	TriggeredAt      *time.Time         `bson:"triggered_at,omitempty" json:"triggeredAt,omitempty"`
	NotificationSent bool               `bson:"notification_sent" json:"notificationSent"`
	CreatedAt        time.Time          `bson:"created_at" json:"createdAt"`
}

// ValidCondition reports whether s is a supported alert condition.
func ValidCondition(s string) bool {
	return s == ConditionAbove || s == ConditionBelow
}

// CreateAlertRequest is the payload for creating a price alert.
type CreateAlertRequest struct {
	Symbol      string  `json:"symbol" binding:"required"`
	Company     string  `json:"company" binding:"required"`
	TargetPrice float64 `json:"targetPrice" binding:"required,gt=0"`
	Condition   string  `json:"condition" binding:"required,oneof=above below"`
}

// ToggleAlertRequest is the payload for activating or deactivating an alert.
type ToggleAlertRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}
