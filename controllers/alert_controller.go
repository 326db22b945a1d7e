package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketglimpse_backend/middleware"
	"marketglimpse_backend/models"
	"marketglimpse_backend/services/alerts"
	"marketglimpse_backend/services/finnhub"
	"marketglimpse_backend/services/store"
)

// AlertController handles price alert requests.
type AlertController struct {
	store  *store.AlertStore
	engine *alerts.Engine
}

// NewAlertController creates a new alert controller.
func NewAlertController(alertStore *store.AlertStore, engine *alerts.Engine) *AlertController {
	return &AlertController{
		store:  alertStore,
		engine: engine,
	}
}

// GetAlerts returns the authenticated user's alerts, newest first.
// GET /api/v1/alerts
func (ac *AlertController) GetAlerts(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	userAlerts, err := ac.store.FindByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": userAlerts})
}

// CreateAlert creates a price alert for the authenticated user.
// POST /api/v1/alerts
func (ac *AlertController) CreateAlert(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	userEmail, _ := middleware.GetUserEmail(c)

	var req models.CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	alert := &models.PriceAlert{
		UserID:      userID,
		UserEmail:   userEmail,
		Symbol:      finnhub.NormalizeSymbol(req.Symbol),
		Company:     strings.TrimSpace(req.Company),
		TargetPrice: req.TargetPrice,
		Condition:   req.Condition,
		IsActive:    true,
	}

	if err := ac.store.Create(c.Request.Context(), alert); err != nil {
		if errors.Is(err, store.ErrDuplicateAlert) {
			c.JSON(http.StatusConflict, gin.H{"error": "Similar alert already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create alert"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": alert})
}

// DeleteAlert deletes one of the authenticated user's alerts.
// DELETE /api/v1/alerts/:id
func (ac *AlertController) DeleteAlert(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	err = ac.store.Delete(c.Request.Context(), c.Param("id"), userID)
	switch {
	case errors.Is(err, store.ErrInvalidAlertID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
	case errors.Is(err, store.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete alert"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Alert deleted"})
	}
}

// ToggleAlert activates or deactivates one of the user's alerts. Deactivation
// removes the alert from evaluation without touching its trigger state.
// PATCH /api/v1/alerts/:id
func (ac *AlertController) ToggleAlert(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	var req models.ToggleAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = ac.store.SetActive(c.Request.Context(), c.Param("id"), userID, *req.IsActive)
	switch {
	case errors.Is(err, store.ErrInvalidAlertID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert id"})
	case errors.Is(err, store.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update alert"})
	default:
		message := "Alert deactivated"
		if *req.IsActive {
			message = "Alert activated"
		}
		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}

// CheckAlerts manually triggers one evaluation pass. The engine rejects the
// request if a pass is already in flight.
// POST /api/v1/alerts/check
func (ac *AlertController) CheckAlerts(c *gin.Context) {
	summary, err := ac.engine.TryRun(c.Request.Context())
	if err != nil {
		if errors.Is(err, alerts.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "Alert check already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Alert check failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}
