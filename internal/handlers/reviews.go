package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/handlers/respond"
	authmw "github.com/daryakhm/flower_shop/internal/middleware/auth"
	"github.com/daryakhm/flower_shop/internal/models"
)

type ReviewHandler struct {
	DB *gorm.DB
}

// ListByFlower returns the flower's reviews, newest first.
func (h *ReviewHandler) ListByFlower(c echo.Context) error {
	flowerID, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	var reviews []models.Review
	dbErr := h.DB.
		Preload("User").
		Where("flower_id = ?", flowerID).
		Order("created_at DESC").
		Find(&reviews).Error
	if dbErr != nil {
		return respond.Err(c, dbErr)
	}
	return respond.Data(c, http.StatusOK, reviews)
}

func (h *ReviewHandler) Create(c echo.Context) error {
	flowerID, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	userID, ok := authmw.UserID(c)
	if !ok {
		return respond.Err(c, apperr.Auth("authorization token required"))
	}

	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}
	if req.Rating < 1 || req.Rating > 5 {
		return respond.Err(c, apperr.Validation("rating must be between 1 and 5"))
	}

	var flower models.Flower
	if err := h.DB.First(&flower, flowerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound(fmt.Sprintf("flower %d not found", flowerID)))
		}
		return respond.Err(c, err)
	}

	review := models.Review{
		UserID:   &userID,
		FlowerID: flowerID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusCreated, review)
}

// Delete removes a review; only its author or an admin may do so.
func (h *ReviewHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	userID, ok := authmw.UserID(c)
	if !ok {
		return respond.Err(c, apperr.Auth("authorization token required"))
	}

	var review models.Review
	if err := h.DB.First(&review, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound(fmt.Sprintf("review %d not found", id)))
		}
		return respond.Err(c, err)
	}

	owner := review.UserID != nil && *review.UserID == userID
	if !owner && !authmw.IsAdmin(c) {
		return respond.Err(c, apperr.Forbidden("only the author or an admin can delete a review"))
	}

	if err := h.DB.Delete(&review).Error; err != nil {
		return respond.Err(c, err)
	}
	return respond.Message(c, http.StatusOK, "review deleted")
}
