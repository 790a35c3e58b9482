package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/handlers/respond"
	"github.com/daryakhm/flower_shop/internal/models"
)

type CategoryHandler struct {
	DB *gorm.DB
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func (h *CategoryHandler) List(c echo.Context) error {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusOK, categories)
}

// Get returns the category together with its flowers.
func (h *CategoryHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound(fmt.Sprintf("category %d not found", id)))
		}
		return respond.Err(c, err)
	}

	var flowers []models.Flower
	if err := h.DB.Where("category_id = ?", id).Order("name ASC").Find(&flowers).Error; err != nil {
		return respond.Err(c, err)
	}

	return respond.Data(c, http.StatusOK, map[string]any{
		"category": category,
		"flowers":  flowers,
	})
}

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}
	if req.Name == "" {
		return respond.Err(c, apperr.Validation("category name is required"))
	}

	var existing models.Category
	err := h.DB.Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		return respond.Err(c, apperr.Conflict(fmt.Sprintf("category %q already exists", req.Name)))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respond.Err(c, err)
	}

	category := models.Category{
		Name:        req.Name,
		Slug:        slugify(req.Name),
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if err := h.DB.Create(&category).Error; err != nil {
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusCreated, category)
}

func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	var req categoryRequest
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}
	if req.Name == "" {
		return respond.Err(c, apperr.Validation("category name is required"))
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound(fmt.Sprintf("category %d not found", id)))
		}
		return respond.Err(c, err)
	}

	var other models.Category
	dupErr := h.DB.Where("name = ? AND id != ?", req.Name, id).First(&other).Error
	if dupErr == nil {
		return respond.Err(c, apperr.Conflict(fmt.Sprintf("category %q already exists", req.Name)))
	}
	if !errors.Is(dupErr, gorm.ErrRecordNotFound) {
		return respond.Err(c, dupErr)
	}

	category.Name = req.Name
	category.Slug = slugify(req.Name)
	category.Description = req.Description
	category.ImageURL = req.ImageURL

	if err := h.DB.Save(&category).Error; err != nil {
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusOK, category)
}

// Delete refuses to remove a category that still has flowers. The
// check is explicit rather than left to the FK, matching the API's
// conflict semantics.
func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	var category models.Category
	if err := h.DB.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound(fmt.Sprintf("category %d not found", id)))
		}
		return respond.Err(c, err)
	}

	var flowerCount int64
	if err := h.DB.Model(&models.Flower{}).Where("category_id = ?", id).Count(&flowerCount).Error; err != nil {
		return respond.Err(c, err)
	}
	if flowerCount > 0 {
		return respond.Err(c, apperr.Conflict("category still contains flowers and cannot be deleted"))
	}

	if err := h.DB.Delete(&category).Error; err != nil {
		return respond.Err(c, err)
	}
	return respond.Message(c, http.StatusOK, "category deleted")
}
