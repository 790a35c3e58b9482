package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/handlers/respond"
	"github.com/daryakhm/flower_shop/internal/models"
	"github.com/daryakhm/flower_shop/internal/mykafka"
	"github.com/daryakhm/flower_shop/internal/service/search"
	"github.com/daryakhm/flower_shop/internal/util"
)

type FlowerHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id")
	}
	return uint(id), nil
}

func (h *FlowerHandler) publish(c echo.Context, key string, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicProductEvents, key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

func (h *FlowerHandler) index(c echo.Context, flower *models.Flower) {
	if h.ES == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.IndexFlower(ctx, h.ES, h.ESIndex, flower); err != nil {
		c.Logger().Errorf("es index error: %v", err)
	}
}

var sortKeys = map[string]string{
	"price_asc":  "price ASC",
	"price_desc": "price DESC",
	"name_asc":   "name ASC",
	"newest":     "created_at DESC",
}

// List serves the filtered, sorted, paginated catalog. Default order
// is popularity descending.
func (h *FlowerHandler) List(c echo.Context) error {
	q := h.DB.Model(&models.Flower{})

	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return respond.Err(c, apperr.Validation("invalid category_id"))
		}
		q = q.Where("category_id = ?", id)
	}
	if v := c.QueryParam("min_price"); v != "" {
		min, err := decimal.NewFromString(v)
		if err != nil {
			return respond.Err(c, apperr.Validation("invalid min_price"))
		}
		q = q.Where("price >= ?", min)
	}
	if v := c.QueryParam("max_price"); v != "" {
		max, err := decimal.NewFromString(v)
		if err != nil {
			return respond.Err(c, apperr.Validation("invalid max_price"))
		}
		q = q.Where("price <= ?", max)
	}
	if v := c.QueryParam("search"); v != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+v+"%")
	}
	if v := c.QueryParam("is_available"); v != "" {
		avail, err := strconv.ParseBool(v)
		if err != nil {
			return respond.Err(c, apperr.Validation("invalid is_available"))
		}
		q = q.Where("is_available = ?", avail)
	}

	orderBy := "popularity DESC"
	if v := c.QueryParam("sort"); v != "" {
		key, ok := sortKeys[v]
		if !ok {
			return respond.Err(c, apperr.Validation(fmt.Sprintf("invalid sort %q", v)))
		}
		orderBy = key
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return respond.Err(c, err)
	}

	page := parseIntDefault(c.QueryParam("page"), 1)
	limit := parseIntDefault(c.QueryParam("limit"), util.DefaultPageSize)
	offset, limit, page := util.Calculate(page, limit)

	var flowers []models.Flower
	err := q.Preload("Category").
		Order(orderBy).
		Offset(offset).
		Limit(limit).
		Find(&flowers).Error
	if err != nil {
		return respond.Err(c, err)
	}

	return respond.Data(c, http.StatusOK, map[string]any{
		"flowers":    flowers,
		"pagination": util.Paginate(total, page, limit),
	})
}

func (h *FlowerHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	var flower models.Flower
	if err := h.DB.Preload("Category").First(&flower, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound(fmt.Sprintf("flower %d not found", id)))
		}
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusOK, flower)
}

type flowerRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      string          `json:"image_url"`
	CategoryID    *uint           `json:"category_id"`
	IsAvailable   *bool           `json:"is_available"`
}

func (h *FlowerHandler) Create(c echo.Context) error {
	var req flowerRequest
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}
	if req.Name == "" {
		return respond.Err(c, apperr.Validation("name is required"))
	}
	if req.Price.IsNegative() {
		return respond.Err(c, apperr.Validation("price must not be negative"))
	}
	if req.StockQuantity < 0 {
		return respond.Err(c, apperr.Validation("stock_quantity must not be negative"))
	}
	if req.CategoryID != nil {
		var cat models.Category
		if err := h.DB.First(&cat, *req.CategoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return respond.Err(c, apperr.NotFound(fmt.Sprintf("category %d not found", *req.CategoryID)))
			}
			return respond.Err(c, err)
		}
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	flower := models.Flower{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		CategoryID:    req.CategoryID,
		IsAvailable:   available,
	}
	if err := h.DB.Create(&flower).Error; err != nil {
		return respond.Err(c, err)
	}

	h.index(c, &flower)
	h.publish(c, fmt.Sprint(flower.ID), map[string]any{
		"type":      "product_created",
		"flower_id": flower.ID,
		"name":      flower.Name,
	})

	return respond.Data(c, http.StatusCreated, flower)
}

func (h *FlowerHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	var req flowerRequest
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}
	if req.Name == "" {
		return respond.Err(c, apperr.Validation("name is required"))
	}
	if req.Price.IsNegative() {
		return respond.Err(c, apperr.Validation("price must not be negative"))
	}
	if req.StockQuantity < 0 {
		return respond.Err(c, apperr.Validation("stock_quantity must not be negative"))
	}

	var flower models.Flower
	if err := h.DB.First(&flower, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound(fmt.Sprintf("flower %d not found", id)))
		}
		return respond.Err(c, err)
	}

	flower.Name = req.Name
	flower.Description = req.Description
	flower.Price = req.Price
	flower.StockQuantity = req.StockQuantity
	flower.ImageURL = req.ImageURL
	flower.CategoryID = req.CategoryID
	if req.IsAvailable != nil {
		flower.IsAvailable = *req.IsAvailable
	}

	if err := h.DB.Save(&flower).Error; err != nil {
		return respond.Err(c, err)
	}

	h.index(c, &flower)
	h.publish(c, fmt.Sprint(flower.ID), map[string]any{
		"type":      "product_updated",
		"flower_id": flower.ID,
		"name":      flower.Name,
	})

	return respond.Data(c, http.StatusOK, flower)
}

// Delete removes a flower unless an order item still references it.
func (h *FlowerHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	var flower models.Flower
	if err := h.DB.First(&flower, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound(fmt.Sprintf("flower %d not found", id)))
		}
		return respond.Err(c, err)
	}

	var refs int64
	if err := h.DB.Model(&models.OrderItem{}).Where("flower_id = ?", id).Count(&refs).Error; err != nil {
		return respond.Err(c, err)
	}
	if refs > 0 {
		return respond.Err(c, apperr.Conflict("flower is referenced by existing orders and cannot be deleted"))
	}

	if err := h.DB.Delete(&flower).Error; err != nil {
		return respond.Err(c, err)
	}

	if h.ES != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := search.DeleteFlower(ctx, h.ES, h.ESIndex, id); err != nil {
			c.Logger().Errorf("es delete error: %v", err)
		}
	}
	h.publish(c, fmt.Sprint(id), map[string]any{
		"type":      "product_deleted",
		"flower_id": id,
	})

	return respond.Message(c, http.StatusOK, "flower deleted")
}
