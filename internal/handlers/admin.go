package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/daryakhm/flower_shop/internal/handlers/respond"
	"github.com/daryakhm/flower_shop/internal/models"
)

type AdminHandler struct {
	DB *gorm.DB
}

// Dashboard aggregates the storefront counters and the five most
// recent orders for the admin landing page.
func (h *AdminHandler) Dashboard(c echo.Context) error {
	var totalOrders, totalUsers, totalFlowers, totalCategories, newOrders int64

	counts := []struct {
		dest  *int64
		query *gorm.DB
	}{
		{&totalOrders, h.DB.Model(&models.Order{})},
		{&totalUsers, h.DB.Model(&models.User{})},
		{&totalFlowers, h.DB.Model(&models.Flower{})},
		{&totalCategories, h.DB.Model(&models.Category{})},
		{&newOrders, h.DB.Model(&models.Order{}).Where("status = ?", models.StatusNew)},
	}
	for _, cnt := range counts {
		if err := cnt.query.Count(cnt.dest).Error; err != nil {
			return respond.Err(c, err)
		}
	}

	var recentOrders []models.Order
	err := h.DB.
		Preload("Items.Flower").
		Preload("User").
		Order("created_at DESC").
		Limit(5).
		Find(&recentOrders).Error
	if err != nil {
		return respond.Err(c, err)
	}

	return respond.Data(c, http.StatusOK, map[string]any{
		"stats": map[string]int64{
			"total_orders":     totalOrders,
			"total_users":      totalUsers,
			"total_flowers":    totalFlowers,
			"total_categories": totalCategories,
			"new_orders":       newOrders,
		},
		"recent_orders": recentOrders,
	})
}
