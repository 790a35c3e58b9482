package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/handlers/respond"
	authmw "github.com/daryakhm/flower_shop/internal/middleware/auth"
	"github.com/daryakhm/flower_shop/internal/models"
	"github.com/daryakhm/flower_shop/internal/mykafka"
	"github.com/daryakhm/flower_shop/internal/service/order"
)

type OrderHandler struct {
	Service  *order.Service
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, key string, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicOrderEvents, key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

type createOrderRequest struct {
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	CustomerAddress string            `json:"customer_address"`
	PaymentMethod   string            `json:"payment_method"`
	Notes           string            `json:"notes"`
	Items           []order.PlaceItem `json:"items"`
}

// Create places an order. Works for anonymous customers; when a valid
// token is attached the order is bound to that account.
func (h *OrderHandler) Create(c echo.Context) error {
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}

	var userID *uint
	if id, ok := authmw.UserID(c); ok {
		userID = &id
	}

	ord, err := h.Service.Place(c.Request().Context(), order.PlaceRequest{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
		UserID:          userID,
		Items:           req.Items,
	})
	if err != nil {
		return respond.Err(c, err)
	}

	h.publish(c, ord.Number, map[string]any{
		"type":         "order_created",
		"order_id":     ord.ID,
		"order_number": ord.Number,
		"total_amount": ord.TotalAmount,
	})

	return respond.Data(c, http.StatusCreated, ord)
}

// ListAll returns every order, optionally filtered by status. Admin only.
func (h *OrderHandler) ListAll(c echo.Context) error {
	status := models.OrderStatus(c.QueryParam("status"))
	orders, err := h.Service.ListAll(c.Request().Context(), status)
	if err != nil {
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusOK, orders)
}

func (h *OrderHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}
	ord, err := h.Service.Get(c.Request().Context(), id)
	if err != nil {
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusOK, ord)
}

// ListMine returns the authenticated user's orders, newest first.
func (h *OrderHandler) ListMine(c echo.Context) error {
	userID, ok := authmw.UserID(c)
	if !ok {
		return respond.Err(c, apperr.Auth("authorization token required"))
	}
	orders, err := h.Service.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}

	ord, err := h.Service.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return respond.Err(c, err)
	}

	h.publish(c, ord.Number, map[string]any{
		"type":     "order_status_changed",
		"order_id": ord.ID,
		"status":   ord.Status,
	})

	return respond.Data(c, http.StatusOK, map[string]any{
		"id":         ord.ID,
		"status":     ord.Status,
		"updated_at": ord.UpdatedAt,
	})
}

func (h *OrderHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respond.Err(c, err)
	}

	if err := h.Service.Delete(c.Request().Context(), id); err != nil {
		return respond.Err(c, err)
	}

	h.publish(c, "", map[string]any{
		"type":     "order_deleted",
		"order_id": id,
	})

	return respond.Message(c, http.StatusOK, "order deleted")
}
