package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/handlers/respond"
	"github.com/daryakhm/flower_shop/internal/hash"
	authmw "github.com/daryakhm/flower_shop/internal/middleware/auth"
	"github.com/daryakhm/flower_shop/internal/models"
	"github.com/daryakhm/flower_shop/internal/mykafka"
	"github.com/daryakhm/flower_shop/internal/service/telegram"
	"github.com/daryakhm/flower_shop/internal/service/token"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	BotToken string
	Producer *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, mykafka.TopicUserEvents, key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return respond.Err(c, apperr.Validation("username, email and password are required"))
	}

	var existing models.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return respond.Err(c, apperr.Conflict("user with this email already exists"))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respond.Err(c, err)
	}

	// Hashing happens here, explicitly, not in a model hook.
	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return respond.Err(c, err)
	}

	user := models.User{
		Email:        &req.Email,
		PasswordHash: passwordHash,
		Username:     req.Username,
		Phone:        req.Phone,
		Address:      req.Address,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return respond.Err(c, err)
	}

	signed, err := h.Tokens.Sign(&user)
	if err != nil {
		return respond.Err(c, err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
	})

	return respond.Data(c, http.StatusCreated, map[string]any{
		"user":  user,
		"token": signed,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}
	if req.Email == "" || req.Password == "" {
		return respond.Err(c, apperr.Validation("email and password are required"))
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.Auth("invalid email or password"))
		}
		return respond.Err(c, err)
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return respond.Err(c, apperr.Auth("invalid email or password"))
	}
	if !user.IsActive {
		return respond.Err(c, apperr.Auth("account is disabled"))
	}

	signed, err := h.Tokens.Sign(&user)
	if err != nil {
		return respond.Err(c, err)
	}

	return respond.Data(c, http.StatusOK, map[string]any{
		"user":  user,
		"token": signed,
	})
}

func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := authmw.UserID(c)
	if !ok {
		return respond.Err(c, apperr.Auth("authorization token required"))
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound("user not found"))
		}
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusOK, user)
}

type updateProfileRequest struct {
	Username        string `json:"username"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UpdateProfile changes display fields and, when both password fields
// are supplied, rotates the password after checking the current one.
func (h *AuthHandler) UpdateProfile(c echo.Context) error {
	userID, ok := authmw.UserID(c)
	if !ok {
		return respond.Err(c, apperr.Auth("authorization token required"))
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return respond.Err(c, apperr.Validation("invalid request body"))
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respond.Err(c, apperr.NotFound("user not found"))
		}
		return respond.Err(c, err)
	}

	if req.Username != "" {
		user.Username = req.Username
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.Address != "" {
		user.Address = req.Address
	}

	if req.NewPassword != "" {
		if !hash.CheckPassword(user.PasswordHash, req.CurrentPassword) {
			return respond.Err(c, apperr.Auth("current password is incorrect"))
		}
		passwordHash, err := hash.HashPassword(req.NewPassword)
		if err != nil {
			return respond.Err(c, err)
		}
		user.PasswordHash = passwordHash
	}

	if err := h.DB.Save(&user).Error; err != nil {
		return respond.Err(c, err)
	}
	return respond.Data(c, http.StatusOK, user)
}

// telegramFields decodes the widget payload keeping numeric values in
// their literal form, since the signature covers the exact text.
func telegramFields(c echo.Context) (map[string]string, error) {
	dec := json.NewDecoder(c.Request().Body)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.Validation("invalid request body")
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			fields[k] = t
		case json.Number:
			fields[k] = t.String()
		default:
			fields[k] = fmt.Sprint(t)
		}
	}
	return fields, nil
}

// Telegram verifies a Login Widget payload and then either links the
// telegram identity to the authenticated account, logs in the user it
// already belongs to, or creates a fresh account from it.
func (h *AuthHandler) Telegram(c echo.Context) error {
	fields, err := telegramFields(c)
	if err != nil {
		return respond.Err(c, err)
	}

	data, err := telegram.Verify(fields, h.BotToken, time.Now())
	if err != nil {
		return respond.Err(c, apperr.Auth("telegram verification failed"))
	}

	tgID := fmt.Sprint(data.ID)

	var linked models.User
	linkedErr := h.DB.Where("telegram_id = ?", tgID).First(&linked).Error
	if linkedErr != nil && !errors.Is(linkedErr, gorm.ErrRecordNotFound) {
		return respond.Err(c, linkedErr)
	}
	telegramKnown := linkedErr == nil

	if userID, ok := authmw.UserID(c); ok {
		if telegramKnown && linked.ID != userID {
			return respond.Err(c, apperr.Conflict("this telegram account is linked to another user"))
		}

		var user models.User
		if err := h.DB.First(&user, userID).Error; err != nil {
			return respond.Err(c, err)
		}
		user.TelegramID = &tgID
		if err := h.DB.Save(&user).Error; err != nil {
			return respond.Err(c, err)
		}
		return respond.Data(c, http.StatusOK, map[string]any{
			"user":            user,
			"telegram_linked": true,
		})
	}

	if telegramKnown {
		signed, err := h.Tokens.Sign(&linked)
		if err != nil {
			return respond.Err(c, err)
		}
		return respond.Data(c, http.StatusOK, map[string]any{
			"user":            linked,
			"token":           signed,
			"telegram_linked": true,
		})
	}

	username := data.Username
	if username == "" {
		username = "user_" + tgID
	}
	user := models.User{
		TelegramID: &tgID,
		Username:   username,
		FirstName:  data.FirstName,
		LastName:   data.LastName,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return respond.Err(c, err)
	}

	signed, err := h.Tokens.Sign(&user)
	if err != nil {
		return respond.Err(c, err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"source":  "telegram",
	})

	return respond.Data(c, http.StatusCreated, map[string]any{
		"user":            user,
		"token":           signed,
		"telegram_linked": true,
	})
}
