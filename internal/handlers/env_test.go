package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/daryakhm/flower_shop/internal/config"
	"github.com/daryakhm/flower_shop/internal/handlers"
	"github.com/daryakhm/flower_shop/internal/hash"
	authmw "github.com/daryakhm/flower_shop/internal/middleware/auth"
	"github.com/daryakhm/flower_shop/internal/models"
	"github.com/daryakhm/flower_shop/internal/service/order"
	"github.com/daryakhm/flower_shop/internal/service/token"
)

const testBotToken = "123456:test-bot-token"

type testEnv struct {
	T          *testing.T
	E          *echo.Echo
	DB         *gorm.DB
	Tokens     *token.Service
	MW         *authmw.Middleware
	Auth       *handlers.AuthHandler
	Flowers    *handlers.FlowerHandler
	Categories *handlers.CategoryHandler
	Orders     *handlers.OrderHandler
	Reviews    *handlers.ReviewHandler
	Admin      *handlers.AdminHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, config.Migrate(db))

	tokens := &token.Service{Secret: []byte("test-secret")}

	return &testEnv{
		T:          t,
		E:          echo.New(),
		DB:         db,
		Tokens:     tokens,
		MW:         &authmw.Middleware{DB: db, Tokens: tokens},
		Auth:       &handlers.AuthHandler{DB: db, Tokens: tokens, BotToken: testBotToken},
		Flowers:    &handlers.FlowerHandler{DB: db},
		Categories: &handlers.CategoryHandler{DB: db},
		Orders:     &handlers.OrderHandler{Service: &order.Service{DB: db}},
		Reviews:    &handlers.ReviewHandler{DB: db},
		Admin:      &handlers.AdminHandler{DB: db},
	}
}

// doJSON builds an echo context for a JSON request the way the
// handlers would receive it from the router.
func (env *testEnv) doJSON(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *string         `json:"error"`
}

func (env *testEnv) decode(rec *httptest.ResponseRecorder) envelope {
	env.T.Helper()
	var e envelope
	require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func (env *testEnv) decodeData(rec *httptest.ResponseRecorder, out interface{}) {
	env.T.Helper()
	e := env.decode(rec)
	require.Nil(env.T, e.Error, "unexpected error: %v", e.Error)
	require.NoError(env.T, json.Unmarshal(e.Data, out))
}

func (env *testEnv) seedFlower(name, price string, stock int, available bool) models.Flower {
	env.T.Helper()
	flower := models.Flower{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsAvailable:   available,
	}
	require.NoError(env.T, env.DB.Create(&flower).Error)
	return flower
}

func (env *testEnv) seedUser(email string, admin bool) (models.User, string) {
	env.T.Helper()
	passwordHash, err := hash.HashPassword("password123")
	require.NoError(env.T, err)

	user := models.User{
		Email:        &email,
		PasswordHash: passwordHash,
		Username:     email,
		IsAdmin:      admin,
	}
	require.NoError(env.T, env.DB.Create(&user).Error)

	signed, err := env.Tokens.Sign(&user)
	require.NoError(env.T, err)
	return user, signed
}

// asUser attaches the identity the auth middleware would have set.
func asUser(c echo.Context, user models.User) {
	c.Set(authmw.CtxUserID, user.ID)
	c.Set(authmw.CtxIsAdmin, user.IsAdmin)
}

func setID(c echo.Context, id uint) {
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatUint(uint64(id), 10))
}
