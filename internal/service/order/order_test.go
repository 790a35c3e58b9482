package order_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/daryakhm/flower_shop/internal/apperr"
	"github.com/daryakhm/flower_shop/internal/config"
	"github.com/daryakhm/flower_shop/internal/models"
	"github.com/daryakhm/flower_shop/internal/service/order"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))
	return db
}

func seedFlower(t *testing.T, db *gorm.DB, name, price string, stock int, available bool) models.Flower {
	t.Helper()
	flower := models.Flower{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsAvailable:   available,
	}
	require.NoError(t, db.Create(&flower).Error)
	return flower
}

func validRequest(items ...order.PlaceItem) order.PlaceRequest {
	return order.PlaceRequest{
		CustomerName:    "Anna",
		CustomerPhone:   "+49151000000",
		CustomerAddress: "Rosenstr. 5, Berlin",
		Items:           items,
	}
}

func TestPlaceOrder(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}

	rose := seedFlower(t, db, "Rose", "10.00", 5, true)
	tulip := seedFlower(t, db, "Tulip", "3.50", 8, true)

	ord, err := svc.Place(context.Background(), validRequest(
		order.PlaceItem{FlowerID: rose.ID, Quantity: 3},
		order.PlaceItem{FlowerID: tulip.ID, Quantity: 2},
	))
	require.NoError(t, err)

	require.Equal(t, models.StatusNew, ord.Status)
	require.NotEmpty(t, ord.Number)
	require.Len(t, ord.Items, 2)
	require.True(t, ord.TotalAmount.Equal(decimal.RequireFromString("37.00")),
		"total = %s", ord.TotalAmount)

	require.True(t, ord.Items[0].UnitPrice.Equal(rose.Price))
	require.True(t, ord.Items[0].LineTotal.Equal(decimal.RequireFromString("30.00")))
	require.Equal(t, 3, ord.Items[0].Quantity)
	require.NotNil(t, ord.Items[0].Flower)
	require.Equal(t, "Rose", ord.Items[0].Flower.Name)

	var updatedRose, updatedTulip models.Flower
	require.NoError(t, db.First(&updatedRose, rose.ID).Error)
	require.NoError(t, db.First(&updatedTulip, tulip.ID).Error)
	require.Equal(t, 2, updatedRose.StockQuantity)
	require.Equal(t, 6, updatedTulip.StockQuantity)
	require.Equal(t, 3, updatedRose.Popularity)
	require.Equal(t, 2, updatedTulip.Popularity)
}

func TestPlaceOrderSingleItemScenario(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}

	p := seedFlower(t, db, "Peony", "10.00", 5, true)

	ord, err := svc.Place(context.Background(), validRequest(order.PlaceItem{FlowerID: p.ID, Quantity: 3}))
	require.NoError(t, err)
	require.True(t, ord.TotalAmount.Equal(decimal.RequireFromString("30.00")))
	require.Equal(t, 3, ord.Items[0].Quantity)

	var updated models.Flower
	require.NoError(t, db.First(&updated, p.ID).Error)
	require.Equal(t, 2, updated.StockQuantity)
}

func TestPlaceOrderValidation(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}
	rose := seedFlower(t, db, "Rose", "10.00", 5, true)

	cases := []struct {
		name string
		req  order.PlaceRequest
	}{
		{"missing name", order.PlaceRequest{
			CustomerPhone: "1", CustomerAddress: "a",
			Items: []order.PlaceItem{{FlowerID: rose.ID, Quantity: 1}},
		}},
		{"missing phone", order.PlaceRequest{
			CustomerName: "n", CustomerAddress: "a",
			Items: []order.PlaceItem{{FlowerID: rose.ID, Quantity: 1}},
		}},
		{"missing address", order.PlaceRequest{
			CustomerName: "n", CustomerPhone: "1",
			Items: []order.PlaceItem{{FlowerID: rose.ID, Quantity: 1}},
		}},
		{"no items", validRequest()},
		{"zero quantity", validRequest(order.PlaceItem{FlowerID: rose.ID, Quantity: 0})},
		{"negative quantity", validRequest(order.PlaceItem{FlowerID: rose.ID, Quantity: -2})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Place(context.Background(), tc.req)
			require.Error(t, err)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			require.Equal(t, apperr.CodeValidation, appErr.Code)
		})
	}

	var orders int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.Zero(t, orders)
}

func TestPlaceOrderUnknownFlower(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}
	rose := seedFlower(t, db, "Rose", "10.00", 5, true)

	_, err := svc.Place(context.Background(), validRequest(
		order.PlaceItem{FlowerID: rose.ID, Quantity: 1},
		order.PlaceItem{FlowerID: 999, Quantity: 1},
	))
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.CodeNotFound, appErr.Code)
	require.Contains(t, appErr.Message, "999")

	// No partial fulfillment: nothing persisted, stock untouched.
	var orders, items int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&items).Error)
	require.Zero(t, orders)
	require.Zero(t, items)

	var updated models.Flower
	require.NoError(t, db.First(&updated, rose.ID).Error)
	require.Equal(t, 5, updated.StockQuantity)
}

func TestPlaceOrderUnavailableFlower(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}
	hidden := seedFlower(t, db, "Orchid", "25.00", 4, false)

	_, err := svc.Place(context.Background(), validRequest(order.PlaceItem{FlowerID: hidden.ID, Quantity: 1}))
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.CodeConflict, appErr.Code)
	require.Contains(t, appErr.Message, "Orchid")
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}
	q := seedFlower(t, db, "Lily", "7.00", 1, true)

	_, err := svc.Place(context.Background(), validRequest(order.PlaceItem{FlowerID: q.ID, Quantity: 5}))
	require.Error(t, err)

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.CodeConflict, appErr.Code)

	details, ok := appErr.Details.(map[string]any)
	require.True(t, ok)
	shortages, ok := details["shortages"].([]order.StockShortage)
	require.True(t, ok)
	require.Len(t, shortages, 1)
	require.Equal(t, q.ID, shortages[0].FlowerID)
	require.Equal(t, 5, shortages[0].Requested)
	require.Equal(t, 1, shortages[0].Available)

	var updated models.Flower
	require.NoError(t, db.First(&updated, q.ID).Error)
	require.Equal(t, 1, updated.StockQuantity)
}

func TestCancelRestoresStockOnce(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}

	a := seedFlower(t, db, "Rose", "10.00", 10, true)
	b := seedFlower(t, db, "Tulip", "4.00", 10, true)

	ord, err := svc.Place(context.Background(), validRequest(
		order.PlaceItem{FlowerID: a.ID, Quantity: 2},
		order.PlaceItem{FlowerID: b.ID, Quantity: 1},
	))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), ord.ID, models.StatusCancelled)
	require.NoError(t, err)
	require.Equal(t, models.StatusCancelled, updated.Status)

	var fa, fb models.Flower
	require.NoError(t, db.First(&fa, a.ID).Error)
	require.NoError(t, db.First(&fb, b.ID).Error)
	require.Equal(t, 10, fa.StockQuantity)
	require.Equal(t, 10, fb.StockQuantity)

	// Second cancellation must not restock again.
	_, err = svc.UpdateStatus(context.Background(), ord.ID, models.StatusCancelled)
	require.NoError(t, err)

	require.NoError(t, db.First(&fa, a.ID).Error)
	require.NoError(t, db.First(&fb, b.ID).Error)
	require.Equal(t, 10, fa.StockQuantity)
	require.Equal(t, 10, fb.StockQuantity)
}

func TestUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}
	rose := seedFlower(t, db, "Rose", "10.00", 5, true)

	ord, err := svc.Place(context.Background(), validRequest(order.PlaceItem{FlowerID: rose.ID, Quantity: 1}))
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), ord.ID, models.StatusProcessing)
	require.NoError(t, err)
	require.Equal(t, models.StatusProcessing, updated.Status)

	_, err = svc.UpdateStatus(context.Background(), ord.ID, models.OrderStatus("rejected"))
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.CodeValidation, appErr.Code)

	_, err = svc.UpdateStatus(context.Background(), 12345, models.StatusShipped)
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.CodeNotFound, appErr.Code)

	// Forward transitions do not touch stock.
	var f models.Flower
	require.NoError(t, db.First(&f, rose.ID).Error)
	require.Equal(t, 4, f.StockQuantity)
}

func TestDeleteOrderRestocks(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}
	rose := seedFlower(t, db, "Rose", "10.00", 6, true)

	ord, err := svc.Place(context.Background(), validRequest(order.PlaceItem{FlowerID: rose.ID, Quantity: 4}))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), ord.ID))

	var f models.Flower
	require.NoError(t, db.First(&f, rose.ID).Error)
	require.Equal(t, 6, f.StockQuantity)

	var orders, items int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orders).Error)
	require.NoError(t, db.Model(&models.OrderItem{}).Count(&items).Error)
	require.Zero(t, orders)
	require.Zero(t, items)

	require.Error(t, svc.Delete(context.Background(), ord.ID))
}

func TestDeleteCancelledOrderDoesNotRestock(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}
	rose := seedFlower(t, db, "Rose", "10.00", 6, true)

	ord, err := svc.Place(context.Background(), validRequest(order.PlaceItem{FlowerID: rose.ID, Quantity: 4}))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), ord.ID, models.StatusCancelled)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), ord.ID))

	var f models.Flower
	require.NoError(t, db.First(&f, rose.ID).Error)
	require.Equal(t, 6, f.StockQuantity)
}

func TestPriceSnapshotSurvivesPriceChange(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}
	rose := seedFlower(t, db, "Rose", "10.00", 5, true)

	ord, err := svc.Place(context.Background(), validRequest(order.PlaceItem{FlowerID: rose.ID, Quantity: 2}))
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Flower{}).
		Where("id = ?", rose.ID).
		Update("price", decimal.RequireFromString("99.99")).Error)

	reloaded, err := svc.Get(context.Background(), ord.ID)
	require.NoError(t, err)
	require.True(t, reloaded.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")))
	require.True(t, reloaded.TotalAmount.Equal(decimal.RequireFromString("20.00")))
}

func TestListByUserAndListAll(t *testing.T) {
	db := newTestDB(t)
	svc := &order.Service{DB: db}
	rose := seedFlower(t, db, "Rose", "10.00", 50, true)

	user := models.User{Username: "anna"}
	require.NoError(t, db.Create(&user).Error)

	req := validRequest(order.PlaceItem{FlowerID: rose.ID, Quantity: 1})
	req.UserID = &user.ID
	mine, err := svc.Place(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Place(context.Background(), validRequest(order.PlaceItem{FlowerID: rose.ID, Quantity: 2}))
	require.NoError(t, err)

	byUser, err := svc.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	require.Equal(t, mine.ID, byUser[0].ID)

	all, err := svc.ListAll(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = svc.UpdateStatus(context.Background(), mine.ID, models.StatusProcessing)
	require.NoError(t, err)

	processing, err := svc.ListAll(context.Background(), models.StatusProcessing)
	require.NoError(t, err)
	require.Len(t, processing, 1)

	_, err = svc.ListAll(context.Background(), models.OrderStatus("bogus"))
	require.Error(t, err)
}
