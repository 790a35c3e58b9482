package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/daryakhm/flower_shop/internal/handlers"
	authmw "github.com/daryakhm/flower_shop/internal/middleware/auth"
)

type Deps struct {
	Auth       *authmw.Middleware
	AuthH      *handlers.AuthHandler
	Flowers    *handlers.FlowerHandler
	Categories *handlers.CategoryHandler
	Orders     *handlers.OrderHandler
	Reviews    *handlers.ReviewHandler
	Admin      *handlers.AdminHandler
	Search     *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/auth/register", d.AuthH.Register)
	v1.POST("/auth/login", d.AuthH.Login)
	v1.POST("/auth/telegram", d.AuthH.Telegram, d.Auth.OptionalLogin)
	v1.GET("/auth/me", d.AuthH.Me, d.Auth.RequireLogin)
	v1.PATCH("/auth/me", d.AuthH.UpdateProfile, d.Auth.RequireLogin)

	v1.GET("/flowers", d.Flowers.List)
	v1.GET("/flowers/:id", d.Flowers.Get)
	v1.GET("/flowers/:id/reviews", d.Reviews.ListByFlower)
	v1.POST("/flowers/:id/reviews", d.Reviews.Create, d.Auth.RequireLogin)
	v1.DELETE("/reviews/:id", d.Reviews.Delete, d.Auth.RequireLogin)

	v1.GET("/categories", d.Categories.List)
	v1.GET("/categories/:id", d.Categories.Get)

	v1.GET("/search", d.Search.Search)

	v1.POST("/orders", d.Orders.Create, d.Auth.OptionalLogin)
	v1.GET("/orders/user", d.Orders.ListMine, d.Auth.RequireLogin)

	admin := v1.Group("/admin", d.Auth.RequireLogin, d.Auth.AdminOnly)

	admin.GET("/dashboard", d.Admin.Dashboard)

	admin.POST("/flowers", d.Flowers.Create)
	admin.PUT("/flowers/:id", d.Flowers.Update)
	admin.DELETE("/flowers/:id", d.Flowers.Delete)

	admin.POST("/categories", d.Categories.Create)
	admin.PUT("/categories/:id", d.Categories.Update)
	admin.DELETE("/categories/:id", d.Categories.Delete)

	admin.GET("/orders", d.Orders.ListAll)
	admin.GET("/orders/:id", d.Orders.Get)
	admin.PUT("/orders/:id/status", d.Orders.UpdateStatus)
	admin.DELETE("/orders/:id", d.Orders.Delete)
}
