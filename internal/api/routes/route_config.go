package routes

import (
	"Surplus-Share-Backend/entities"
	"Surplus-Share-Backend/internal/api/handlers"
	"Surplus-Share-Backend/internal/middleware"
	"Surplus-Share-Backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App            *fiber.App
	SurplusHandler handlers.SurplusHandler
	ImpactHandler  handlers.ImpactHandler
	Middleware     middleware.Middleware
	JWTService     jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.GuestRoute()
	c.SurplusPosts()
	c.Impact()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}

func (c *Config) SurplusPosts() {
	auth := c.Middleware.AuthMiddleware(c.JWTService)
	donor := c.Middleware.RequireRole(entities.RoleDonor)
	receiver := c.Middleware.RequireRole(entities.RoleReceiver)

	posts := c.App.Group("/api/v1/surplus-posts", auth)
	{
		posts.Get("", c.SurplusHandler.ListAvailablePosts)
		posts.Get("/:id", c.SurplusHandler.GetPost)
		posts.Get("/:id/pickup-validation", c.SurplusHandler.ValidatePickup)

		// donor actions
		posts.Post("", donor, c.SurplusHandler.CreatePost)
		posts.Post("/:id/complete", donor, c.SurplusHandler.CompletePickup)
		posts.Patch("/:id/expiry", donor, c.SurplusHandler.OverrideExpiry)

		// receiver actions
		posts.Post("/:id/claim", receiver, c.SurplusHandler.ClaimPost)
		posts.Post("/:id/cancel-claim", receiver, c.SurplusHandler.CancelClaim)
	}
}

func (c *Config) Impact() {
	impact := c.App.Group("/api/v1/impact")
	impact.Get("/factors", c.ImpactHandler.GetImpactFactors)
	impact.Get("/report", c.Middleware.AuthMiddleware(c.JWTService), c.ImpactHandler.GetImpactReport)
}
