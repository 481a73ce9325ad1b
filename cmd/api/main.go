package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"github.com/jeya-sree-2007/feedbackhub-api/internal/config"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/db"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/handlers"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/middleware"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/models"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/realtime"
	"github.com/jeya-sree-2007/feedbackhub-api/internal/services/review"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}

	if err := gdb.AutoMigrate(&models.User{}, &models.Review{}, &models.Device{}); err != nil {
		log.Fatal(err)
	}

	rdb := realtime.NewRedis()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Redis not reachable:", err)
	}

	reviewSvc := review.NewService(gdb, nil, rdb)
	hub := realtime.NewHub(reviewSvc)
	reviewSvc.Hub = hub
	go hub.Run()
	go realtime.Bridge(context.Background(), rdb, hub)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://127.0.0.1:3000, http://localhost:3000",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Device-ID",
		ExposeHeaders:    "Content-Length",
		AllowCredentials: true,
	}))

	app.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	authH := &handlers.AuthHandler{
		DB:        gdb,
		RDB:       rdb,
		JWTSecret: cfg.JWTSecret,
		Expires:   cfg.JWTExpiresMin,
	}
	googleH := &handlers.GoogleOAuthHandler{
		DB:              gdb,
		JWTSecret:       cfg.JWTSecret,
		Expires:         cfg.JWTExpiresMin,
		GoogleClientID:  cfg.GoogleClientID,
		GoogleSecret:    cfg.GoogleSecret,
		GoogleRedirect:  cfg.GoogleRedirect,
		FrontendBaseURL: cfg.FrontendBaseURL,
	}
	deviceH := handlers.NewDeviceHandler(gdb)
	reviewH := handlers.NewReviewHandler(reviewSvc, hub)

	api := app.Group("/api")

	// public
	api.Post("/auth/register", authH.Register)
	api.Post("/auth/login", authH.Login)
	api.Post("/auth/logout", authH.Logout)
	api.Get("/auth/google/start", googleH.GoogleStart)
	api.Get("/auth/google/callback", googleH.GoogleCallback)
	api.Post("/devices/register", deviceH.Register)
	api.Get("/reviews/stats", reviewH.Stats)

	// protected (JWT cookie) + device-scoped
	protected := api.Group("/",
		middleware.JWTFromCookie(cfg.JWTSecret),
		middleware.AttachJWTLocals(),
	)

	reviews := protected.Group("/reviews", middleware.RequireDevice())
	reviews.Get("/", reviewH.ListMine)
	reviews.Post("/", reviewH.Create)
	reviews.Put("/:id", reviewH.Update)
	reviews.Delete("/:id", reviewH.Delete)

	// WebSocket endpoint (no JWT middleware, identity via query param)
	app.Get("/ws/reviews", websocket.New(reviewH.WebSocketHandler))

	log.Fatal(app.Listen(":" + cfg.AppPort))
}
