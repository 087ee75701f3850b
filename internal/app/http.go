package app

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
)

// HTTP builds the fiber app with every route registered.
func (a *App) HTTP() *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    maxUploadBytes + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			slog.Error("request failed", "path", c.Path(), "error", err)
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     a.Config.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	authMiddleware := middleware.NewAuthMiddleware(*a.Config, a.ApiKeyService)

	auth := handlers.NewAuthHandler(*a.Config, a.AuthService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(a.UserService)
	api.Get("/user/info", user.GetUserInfo)
	api.Delete("/user", user.RemoveUser)

	apiKeys := handlers.NewApiKeyHandler(a.ApiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	accounts := handlers.NewAccountHandler(a.AccountService)
	api.Post("/accounts", accounts.ConnectAccount)
	api.Get("/accounts", accounts.ListSocialAccounts)
	api.Post("/accounts/remove", accounts.DeleteSocialAccount)

	post := handlers.NewPostHandler(a.PostService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)
	api.Post("/posts/:id/publish", post.PublishPost)
	api.Delete("/posts/:id/publications", post.UnpublishPost)
	api.Post("/posts/:id/analytics/sync", post.SyncAnalytics)
	api.Get("/posts/:id/analytics", post.GetAnalytics)

	mediaUpload := handlers.NewMediaHandler(a.MediaService)
	api.Post("/media", mediaUpload.UploadMedia)

	return app
}
