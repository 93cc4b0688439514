package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"webmail/config"
	"webmail/handlers/api"
	"webmail/middleware"
	"webmail/service"
	"webmail/storage"
	"webmail/utils"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		utils.Log.Error("failed to load config: %v", err)
		return
	}

	db, err := storage.InitDB(cfg.Database.Dir)
	if err != nil {
		utils.Log.Error("failed to open database: %v", err)
		return
	}
	defer db.Close()

	users := storage.NewUserStore(db, cfg.Quota.DefaultBytes)
	emails := storage.NewEmailStore(db)

	relay := service.NewRelay(cfg.SMTP)
	if relay == nil {
		utils.Log.Info("SMTP relay disabled; outbound mail is stored only")
	}

	authService := service.NewAuthService(users, cfg.JWT.Secret, cfg.JWT.Expiry())
	mailbox := service.NewMailboxService(emails, users, relay)

	app := fiber.New(fiber.Config{
		AppName:   "webmail",
		BodyLimit: int(cfg.Upload.MaxSize) * (cfg.Upload.MaxFiles + 1),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError

			var appErr *utils.AppError
			var fiberErr *fiber.Error
			if errors.As(err, &appErr) {
				code = appErr.Code
				if code >= 500 {
					utils.Log.Error("request failed: %v", appErr)
				}
			} else if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			} else {
				utils.Log.Error("unhandled error: %v", err)
			}

			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(compress.New())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "no-referrer",
	}))
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.Window)*time.Second)
	defer limiter.Close()
	app.Use(limiter.Handler())

	authHandler := api.NewAuthHandler(authService)
	emailHandler := api.NewEmailHandler(mailbox, cfg.Upload)

	auth := app.Group("/api/auth")
	auth.Post("/register", authHandler.HandleRegister)
	auth.Post("/login", authHandler.HandleLogin)

	authProtected := auth.Group("", middleware.RequireAuth(cfg.JWT.Secret))
	authProtected.Get("/profile", authHandler.HandleProfile)
	authProtected.Put("/profile", authHandler.HandleUpdateProfile)
	authProtected.Put("/change-password", authHandler.HandleChangePassword)
	authProtected.Get("/stats", authHandler.HandleUserStats)

	admin := authProtected.Group("/users", middleware.RequireAdmin())
	admin.Get("/", authHandler.HandleListUsers)
	admin.Put("/quota", authHandler.HandleSetQuota)
	admin.Put("/:userId/activate", authHandler.HandleActivateUser)
	admin.Put("/:userId/deactivate", authHandler.HandleDeactivateUser)

	mail := app.Group("/api/emails", middleware.RequireAuth(cfg.JWT.Secret))
	mail.Get("/", emailHandler.HandleList)
	mail.Get("/stats", emailHandler.HandleStats)
	mail.Get("/search", emailHandler.HandleSearch)
	mail.Get("/folder/:folder", emailHandler.HandleFolder)
	mail.Post("/send", emailHandler.HandleSend)
	mail.Patch("/bulk/update", emailHandler.HandleBulkUpdate)
	mail.Delete("/bulk/delete", emailHandler.HandleBulkDelete)
	mail.Get("/:id", emailHandler.HandleGet)
	mail.Patch("/:id", emailHandler.HandleUpdate)
	mail.Delete("/:id/permanent", emailHandler.HandlePermanentDelete)
	mail.Delete("/:id", emailHandler.HandleDelete)
	mail.Post("/:id/spam", emailHandler.HandleMarkSpam)
	mail.Put("/:id/labels", emailHandler.HandleLabels)
	mail.Get("/:id/attachments", emailHandler.HandleAttachments)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	utils.Log.Info("starting server on %s", addr)
	if err := app.Listen(addr); err != nil {
		utils.Log.Error("server stopped: %v", err)
	}
}
