package api

import (
	"github.com/bilgisen/noticias/internal/middleware"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, h *Handlers) {
	// Every request gets a notice collector and carries its cookies to the backend
	app.Use(middleware.Notices())
	app.Use(middleware.Session(middleware.SessionConfig{SecureCookies: h.config.CookieSecure}))

	app.Get("/health", h.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Public pages
	app.Get("/", h.Home)
	app.Post("/login", middleware.ValidateRequest[models.Credentials](), h.Login)
	app.Post("/register", middleware.ValidateRequest[models.Registration](), h.Register)
	app.Post("/verify-email", middleware.ValidateRequest[models.TokenRequest](), h.VerifyEmail)
	app.Post("/forgot-password", middleware.ValidateRequest[models.EmailRequest](), h.ForgotPassword)
	app.Post("/reset-password/:token", middleware.ValidateRequest[models.PasswordReset](), h.ResetPassword)
	app.Get("/auth/:provider", h.OAuth)

	// Second factor dialog
	otp := app.Group("/otp")
	{
		otp.Post("/method", middleware.ValidateRequest[models.MethodChoice](), h.ChooseMethod)
		otp.Post("/verify", middleware.ValidateRequest[models.OTPCode](), h.VerifyOTP)
		otp.Post("/resend", h.ResendOTP)
	}

	// Protected pages
	protected := middleware.RequireSession(middleware.GuardConfig{Guard: h.guard})

	app.Get("/dashboard", protected, h.Dashboard)
	app.Post("/logout", protected, h.Logout)

	cfg := app.Group("/config", protected)
	{
		cfg.Get("/profile", h.GetProfile)
		cfg.Patch("/profile", middleware.ValidateRequest[models.Profile](), h.UpdateProfile)
		cfg.Delete("/profile", h.DeleteProfile)
		cfg.Patch("/password", middleware.ValidateRequest[models.PasswordChange](), h.ChangePassword)
	}

	noticias := app.Group("/noticias", protected)
	{
		noticias.Get("", h.Headlines)
		noticias.Get("/check", h.CheckNews)
	}

	admin := app.Group("/admin", protected)
	{
		admin.Get("/users", h.ListUsers)
		admin.Get("/users/:id", h.GetUser)
		admin.Patch("/users/:id", h.UpdateUser)
		admin.Delete("/users/:id", h.DeleteUser)
	}

	// 404 Handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
		})
	})
}
