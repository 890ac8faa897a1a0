package api

import (
	"time"

	"github.com/bilgisen/noticias/internal/auth"
	"github.com/bilgisen/noticias/internal/backend"
	"github.com/bilgisen/noticias/internal/cache"
	"github.com/bilgisen/noticias/internal/config"
	"github.com/bilgisen/noticias/internal/flow"
	"github.com/bilgisen/noticias/internal/guard"
	"github.com/bilgisen/noticias/internal/logger"
	"github.com/bilgisen/noticias/internal/middleware"
	"github.com/bilgisen/noticias/internal/models"
	"github.com/bilgisen/noticias/internal/news"
	"github.com/bilgisen/noticias/internal/notice"
	"github.com/bilgisen/noticias/internal/profile"
	"github.com/gofiber/fiber/v2"
)

// Deps are the shared pieces the handlers are built from
type Deps struct {
	Config  *config.Config
	Backend *backend.Client
	Store   cache.Store
	News    *news.Client
	Guard   *guard.Guard
}

// Handlers serves the web front. Every backend call uses c.UserContext(),
// which carries the browser's cookies.
type Handlers struct {
	config  *config.Config
	backend *backend.Client
	auth    *auth.Service
	profile *profile.Service
	news    *news.Client
	guard   *guard.Guard
	flows   *flowStore
}

// NewHandlers wires the services on top of one backend client
func NewHandlers(d Deps) *Handlers {
	authSvc := auth.NewService(d.Backend)
	g := d.Guard
	if g == nil {
		g = guard.New(authSvc)
	}
	return &Handlers{
		config:  d.Config,
		backend: d.Backend,
		auth:    authSvc,
		profile: profile.NewService(d.Backend),
		news:    d.News,
		guard:   g,
		flows:   &flowStore{store: d.Store, ttl: d.Config.FlowTTL, secure: d.Config.CookieSecure},
	}
}

// Guard returns the guard the protected routes use
func (h *Handlers) Guard() *guard.Guard { return h.guard }

func (h *Handlers) notifier(c *fiber.Ctx) notice.Notifier {
	return notice.Multi{
		middleware.NoticesFrom(c),
		notice.Log{Logger: logger.Component("notice")},
	}
}

// reply writes body with the request's notices attached
func (h *Handlers) reply(c *fiber.Ctx, status int, body fiber.Map) error {
	if n := middleware.NoticesFrom(c).Drain(); len(n) > 0 {
		body["notices"] = n
	}
	return c.Status(status).JSON(body)
}

// HealthCheck handles the /health endpoint
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// Home handles GET /. A failed status check shows as signed out.
func (h *Handlers) Home(c *fiber.Ctx) error {
	ok, err := h.auth.Status(c.UserContext())
	if err != nil {
		logger.Get().Warn().Err(err).Msg("home status check failed")
	}
	return h.reply(c, fiber.StatusOK, fiber.Map{"isAuthenticated": ok})
}

// Login handles POST /login
func (h *Handlers) Login(c *fiber.Ctx) error {
	creds := middleware.Validated[models.Credentials](c)
	f := flow.New(flow.KindLogin, h.auth, h.notifier(c))
	err := f.SubmitLogin(c.UserContext(), *creds)
	return h.flowReply(c, f, "", err)
}

// Register handles POST /register
func (h *Handlers) Register(c *fiber.Ctx) error {
	reg := middleware.Validated[models.Registration](c)
	f := flow.New(flow.KindRegister, h.auth, h.notifier(c))
	err := f.SubmitRegister(c.UserContext(), *reg)
	return h.flowReply(c, f, "", err)
}

// ChooseMethod handles POST /otp/method
func (h *Handlers) ChooseMethod(c *fiber.Ctx) error {
	choice := middleware.Validated[models.MethodChoice](c)
	f, id, err := h.flows.load(c, h.auth, h.notifier(c))
	if err != nil {
		return err
	}
	err = f.ChooseMethod(c.UserContext(), flow.Method(choice.Method))
	return h.flowReply(c, f, id, err)
}

// VerifyOTP handles POST /otp/verify
func (h *Handlers) VerifyOTP(c *fiber.Ctx) error {
	code := middleware.Validated[models.OTPCode](c)
	f, id, err := h.flows.load(c, h.auth, h.notifier(c))
	if err != nil {
		return err
	}
	if err := f.SetCode(code.OTP); err != nil {
		return err
	}
	err = f.Verify(c.UserContext())
	return h.flowReply(c, f, id, err)
}

// ResendOTP handles POST /otp/resend
func (h *Handlers) ResendOTP(c *fiber.Ctx) error {
	f, id, err := h.flows.load(c, h.auth, h.notifier(c))
	if err != nil {
		return err
	}
	err = f.Resend(c.UserContext())
	return h.flowReply(c, f, id, err)
}

// VerifyEmail handles POST /verify-email, the landing of a verification link
func (h *Handlers) VerifyEmail(c *fiber.Ctx) error {
	req := middleware.Validated[models.TokenRequest](c)
	msg, err := h.auth.CompleteEmailVerification(c.UserContext(), req.Token)
	if err != nil {
		e := messageOr(err, "Error al verificar el correo electrónico. El token podría ser inválido o haber expirado.")
		middleware.NoticesFrom(c).Error(e)
		return err
	}
	middleware.NoticesFrom(c).Success(orDefault(msg, "¡Correo electrónico verificado exitosamente! Ahora puedes iniciar sesión."))
	return h.reply(c, fiber.StatusOK, fiber.Map{"destination": "/login"})
}

// ForgotPassword handles POST /forgot-password
func (h *Handlers) ForgotPassword(c *fiber.Ctx) error {
	req := middleware.Validated[models.EmailRequest](c)
	if _, err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		middleware.NoticesFrom(c).Error(messageOr(err, "Ocurrio un error trate otra vez"))
		return err
	}
	middleware.NoticesFrom(c).Success("Reset successfully check yor email to change your password")
	return h.reply(c, fiber.StatusOK, fiber.Map{"destination": "/login"})
}

// ResetPassword handles POST /reset-password/:token
func (h *Handlers) ResetPassword(c *fiber.Ctx) error {
	req := middleware.Validated[models.PasswordReset](c)
	if _, err := h.auth.ResetPassword(c.UserContext(), c.Params("token"), req.NewPassword); err != nil {
		middleware.NoticesFrom(c).Error(resetFailure(err))
		return err
	}
	middleware.NoticesFrom(c).Success("Password change successfully")
	return h.reply(c, fiber.StatusOK, fiber.Map{"destination": "/login"})
}

// OAuth handles GET /auth/:provider by sending the browser to the backend
func (h *Handlers) OAuth(c *fiber.Ctx) error {
	target, err := h.auth.OAuthURL(c.Params("provider"))
	if err != nil {
		return err
	}
	return c.Redirect(target, fiber.StatusFound)
}

// flowReply stores or drops the flow and answers with its view. Field
// errors and illegal transitions go to the error handler untouched.
func (h *Handlers) flowReply(c *fiber.Ctx, f *flow.Flow, id string, err error) error {
	if err != nil && !isBackendFailure(err) {
		return err
	}

	if f.OTPDialogOpen() {
		if serr := h.flows.save(c, id, f); serr != nil {
			return serr
		}
	} else {
		h.flows.drop(c, id)
	}

	status := fiber.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	return h.reply(c, status, flowView(f))
}

func flowView(f *flow.Flow) fiber.Map {
	view := fiber.Map{
		"state":         f.State(),
		"message":       f.Message(),
		"otpDialogOpen": f.OTPDialogOpen(),
		"destination":   f.Destination(),
	}
	if email := f.Email(); email != "" {
		view["email"] = email
	}
	if m := f.Method(); m != "" {
		view["method"] = m
	}
	return view
}
