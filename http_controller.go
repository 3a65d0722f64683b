package bridge

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// Controller exposes the gateway's JSON endpoints.
type Controller struct {
	Debug     bool
	Logger    Logger
	Exchanger *Exchanger
	Migrator  *Migrator
	Store     UserStore
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

// NewController creates the HTTP controller.
func NewController(exchanger *Exchanger, migrator *Migrator, store UserStore, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:    defLogger{},
		Exchanger: exchanger,
		Migrator:  migrator,
		Store:     store,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Exchanger == nil {
		panic("Missing Exchanger in bridge controller...")
	}

	if c.Migrator == nil {
		panic("Missing Migrator in bridge controller...")
	}

	return c
}

// RegisterRoutes mounts the gateway endpoints on the app.
func RegisterRoutes(app *fiber.App, controller *Controller) {
	app.Get("/health", controller.Health)

	auth := app.Group("/auth")
	auth.Post("/exchange-session", controller.ExchangeSession)
	auth.Post("/migrate-password", controller.MigratePassword)
	auth.Get("/migration-status", controller.MigrationStatus)
}

// ExchangeSessionRequest payload
type ExchangeSessionRequest struct {
	SourceToken string `json:"sourceToken" form:"sourceToken"`
}

// Validate will run validation rules
func (r ExchangeSessionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SourceToken, validation.Required),
	)
}

// ExchangeSessionResponse is the success body for exchange-session.
type ExchangeSessionResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         ResponseUser `json:"user"`
}

// ResponseUser is the compact user view returned to callers.
type ResponseUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (c *Controller) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}

func (c *Controller) ExchangeSession(ctx *fiber.Ctx) error {
	payload := new(ExchangeSessionRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return c.badRequest(ctx, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	tokens, user, err := c.Exchanger.Exchange(ctx.UserContext(), payload.SourceToken)
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(ExchangeSessionResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User: ResponseUser{
			ID:    user.ID.String(),
			Email: user.Email,
		},
	})
}

// MigratePasswordRequest payload
type MigratePasswordRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate will run validation rules
func (r MigratePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// MigratePasswordResponse is the success body for migrate-password.
type MigratePasswordResponse struct {
	Session  *SessionTokens `json:"session"`
	Migrated bool           `json:"migrated"`
}

func (c *Controller) MigratePassword(ctx *fiber.Ctx) error {
	payload := new(MigratePasswordRequest)

	if err := ctx.BodyParser(payload); err != nil {
		return c.badRequest(ctx, "failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return c.validationError(ctx, err)
	}

	if c.Debug {
		c.Logger.Debug("migrate password request: %s", print.MaybePrettyJSON(map[string]any{
			"email": NormalizeEmail(payload.Email),
		}))
	}

	tokens, migrated, err := c.Migrator.MigrateAndLogin(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(MigratePasswordResponse{
		Session:  tokens,
		Migrated: migrated,
	})
}

// MigrationStatusResponse reports the derived migration state of a record.
type MigrationStatusResponse struct {
	Email string         `json:"email"`
	State MigrationState `json:"state"`
}

func (c *Controller) MigrationStatus(ctx *fiber.Ctx) error {
	email := NormalizeEmail(ctx.Query("email"))
	if email == "" {
		return c.badRequest(ctx, "email query parameter is required")
	}

	if c.Store == nil {
		return c.respondError(ctx, ErrServiceUnavailable.Clone())
	}

	user, err := c.Store.GetByEmail(ctx.UserContext(), email)
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(MigrationStatusResponse{
		Email: email,
		State: DeriveMigrationState(user),
	})
}

type errorBody struct {
	Message  string         `json:"message"`
	TextCode string         `json:"text_code,omitempty"`
	Category string         `json:"category,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (c *Controller) respondError(ctx *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "unexpected gateway error").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}

	if status >= fiber.StatusInternalServerError {
		c.Logger.Error(
			"request failed",
			"path", ctx.Path(),
			"text_code", richErr.TextCode,
			"error", richErr.Message,
		)
	}

	return ctx.Status(status).JSON(fiber.Map{"error": errorBody{
		Message:  richErr.Message,
		TextCode: richErr.TextCode,
		Category: string(richErr.Category),
		Metadata: richErr.Metadata,
	}})
}

func (c *Controller) badRequest(ctx *fiber.Ctx, message string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errorBody{
		Message:  message,
		TextCode: "bad_request",
		Category: string(errors.CategoryBadInput),
	}})
}

func (c *Controller) validationError(ctx *fiber.Ctx, err error) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": errorBody{
		Message:  err.Error(),
		TextCode: "validation_failed",
		Category: string(errors.CategoryValidation),
	}})
}
