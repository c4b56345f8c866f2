// Package accounts serves the login, signup, logout and password-change
// pages advertised by the Account navigation group.
package accounts

import (
	"errors"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"fast-frontend/internal/auth"
	"fast-frontend/internal/engine"
	"fast-frontend/internal/frontend"
	"fast-frontend/internal/metadata"
)

const minPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Handler handles the account pages.
type Handler struct {
	backend  *auth.Backend
	registry *frontend.Registry
	renderer engine.Renderer
	log      logrus.FieldLogger
	prefix   string
}

// NewHandler creates the account pages mounted under prefix, e.g. "/accounts".
func NewHandler(b *auth.Backend, reg *frontend.Registry, r engine.Renderer, log logrus.FieldLogger, prefix string) *Handler {
	return &Handler{backend: b, registry: reg, renderer: r, log: log, prefix: prefix}
}

// Routes are the navigation entries served by this handler.
func (h *Handler) Routes() []frontend.AccountRoute {
	return frontend.DefaultAccountRoutes(h.prefix)
}

type loginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

func (f loginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required, validation.Match(emailPattern).Error("Enter a valid email address.")),
		validation.Field(&f.Password, validation.Required),
	)
}

// public is the part of the form echoed back to the page.
func (f loginForm) public() fiber.Map {
	return fiber.Map{"email": f.Email, "next": f.Next}
}

type signupForm struct {
	Email     string `json:"email" form:"email"`
	Password1 string `json:"password1" form:"password1"`
	Password2 string `json:"password2" form:"password2"`
}

func (f signupForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required, validation.Match(emailPattern).Error("Enter a valid email address.")),
		validation.Field(&f.Password1, validation.Required, validation.RuneLength(minPasswordLength, 0)),
		validation.Field(&f.Password2, validation.Required, validation.In(f.Password1).Error("The two password fields didn't match.")),
	)
}

type passwordChangeForm struct {
	OldPassword  string `json:"old_password" form:"old_password"`
	NewPassword1 string `json:"new_password1" form:"new_password1"`
	NewPassword2 string `json:"new_password2" form:"new_password2"`
}

func (f passwordChangeForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.OldPassword, validation.Required),
		validation.Field(&f.NewPassword1, validation.Required, validation.RuneLength(minPasswordLength, 0)),
		validation.Field(&f.NewPassword2, validation.Required, validation.In(f.NewPassword1).Error("The two password fields didn't match.")),
	)
}

// Login handles GET/POST {prefix}/login/. A successful login sets the
// session cookie and returns to the local "next" path.
func (h *Handler) Login(c *fiber.Ctx) error {
	var form loginForm
	if c.Method() != fiber.MethodPost {
		form.Next = c.Query("next")
		return h.render(c, "login", "Login", form.public(), nil, fiber.StatusOK)
	}
	if err := c.BodyParser(&form); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", fiber.StatusBadRequest, "Invalid request body")
	}
	if err := form.Validate(); err != nil {
		return h.render(c, "login", "Login", form.public(), details(err, "email", "password"), fiber.StatusUnprocessableEntity)
	}

	user, err := h.backend.Authenticate(c.UserContext(), form.Email, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrAccountDisabled) {
			h.log.WithField("email", form.Email).Info("login rejected")
			msg := "Please enter a correct email and password."
			if errors.Is(err, auth.ErrAccountDisabled) {
				msg = "This account is inactive."
			}
			return h.render(c, "login", "Login", form.public(), []engine.ErrorDetail{{Message: msg}}, fiber.StatusUnauthorized)
		}
		return err
	}

	token, err := h.backend.Issue(user)
	if err != nil {
		return engine.NewAppError("INTERNAL_ERROR", fiber.StatusInternalServerError, "Failed to issue session")
	}
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(auth.SessionTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect(engine.SafeNext(form.Next, h.registry.GlobalConfig().Root()), fiber.StatusFound)
}

// Signup handles GET/POST {prefix}/signup/. The new account is not logged in.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var form signupForm
	if c.Method() != fiber.MethodPost {
		return h.render(c, "signup", "Sign Up", fiber.Map{"email": ""}, nil, fiber.StatusOK)
	}
	if err := c.BodyParser(&form); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", fiber.StatusBadRequest, "Invalid request body")
	}
	if err := form.Validate(); err != nil {
		return h.render(c, "signup", "Sign Up", fiber.Map{"email": form.Email}, details(err, "email", "password1", "password2"), fiber.StatusUnprocessableEntity)
	}

	user, err := h.backend.SignUp(c.UserContext(), form.Email, form.Password1)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			return h.render(c, "signup", "Sign Up", fiber.Map{"email": form.Email},
				[]engine.ErrorDetail{{Field: "email", Message: "A user is already registered with this email address."}},
				fiber.StatusUnprocessableEntity)
		}
		return err
	}
	h.log.WithField("user", user.ID).Info("account created")
	return c.Redirect(h.prefix+"/login/", fiber.StatusFound)
}

// Logout handles {prefix}/logout/ by expiring the session cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals("user", nil)
	return h.render(c, "logged_out", "Logged out", nil, nil, fiber.StatusOK)
}

// PasswordChange handles GET/POST {prefix}/password_change/.
func (h *Handler) PasswordChange(c *fiber.Ctx) error {
	user := auth.GetUser(c)
	if !user.Authenticated() {
		return engine.LoginRedirect(c, h.prefix+"/login/")
	}
	if c.Method() != fiber.MethodPost {
		return h.render(c, "password_change", "Change Password", nil, nil, fiber.StatusOK)
	}

	var form passwordChangeForm
	if err := c.BodyParser(&form); err != nil {
		return engine.NewAppError("INVALID_PAYLOAD", fiber.StatusBadRequest, "Invalid request body")
	}
	if err := form.Validate(); err != nil {
		return h.render(c, "password_change", "Change Password", nil, details(err, "old_password", "new_password1", "new_password2"), fiber.StatusUnprocessableEntity)
	}
	err := h.backend.ChangePassword(c.UserContext(), user.ID, form.OldPassword, form.NewPassword1)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return h.render(c, "password_change", "Change Password", nil,
				[]engine.ErrorDetail{{Field: "old_password", Message: "Your old password was entered incorrectly."}},
				fiber.StatusUnprocessableEntity)
		}
		return err
	}
	return c.Redirect(h.prefix+"/password_change/done/", fiber.StatusFound)
}

// PasswordChangeDone handles {prefix}/password_change/done/.
func (h *Handler) PasswordChangeDone(c *fiber.Ctx) error {
	if !auth.GetUser(c).Authenticated() {
		return engine.LoginRedirect(c, h.prefix+"/login/")
	}
	return h.render(c, "password_change_done", "Password changed", nil, nil, fiber.StatusOK)
}

func (h *Handler) render(c *fiber.Ctx, view, title string, form any, errs []engine.ErrorDetail, status int) error {
	user, _ := c.Locals("user").(*metadata.UserContext)
	data := fiber.Map{
		"meta":   engine.SiteMeta(h.registry, user, title),
		"form":   form,
		"prefix": h.prefix,
	}
	if len(errs) > 0 {
		data["error"] = engine.FormInvalidError(errs)
		data["errors"] = errs
	}
	c.Status(status)
	return h.renderer.Render(c, view, data)
}

// details flattens ozzo validation errors in field order.
func details(err error, order ...string) []engine.ErrorDetail {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return []engine.ErrorDetail{{Message: err.Error()}}
	}
	var out []engine.ErrorDetail
	for _, field := range order {
		if e, ok := errs[field]; ok && e != nil {
			out = append(out, engine.ErrorDetail{Field: field, Message: e.Error()})
		}
	}
	return out
}

// RegisterRoutes mounts the account pages. It must be registered before the
// frontend's catch-all routes.
func RegisterRoutes(app fiber.Router, h *Handler) {
	g := app.Group(h.prefix)
	g.All("/login", h.Login)
	g.All("/signup", h.Signup)
	g.All("/logout", h.Logout)
	g.All("/password_change", h.PasswordChange)
	g.All("/password_change/done", h.PasswordChangeDone)
}
