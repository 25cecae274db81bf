package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/concert-calendar/internal/middleware"
	"github.com/iliyamo/concert-calendar/internal/service"
)

// AuthHandler bundles the account endpoints of the auth deployment.
type AuthHandler struct {
	Auth         *service.AuthService
	SecureCookie bool
}

// NewAuthHandler constructs an AuthHandler.  secureCookie marks the
// access_token cookie Secure, which production deployments behind TLS
// should set.
func NewAuthHandler(auth *service.AuthService, secureCookie bool) *AuthHandler {
	if auth == nil {
		panic("nil service passed to NewAuthHandler")
	}
	return &AuthHandler{Auth: auth, SecureCookie: secureCookie}
}

// ----- DTOs -----

type registerForm struct {
	Username string `form:"username" json:"username" validate:"required,max=50"`
	Email    string `form:"email" json:"email" validate:"required,email,max=255"`
	Password string `form:"password" json:"password" validate:"required,max=72"`
}

type tokenForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	Next     string `form:"next" json:"-"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type userResp struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ----- Handlers -----

// Token handles POST /token.  It exchanges form credentials for a bearer
// token, also storing it in an HttpOnly cookie for browser sessions.
// Browser forms that name a local "next" page are redirected there.
func (h *AuthHandler) Token(c echo.Context) error {
	var f tokenForm
	if err := bindForm(c, &f); err != nil {
		return err
	}
	tok, err := h.Auth.Login(c.Request().Context(), f.Username, f.Password)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    tok.Token,
		Path:     "/",
		Expires:  tok.Exp,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	if !middleware.WantsJSON(c) && isLocalPath(f.Next) {
		return c.Redirect(http.StatusSeeOther, f.Next)
	}
	return c.JSON(http.StatusOK, tokenResp{AccessToken: tok.Token, TokenType: "bearer", ExpiresAt: tok.Exp})
}

// isLocalPath accepts only same-site absolute paths as redirect targets.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

// LoginPage handles GET /login.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return render(c, http.StatusOK, "login.html", "Log in", echo.Map{})
}

// RegisterPage handles GET /register.
func (h *AuthHandler) RegisterPage(c echo.Context) error {
	return render(c, http.StatusOK, "register.html", "Register", echo.Map{})
}

// Register handles POST /register and redirects to the login page.
func (h *AuthHandler) Register(c echo.Context) error {
	var f registerForm
	if err := bindForm(c, &f); err != nil {
		return err
	}
	if err := c.Validate(&f); err != nil {
		return err
	}
	if _, err := h.Auth.Register(c.Request().Context(), f.Username, f.Email, f.Password); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Me handles GET /users/me and returns the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	u := middleware.CurrentUser(c)
	return c.JSON(http.StatusOK, userResp{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt})
}
