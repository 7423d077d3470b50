package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-booking/internal/model"
	"github.com/iliyamo/event-booking/internal/service"
)

// AuthHandler serves signup and login.
type AuthHandler struct {
	Auth   *service.AuthService
	Logger zerolog.Logger
}

func NewAuthHandler(a *service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{Auth: a, Logger: logger}
}

// ----- DTOs -----

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // manager | customer, default customer
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	User        model.User `json:"user"`
}

// Signup creates an account and returns it without the password hash.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	u, err := h.Auth.Signup(c.Request().Context(), service.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Login exchanges email and password for a bearer token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return invalidBody(c)
	}
	if req.Email == "" || req.Password == "" {
		return respondError(c, h.Logger, service.Invalid("email and password are required"))
	}
	res, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, loginResp{
		AccessToken: res.Token.Token,
		TokenType:   "bearer",
		User:        res.User,
	})
}
