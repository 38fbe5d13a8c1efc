package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/userportal/auth-service/internal/core/ports"
)

// PhoneNormaliser formats a validated phone number for storage.
type PhoneNormaliser interface {
	NormalisePhone(raw string) string
}

type AuthHandler struct {
	authService ports.AuthService
	phones      PhoneNormaliser
}

func NewAuthHandler(authService ports.AuthService, phones PhoneNormaliser) *AuthHandler {
	return &AuthHandler{authService: authService, phones: phones}
}

// SignUp creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "User registration details"
// @Success      201   {object}  ports.UserSummary
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/auth/signUp [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	in := ports.SignUpInput{
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		LastName:   req.LastName,
		ProfileURL: req.ProfileURL,
		Address:    req.Address,
		Roles:      req.Roles,
	}
	if req.PhoneNumber != "" {
		in.PhoneNumber = h.phones.NormalisePhone(req.PhoneNumber)
	}
	if req.Birthdate != "" {
		bd, err := parseBirthdate(req.Birthdate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		in.Birthdate = bd
	}

	user, err := h.authService.SignUp(c.Request().Context(), in)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

// SignIn authenticates a user and returns a bearer token.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  signInResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /api/auth/signIn [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := h.authService.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, signInResponse{Token: token})
}
