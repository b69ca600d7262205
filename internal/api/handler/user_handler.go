package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Sajadaliismail/gatekeeper/internal/api/metrics"
	"github.com/Sajadaliismail/gatekeeper/internal/api/middleware"
	"github.com/Sajadaliismail/gatekeeper/internal/core/domain"
	"github.com/Sajadaliismail/gatekeeper/internal/core/ports"
)

// UserHandler handles HTTP requests for signup, login and account management.
type UserHandler struct {
	service      ports.UserService
	cookieSecure bool
	now          func() time.Time
}

func NewUserHandler(service ports.UserService, cookieSecure bool) *UserHandler {
	return &UserHandler{service: service, cookieSecure: cookieSecure, now: time.Now}
}

// CreateUser handles POST /api/signup.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Signup details"
// @Success      201   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /signup [post]
func (h *UserHandler) CreateUser(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	err := h.service.Signup(c.Request().Context(), ports.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Address:  req.Address,
	})
	if err != nil {
		metrics.SignupsTotal.WithLabelValues(signupResult(err)).Inc()
		return err
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, successResponse{Success: true})
}

// LoginUser handles POST /api/login. The token is returned in the body and
// set as an HttpOnly cookie that expires together with it.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /login [post]
func (h *UserHandler) LoginUser(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()

	c.SetCookie(h.sessionCookie(res.Token, res.ExpiresAt))
	return c.JSON(http.StatusOK, loginResponse{
		Role:  res.Role.String(),
		Token: res.Token,
		Email: res.Email,
	})
}

func (h *UserHandler) sessionCookie(token string, expiresAt time.Time) *http.Cookie {
	// Browsers drop SameSite=None cookies that are not Secure.
	sameSite := http.SameSiteNoneMode
	if !h.cookieSecure {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(expiresAt.Sub(h.now()).Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: sameSite,
	}
}

// GetUser handles GET /api/. A user gets their own profile; admins and
// moderators get every user.
//
// @Summary      Get own profile or list users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usersResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       / [get]
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	switch id.Role {
	case domain.RoleUser:
		profile, err := h.service.GetUserDetails(ctx, id.Email)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, profile)
	case domain.RoleAdmin, domain.RoleModerator:
		users, err := h.service.FindAllUsers(ctx)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, usersResponse{Users: users})
	default:
		return domain.ErrForbidden
	}
}

// ChangeRole handles PATCH /api/change-role.
//
// @Summary      Change a user's role
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changeRoleRequest  true  "Target email and new role"
// @Success      200   {object}  changeRoleResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /change-role [patch]
func (h *UserHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return &domain.ValidationError{Field: "role", Reason: "is not a known role"}
	}

	if err := h.service.UpdateUser(c.Request().Context(), req.Email, domain.UserPatch{Role: &role}); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, changeRoleResponse{Role: true})
}

// ChangeStatus handles PATCH /api/change-status.
//
// @Summary      Ban or unban a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      changeStatusRequest  true  "Target email and ban flag"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /change-status [patch]
func (h *UserHandler) ChangeStatus(c echo.Context) error {
	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.UpdateUser(c.Request().Context(), req.Email, domain.UserPatch{IsBanned: req.IsBanned}); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// RemoveUser handles DELETE /api/delete-user. Users may only delete themselves.
//
// @Summary      Delete a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      removeUserRequest  true  "Target email"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /delete-user [delete]
func (h *UserHandler) RemoveUser(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req removeUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	target := domain.NormalizeEmail(req.Email)
	if err := ensureOwnership(id, target); err != nil {
		return err
	}

	ok, err := h.service.RemoveUser(c.Request().Context(), target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: ok})
}

// EditUser handles PATCH /api/edit-user. The target defaults to the caller.
//
// @Summary      Edit own profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      editUserRequest  true  "New name and address"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /edit-user [patch]
func (h *UserHandler) EditUser(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req editUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	target := id.Email
	if req.Email != "" {
		target = domain.NormalizeEmail(req.Email)
	}
	if err := ensureOwnership(id, target); err != nil {
		return err
	}

	patch := domain.UserPatch{Name: &req.Name, Address: req.Address}
	if err := h.service.UpdateUser(c.Request().Context(), target, patch); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, successResponse{Success: true})
}

// ensureOwnership restricts callers with role user to their own record.
func ensureOwnership(id domain.Identity, target string) error {
	switch id.Role {
	case domain.RoleAdmin, domain.RoleModerator:
		return nil
	case domain.RoleUser:
		if target == id.Email {
			return nil
		}
		return domain.ErrForbidden
	default:
		return domain.ErrForbidden
	}
}

func signupResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserExists), errors.Is(err, domain.ErrDuplicateKey):
		return "exists"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotRegistered):
		return "not_registered"
	case errors.Is(err, domain.ErrBanned):
		return "banned"
	case errors.Is(err, domain.ErrIncorrectPassword):
		return "incorrect_password"
	default:
		return "error"
	}
}
