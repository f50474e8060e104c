package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/booklyapp/bookly/internal/apperr"
	"github.com/booklyapp/bookly/internal/blocklist"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/hash"
	"github.com/booklyapp/bookly/internal/logging"
	"github.com/booklyapp/bookly/internal/middleware"
	"github.com/booklyapp/bookly/internal/models"
	"github.com/booklyapp/bookly/internal/signer"
	"github.com/booklyapp/bookly/internal/token"
)

type AuthHandler struct {
	DB         *gorm.DB
	Codec      *token.Codec
	Blocklist  *blocklist.Blocklist
	Signer     *signer.Signer
	Producer   events.Publisher
	Domain     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (h *AuthHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var existing models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("signup_error", "status", 500, "reason", "db_error", "error", err)
			return err
		}
	} else {
		l.Warn("signup_failed", "status", 409, "reason", "user_exists")
		return apperr.ErrUserAlreadyExists
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return err
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
		l.Error("signup_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	emailToken, err := h.Signer.Sign(user.Email)
	if err != nil {
		l.Error("signup_failed", "status", 500, "reason", "cannot sign email token", "error", err)
		return err
	}
	link := fmt.Sprintf("http://%s/api/v1/auth/verify/%s", h.Domain, emailToken)

	h.publishMail(c, events.MailEvent{
		Recipients: []string{user.Email},
		Subject:    "Verify your email",
		Template:   events.TemplateVerifyEmail,
		Context:    map[string]string{"link": link},
	})
	h.publishUserEvent(c, map[string]interface{}{
		"type":     "user_registered",
		"user_uid": user.ID.String(),
		"email":    user.Email,
	})

	l.Info("signup_success", "status", 201)
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Account Created! Check email to verify your account",
		"user":    user,
	})
}

func (h *AuthHandler) Verify(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_verify")

	email, err := h.Signer.Verify(c.Param("token"), signer.DefaultMaxAge)
	if err != nil {
		l.Warn("verify_failed", "status", 401, "error", err)
		if errors.Is(err, signer.ErrExpired) {
			return apperr.ErrExpiredToken
		}
		return apperr.ErrInvalidToken
	}
	if email == "" {
		return apperr.ErrInternal
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}

	if err := h.DB.WithContext(ctx).Model(&user).Update("is_verified", true).Error; err != nil {
		l.Error("verify_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	l.Info("verify_success", "email", email)
	return c.JSON(http.StatusOK, echo.Map{"message": "Account verified successfully"})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	// Unknown email and wrong password produce the same error so responses
	// cannot be used for user enumeration.
	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return apperr.ErrInvalidCredentials
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid email or password")
		return apperr.ErrInvalidCredentials
	}

	if !user.IsVerified {
		l.Warn("login_failed", "status", 403, "reason", "user_not_verified")
		return apperr.ErrUserNotVerified
	}

	summary := token.UserClaims{Email: user.Email, UID: user.ID.String(), Role: user.Role}
	accessToken, err := h.Codec.Issue(summary, h.AccessTTL, false)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return err
	}
	refreshToken, err := h.Codec.Issue(token.UserClaims{Email: user.Email, UID: user.ID.String()}, h.RefreshTTL, true)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return err
	}

	h.publishUserEvent(c, map[string]interface{}{
		"type":     "user_logged_in",
		"user_uid": user.ID.String(),
		"email":    user.Email,
	})

	l.Info("login_success")
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Login successful",
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          echo.Map{"email": user.Email, "uid": user.ID.String()},
	})
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated; it keeps minting until its own expiry.
func (h *AuthHandler) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return apperr.ErrMissingCredentials
	}

	// Role is never embedded in refresh tokens; resolve the live user so the
	// new access token carries the current role.
	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", claims.User.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}

	summary := token.UserClaims{Email: user.Email, UID: user.ID.String(), Role: user.Role}
	accessToken, err := h.Codec.Issue(summary, h.AccessTTL, false)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot create token", "error", err)
		return err
	}

	l.Info("refresh_success")
	return c.JSON(http.StatusOK, echo.Map{"access_token": accessToken})
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()

	user := middleware.UserFrom(c)
	if user == nil {
		return apperr.ErrMissingCredentials
	}

	var full models.User
	err := h.DB.WithContext(ctx).
		Preload("Books").Preload("Reviews").
		First(&full, "id = ?", user.ID).Error
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, full)
}

func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_logout")

	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return apperr.ErrMissingCredentials
	}

	if err := h.Blocklist.Revoke(ctx, claims.JTI()); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot revoke token", "error", err)
		return err
	}

	l.Info("logout_success")
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) SendMail(c echo.Context) error {
	var req struct {
		Addresses []string `json:"addresses"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	h.publishMail(c, events.MailEvent{
		Recipients: req.Addresses,
		Subject:    "Welcome to our app",
		Template:   events.TemplateWelcome,
		Context:    map[string]string{"app_name": "Bookly"},
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Email sent successfully"})
}

// PasswordResetRequest always answers 200 so the response does not reveal
// whether an email is registered.
func (h *AuthHandler) PasswordResetRequest(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_password_reset_request")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	emailToken, err := h.Signer.Sign(req.Email)
	if err != nil {
		l.Error("password_reset_request_failed", "status", 500, "error", err)
		return err
	}
	link := fmt.Sprintf("http://%s/api/v1/auth/password-reset-confirm/%s", h.Domain, emailToken)

	h.publishMail(c, events.MailEvent{
		Recipients: []string{req.Email},
		Subject:    "Reset your Account Password",
		Template:   events.TemplateResetPassword,
		Context:    map[string]string{"link": link},
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "Please check your email for instructions to reset your password",
	})
}

func (h *AuthHandler) PasswordResetConfirm(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_password_reset_confirm")

	var req struct {
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	email, err := h.Signer.Verify(c.Param("token"), signer.DefaultMaxAge)
	if err != nil {
		l.Warn("password_reset_failed", "status", 401, "error", err)
		if errors.Is(err, signer.ErrExpired) {
			return apperr.ErrExpiredToken
		}
		return apperr.ErrInvalidToken
	}
	if email == "" {
		return apperr.ErrInternal
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		l.Error("password_reset_failed", "status", 500, "error", err)
		return err
	}
	if err := h.DB.WithContext(ctx).Model(&user).Update("password_hash", pwHash).Error; err != nil {
		l.Error("password_reset_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	l.Info("password_reset_success", "email", email)
	return c.JSON(http.StatusOK, echo.Map{"message": "Password reset Successfully"})
}

func (h *AuthHandler) publishMail(c echo.Context, ev events.MailEvent) {
	if h.Producer == nil {
		return
	}
	ctx := c.Request().Context()
	if err := h.Producer.PublishEvent(ctx, events.TopicMailEvents, ev.Subject, ev); err != nil {
		logging.FromContext(ctx).Error("mail publish failed", "error", err)
	}
}

func (h *AuthHandler) publishUserEvent(c echo.Context, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx := c.Request().Context()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, fmt.Sprint(event["user_uid"]), event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "error", err)
	}
}
