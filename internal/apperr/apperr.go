package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/booklyapp/bookly/internal/logging"
)

// Error is a domain failure with a stable machine-readable code. Handlers and
// services return these; the HTTP shape is produced in one place by Handler.
type Error struct {
	Status     int    `json:"-"`
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	Resolution string `json:"resolution"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

var (
	ErrUserAlreadyExists = &Error{
		Status:     http.StatusConflict,
		Code:       "user_already_exists",
		Message:    "A user with this email address already exists",
		Resolution: "Please use a different email address or try logging in",
	}
	ErrUserNotFound = &Error{
		Status:     http.StatusNotFound,
		Code:       "user_not_found",
		Message:    "The requested user could not be found",
		Resolution: "Please verify the user identifier and try again",
	}
	ErrUserNotVerified = &Error{
		Status:     http.StatusForbidden,
		Code:       "user_not_verified",
		Message:    "Your account is not verified. Please verify your email before logging in.",
		Resolution: "Check your email inbox or spam folder for the verification link.",
	}
	ErrInvalidCredentials = &Error{
		Status:     http.StatusUnauthorized,
		Code:       "invalid_credentials",
		Message:    "The provided email or password is incorrect",
		Resolution: "Please check your credentials and try again",
	}
	ErrMissingCredentials = &Error{
		Status:     http.StatusUnauthorized,
		Code:       "missing_credentials",
		Message:    "Authentication credentials were not provided",
		Resolution: "Please provide a bearer token in the Authorization header",
	}
	ErrInvalidToken = &Error{
		Status:     http.StatusUnauthorized,
		Code:       "invalid_token",
		Message:    "The provided token is invalid or has expired",
		Resolution: "Please authenticate again to obtain a new token",
	}
	ErrExpiredToken = &Error{
		Status:     http.StatusUnauthorized,
		Code:       "token_expired",
		Message:    "The provided token has expired",
		Resolution: "Please authenticate again to obtain a new token",
	}
	ErrRevokedToken = &Error{
		Status:     http.StatusUnauthorized,
		Code:       "token_revoked",
		Message:    "The provided token has been revoked and is no longer valid",
		Resolution: "Please authenticate again to obtain a new token",
	}
	ErrTokenDecode = &Error{
		Status:     http.StatusUnauthorized,
		Code:       "jwt_decode_error",
		Message:    "Unable to process the provided token due to invalid format",
		Resolution: "Please ensure you are providing a valid JWT token",
	}
	ErrAccessTokenRequired = &Error{
		Status:     http.StatusUnauthorized,
		Code:       "access_token_required",
		Message:    "This operation requires a valid access token",
		Resolution: "Please provide a valid access token in the Authorization header",
	}
	ErrRefreshTokenRequired = &Error{
		Status:     http.StatusUnauthorized,
		Code:       "refresh_token_required",
		Message:    "This operation requires a valid refresh token",
		Resolution: "Please provide a valid refresh token",
	}
	ErrPermissionDenied = &Error{
		Status:     http.StatusForbidden,
		Code:       "permission_denied",
		Message:    "You do not have sufficient permissions to perform this action",
		Resolution: "Please contact an administrator if you believe this is an error",
	}
	ErrBookNotFound = &Error{
		Status:     http.StatusNotFound,
		Code:       "book_not_found",
		Message:    "The requested book could not be found",
		Resolution: "Please verify the book identifier and try again",
	}
	ErrReviewNotFound = &Error{
		Status:     http.StatusNotFound,
		Code:       "review_not_found",
		Message:    "The requested review could not be found",
		Resolution: "Please verify the review identifier and try again",
	}
	ErrReviewPermission = &Error{
		Status:     http.StatusForbidden,
		Code:       "review_permission_denied",
		Message:    "You do not have permission to modify or delete this review",
		Resolution: "You can only modify or delete reviews that you have created",
	}
	ErrTagNotFound = &Error{
		Status:     http.StatusNotFound,
		Code:       "tag_not_found",
		Message:    "The requested tag could not be found",
		Resolution: "Please verify the tag identifier and try again",
	}
	ErrTagAlreadyExists = &Error{
		Status:     http.StatusConflict,
		Code:       "tag_already_exists",
		Message:    "A tag with this name already exists",
		Resolution: "Please choose a different tag name or use the existing tag",
	}
	ErrSearchUnavailable = &Error{
		Status:     http.StatusServiceUnavailable,
		Code:       "search_unavailable",
		Message:    "The search service is temporarily unavailable",
		Resolution: "Please try again later; the rest of the catalog is unaffected",
	}
	ErrInternal = &Error{
		Status:     http.StatusInternalServerError,
		Code:       "internal_server_error",
		Message:    "An unexpected error occurred while processing your request",
		Resolution: "Please try again later or contact support if the problem persists",
	}
)

// Handler translates errors into their JSON shape at the boundary. Domain
// errors keep their code and status; echo's own errors (routing, binding)
// pass through; anything else is logged and masked as internal_server_error.
func Handler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var e *Error
		if errors.As(err, &e) {
			_ = c.JSON(e.Status, e)
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, echo.Map{
				"message":    fmt.Sprint(he.Message),
				"error_code": "http_error",
			})
			return
		}

		logging.FromContext(c.Request().Context()).Error("unhandled error", "error", err)
		_ = c.JSON(ErrInternal.Status, ErrInternal)
	}
}
