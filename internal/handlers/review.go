package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/booklyapp/bookly/internal/apperr"
	"github.com/booklyapp/bookly/internal/logging"
	"github.com/booklyapp/bookly/internal/middleware"
	"github.com/booklyapp/bookly/internal/models"
)

type ReviewHandler struct {
	DB *gorm.DB
}

type reviewRequest struct {
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
}

func (h *ReviewHandler) GetReviews(c echo.Context) error {
	ctx := c.Request().Context()

	var reviews []models.Review
	if err := h.DB.WithContext(ctx).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, reviews)
}

func (h *ReviewHandler) GetReview(c echo.Context) error {
	ctx := c.Request().Context()

	review, err := h.findReview(ctx, c.Param("uid"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) CreateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review_create")

	user := middleware.UserFrom(c)
	if user == nil {
		return apperr.ErrMissingCredentials
	}

	bookID, err := uuid.Parse(c.Param("book_uid"))
	if err != nil {
		return apperr.ErrBookNotFound
	}
	var book models.Book
	if err := h.DB.WithContext(ctx).First(&book, "id = ?", bookID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrBookNotFound
		}
		return err
	}

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}

	review := models.Review{
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		UserID:     user.ID,
		BookID:     book.ID,
	}
	if err := h.DB.WithContext(ctx).Create(&review).Error; err != nil {
		l.Error("review_create_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	return c.JSON(http.StatusCreated, review)
}

func (h *ReviewHandler) UpdateReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review_update")

	user := middleware.UserFrom(c)
	if user == nil {
		return apperr.ErrMissingCredentials
	}

	review, err := h.findReview(ctx, c.Param("uid"))
	if err != nil {
		return err
	}
	if review.UserID != user.ID {
		l.Warn("review_update_denied", "status", 403, "review_uid", review.ID.String())
		return apperr.ErrReviewPermission
	}

	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return echo.NewHTTPError(http.StatusBadRequest, "rating must be between 1 and 5")
	}

	review.Rating = req.Rating
	review.ReviewText = req.ReviewText
	if err := h.DB.WithContext(ctx).Save(review).Error; err != nil {
		l.Error("review_update_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	return c.JSON(http.StatusOK, review)
}

func (h *ReviewHandler) DeleteReview(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review_delete")

	user := middleware.UserFrom(c)
	if user == nil {
		return apperr.ErrMissingCredentials
	}

	review, err := h.findReview(ctx, c.Param("uid"))
	if err != nil {
		return err
	}
	if review.UserID != user.ID {
		l.Warn("review_delete_denied", "status", 403, "review_uid", review.ID.String())
		return apperr.ErrReviewPermission
	}

	if err := h.DB.WithContext(ctx).Delete(review).Error; err != nil {
		l.Error("review_delete_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *ReviewHandler) findReview(ctx context.Context, uid string) (*models.Review, error) {
	id, err := uuid.Parse(uid)
	if err != nil {
		return nil, apperr.ErrReviewNotFound
	}

	var review models.Review
	if err := h.DB.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrReviewNotFound
		}
		return nil, err
	}
	return &review, nil
}
