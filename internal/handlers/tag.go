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
	"github.com/booklyapp/bookly/internal/models"
)

type TagHandler struct {
	DB *gorm.DB
}

func (h *TagHandler) GetTags(c echo.Context) error {
	ctx := c.Request().Context()

	var tags []models.Tag
	if err := h.DB.WithContext(ctx).Order("created_at DESC").Find(&tags).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tags)
}

func (h *TagHandler) CreateTag(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tag_create")

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var existing models.Tag
	if err := h.DB.WithContext(ctx).Where("name = ?", req.Name).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	} else {
		l.Warn("tag_create_failed", "status", 409, "reason", "tag_exists")
		return apperr.ErrTagAlreadyExists
	}

	tag := models.Tag{Name: req.Name}
	if err := h.DB.WithContext(ctx).Create(&tag).Error; err != nil {
		l.Error("tag_create_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	return c.JSON(http.StatusCreated, tag)
}

func (h *TagHandler) UpdateTag(c echo.Context) error {
	ctx := c.Request().Context()

	tag, err := h.findTag(ctx, c.Param("uid"))
	if err != nil {
		return err
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	tag.Name = req.Name
	if err := h.DB.WithContext(ctx).Save(tag).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tag)
}

func (h *TagHandler) DeleteTag(c echo.Context) error {
	ctx := c.Request().Context()

	tag, err := h.findTag(ctx, c.Param("uid"))
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(ctx).Delete(tag).Error; err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

// AddTagsToBook attaches the named tags to a book, creating any that do not
// exist yet.
func (h *TagHandler) AddTagsToBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tag_add_to_book")

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

	var req struct {
		Tags []struct {
			Name string `json:"name"`
		} `json:"tags"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	for _, item := range req.Tags {
		var tag models.Tag
		err := h.DB.WithContext(ctx).Where("name = ?", item.Name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.Tag{Name: item.Name}
			if err := h.DB.WithContext(ctx).Create(&tag).Error; err != nil {
				l.Error("tag_add_failed", "status", 500, "reason", "db_error", "error", err)
				return err
			}
		} else if err != nil {
			return err
		}

		if err := h.DB.WithContext(ctx).Model(&book).Association("Tags").Append(&tag); err != nil {
			l.Error("tag_add_failed", "status", 500, "reason", "db_error", "error", err)
			return err
		}
	}

	var full models.Book
	if err := h.DB.WithContext(ctx).Preload("Tags").First(&full, "id = ?", book.ID).Error; err != nil {
		return err
	}

	return c.JSON(http.StatusOK, full)
}

func (h *TagHandler) findTag(ctx context.Context, uid string) (*models.Tag, error) {
	id, err := uuid.Parse(uid)
	if err != nil {
		return nil, apperr.ErrTagNotFound
	}

	var tag models.Tag
	if err := h.DB.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrTagNotFound
		}
		return nil, err
	}
	return &tag, nil
}
