package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/booklyapp/bookly/internal/apperr"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/logging"
	"github.com/booklyapp/bookly/internal/middleware"
	"github.com/booklyapp/bookly/internal/models"
	"github.com/booklyapp/bookly/internal/search"
	"github.com/booklyapp/bookly/internal/util"
)

type BookHandler struct {
	DB       *gorm.DB
	ES       *elasticsearch.Client
	Producer events.Publisher
}

type bookRequest struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Publisher     string  `json:"publisher"`
	PublishedDate string  `json:"published_date"`
	PageCount     int     `json:"page_count"`
	Genre         string  `json:"genre"`
	Price         float64 `json:"price"`
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func (h *BookHandler) GetBooks(c echo.Context) error {
	ctx := c.Request().Context()

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := h.DB.WithContext(ctx).Model(&models.Book{}).Count(&total).Error; err != nil {
		return err
	}

	var items []models.Book
	err := h.DB.WithContext(ctx).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&items).Error
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *BookHandler) GetUserBooks(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := uuid.Parse(c.Param("user_uid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user uid")
	}

	var items []models.Book
	err = h.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, items)
}

func (h *BookHandler) GetBook(c echo.Context) error {
	ctx := c.Request().Context()

	book, err := h.findBook(ctx, c.Param("uid"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, book)
}

func (h *BookHandler) CreateBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book_create")

	user := middleware.UserFrom(c)
	if user == nil {
		return apperr.ErrMissingCredentials
	}

	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	published, err := time.Parse("2006-01-02", req.PublishedDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "published_date must be YYYY-MM-DD")
	}

	book := models.Book{
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		PublishedDate: published,
		PageCount:     req.PageCount,
		Genre:         req.Genre,
		Price:         req.Price,
		UserID:        user.ID,
	}
	if err := h.DB.WithContext(ctx).Create(&book).Error; err != nil {
		l.Error("book_create_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	h.index(c, &book)
	h.publish(c, map[string]interface{}{
		"type":     "book_created",
		"book_uid": book.ID.String(),
		"title":    book.Title,
	})

	return c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) PatchBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book_patch")

	book, err := h.findBook(ctx, c.Param("uid"))
	if err != nil {
		return err
	}

	var req struct {
		Title     string  `json:"title"`
		Author    string  `json:"author"`
		Publisher string  `json:"publisher"`
		PageCount int     `json:"page_count"`
		Genre     string  `json:"genre"`
		Price     float64 `json:"price"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	book.Title = req.Title
	book.Author = req.Author
	book.Publisher = req.Publisher
	book.PageCount = req.PageCount
	book.Genre = req.Genre
	book.Price = req.Price

	if err := h.DB.WithContext(ctx).Save(book).Error; err != nil {
		l.Error("book_patch_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	h.index(c, book)
	h.publish(c, map[string]interface{}{
		"type":     "book_updated",
		"book_uid": book.ID.String(),
		"title":    book.Title,
	})

	return c.JSON(http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "book_delete")

	book, err := h.findBook(ctx, c.Param("uid"))
	if err != nil {
		return err
	}

	if err := h.DB.WithContext(ctx).Delete(book).Error; err != nil {
		l.Error("book_delete_failed", "status", 500, "reason", "db_error", "error", err)
		return err
	}

	if h.ES != nil {
		if err := search.DeleteBook(ctx, h.ES, search.BookIndex, book.ID.String()); err != nil {
			l.Error("book_deindex_failed", "error", err)
		}
	}
	h.publish(c, map[string]interface{}{
		"type":     "book_deleted",
		"book_uid": book.ID.String(),
	})

	return c.NoContent(http.StatusNoContent)
}

func (h *BookHandler) SearchBooks(c echo.Context) error {
	ctx := c.Request().Context()

	// ES is nil when the search backend was unreachable at startup.
	if h.ES == nil {
		return apperr.ErrSearchUnavailable
	}

	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query parameter q")
	}
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, books, err := search.Search(ctx, h.ES, search.BookIndex, query, offset, limit)
	if err != nil {
		logging.FromContext(ctx).Error("book_search_failed", "error", err)
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": books,
		"meta": echo.Map{"page": page, "size": limit, "total": total},
	})
}

func (h *BookHandler) findBook(ctx context.Context, uid string) (*models.Book, error) {
	id, err := uuid.Parse(uid)
	if err != nil {
		return nil, apperr.ErrBookNotFound
	}

	var book models.Book
	if err := h.DB.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrBookNotFound
		}
		return nil, err
	}
	return &book, nil
}

func (h *BookHandler) index(c echo.Context, book *models.Book) {
	if h.ES == nil {
		return
	}
	ctx := c.Request().Context()
	if err := search.IndexBook(ctx, h.ES, search.BookIndex, book); err != nil {
		logging.FromContext(ctx).Error("book_index_failed", "error", err)
	}
}

func (h *BookHandler) publish(c echo.Context, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}
	ctx := c.Request().Context()
	if err := h.Producer.PublishEvent(ctx, events.TopicBookEvents, eventKey(event), event); err != nil {
		logging.FromContext(ctx).Error("event publish failed", "error", err)
	}
}

func eventKey(event map[string]interface{}) string {
	if v, ok := event["book_uid"].(string); ok {
		return v
	}
	return ""
}
