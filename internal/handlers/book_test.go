package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/booklyapp/bookly/internal/apperr"
	"github.com/booklyapp/bookly/internal/events"
	"github.com/booklyapp/bookly/internal/models"
)

func TestCreateBook(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@example.com", "s3cret", models.RoleUser, true)

	c, rec := env.request(t, http.MethodPost, map[string]interface{}{
		"title":          "The Go Programming Language",
		"author":         "Donovan and Kernighan",
		"publisher":      "Addison-Wesley",
		"published_date": "2015-10-26",
		"page_count":     380,
		"genre":          "programming",
		"price":          39.99,
	})
	asUser(c, user)

	require.NoError(t, env.books.CreateBook(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var book models.Book
	require.NoError(t, env.db.Where("title = ?", "The Go Programming Language").First(&book).Error)
	require.Equal(t, user.ID, book.UserID)
	require.Equal(t, 2015, book.PublishedDate.Year())

	published := env.producer.byTopic(events.TopicBookEvents)
	require.Len(t, published, 1)
	require.Equal(t, book.ID.String(), published[0].Key)
}

func TestCreateBookRejectsBadDate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@example.com", "s3cret", models.RoleUser, true)

	c, _ := env.request(t, http.MethodPost, map[string]interface{}{
		"title":          "Bad Date",
		"author":         "x",
		"publisher":      "x",
		"published_date": "26-10-2015",
	})
	asUser(c, user)

	err := env.books.CreateBook(c)
	require.Error(t, err)
	require.NotErrorIs(t, err, apperr.ErrInternal)
}

func TestGetBooksPaginated(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@example.com", "s3cret", models.RoleUser, true)
	for i := 0; i < 15; i++ {
		env.createBook(t, user, fmt.Sprintf("Book %02d", i))
	}

	c, rec := env.request(t, http.MethodGet, nil)
	c.QueryParams().Set("page", "2")
	c.QueryParams().Set("size", "10")

	require.NoError(t, env.books.GetBooks(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	data := body["data"].([]interface{})
	require.Len(t, data, 5)

	meta := body["meta"].(map[string]interface{})
	require.EqualValues(t, 15, meta["total"])
	require.EqualValues(t, 2, meta["total_pages"])
	require.Equal(t, true, meta["has_prev"])
	require.Equal(t, false, meta["has_next"])
}

func TestGetUserBooks(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com", "s3cret", models.RoleUser, true)
	other := env.createUser(t, "other@example.com", "s3cret", models.RoleUser, true)
	env.createBook(t, owner, "Mine")
	env.createBook(t, other, "Theirs")

	c, rec := env.request(t, http.MethodGet, nil)
	c.SetParamNames("user_uid")
	c.SetParamValues(owner.ID.String())

	require.NoError(t, env.books.GetUserBooks(c))

	var items []models.Book
	require.NoError(t, decodeInto(t, rec, &items))
	require.Len(t, items, 1)
	require.Equal(t, "Mine", items[0].Title)
}

func TestGetBookNotFound(t *testing.T) {
	env := newTestEnv(t)

	c, _ := env.request(t, http.MethodGet, nil)
	c.SetParamNames("uid")
	c.SetParamValues(uuid.NewString())
	require.ErrorIs(t, env.books.GetBook(c), apperr.ErrBookNotFound)

	c, _ = env.request(t, http.MethodGet, nil)
	c.SetParamNames("uid")
	c.SetParamValues("not-a-uuid")
	require.ErrorIs(t, env.books.GetBook(c), apperr.ErrBookNotFound)
}

func TestPatchBook(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@example.com", "s3cret", models.RoleUser, true)
	book := env.createBook(t, user, "Old Title")

	c, rec := env.request(t, http.MethodPatch, map[string]interface{}{
		"title":      "New Title",
		"author":     "New Author",
		"publisher":  "New Publisher",
		"page_count": 111,
		"genre":      "updated",
		"price":      9.99,
	})
	c.SetParamNames("uid")
	c.SetParamValues(book.ID.String())

	require.NoError(t, env.books.PatchBook(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Book
	require.NoError(t, env.db.First(&updated, "id = ?", book.ID).Error)
	require.Equal(t, "New Title", updated.Title)
	require.Equal(t, 111, updated.PageCount)
}

func TestDeleteBook(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@example.com", "s3cret", models.RoleUser, true)
	book := env.createBook(t, user, "Doomed")

	c, rec := env.request(t, http.MethodDelete, nil)
	c.SetParamNames("uid")
	c.SetParamValues(book.ID.String())

	require.NoError(t, env.books.DeleteBook(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, env.db.Model(&models.Book{}).Where("id = ?", book.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestSearchBooksRequiresQuery(t *testing.T) {
	env := newTestEnv(t)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{"http://localhost:9200"}})
	require.NoError(t, err)
	books := &BookHandler{DB: env.db, ES: es}

	c, _ := env.request(t, http.MethodGet, nil)
	require.Error(t, books.SearchBooks(c))
}

// Without a search backend the endpoint must answer cleanly, not panic on the
// nil client.
func TestSearchBooksUnavailableWithoutBackend(t *testing.T) {
	env := newTestEnv(t)
	require.Nil(t, env.books.ES)

	c, _ := env.request(t, http.MethodGet, nil)
	c.QueryParams().Set("q", "dune")

	require.ErrorIs(t, env.books.SearchBooks(c), apperr.ErrSearchUnavailable)
}
