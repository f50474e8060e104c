package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/booklyapp/bookly/internal/apperr"
	"github.com/booklyapp/bookly/internal/models"
)

func (env *testEnv) createReview(t *testing.T, user *models.User, book *models.Book, rating int) *models.Review {
	t.Helper()

	review := models.Review{
		Rating:     rating,
		ReviewText: "fine",
		UserID:     user.ID,
		BookID:     book.ID,
	}
	require.NoError(t, env.db.Create(&review).Error)
	return &review
}

func TestCreateReview(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com", "s3cret", models.RoleUser, true)
	book := env.createBook(t, user, "Reviewed Book")

	c, rec := env.request(t, http.MethodPost, map[string]interface{}{
		"rating":      5,
		"review_text": "great read",
	})
	asUser(c, user)
	c.SetParamNames("book_uid")
	c.SetParamValues(book.ID.String())

	require.NoError(t, env.reviews.CreateReview(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var review models.Review
	require.NoError(t, env.db.Where("book_id = ?", book.ID).First(&review).Error)
	require.Equal(t, user.ID, review.UserID)
	require.Equal(t, 5, review.Rating)
}

func TestCreateReviewUnknownBook(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com", "s3cret", models.RoleUser, true)

	c, _ := env.request(t, http.MethodPost, map[string]interface{}{
		"rating":      3,
		"review_text": "ok",
	})
	asUser(c, user)
	c.SetParamNames("book_uid")
	c.SetParamValues(uuid.NewString())

	require.ErrorIs(t, env.reviews.CreateReview(c), apperr.ErrBookNotFound)
}

func TestCreateReviewRatingBounds(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "reader@example.com", "s3cret", models.RoleUser, true)
	book := env.createBook(t, user, "Reviewed Book")

	for _, rating := range []int{0, 6} {
		c, _ := env.request(t, http.MethodPost, map[string]interface{}{
			"rating":      rating,
			"review_text": "out of range",
		})
		asUser(c, user)
		c.SetParamNames("book_uid")
		c.SetParamValues(book.ID.String())

		require.Error(t, env.reviews.CreateReview(c), "rating %d", rating)
	}
}

func TestUpdateReviewOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com", "s3cret", models.RoleUser, true)
	other := env.createUser(t, "other@example.com", "s3cret", models.RoleUser, true)
	book := env.createBook(t, owner, "Reviewed Book")
	review := env.createReview(t, owner, book, 2)

	c, _ := env.request(t, http.MethodPut, map[string]interface{}{
		"rating":      4,
		"review_text": "changed my mind",
	})
	asUser(c, other)
	c.SetParamNames("uid")
	c.SetParamValues(review.ID.String())
	require.ErrorIs(t, env.reviews.UpdateReview(c), apperr.ErrReviewPermission)

	c, rec := env.request(t, http.MethodPut, map[string]interface{}{
		"rating":      4,
		"review_text": "changed my mind",
	})
	asUser(c, owner)
	c.SetParamNames("uid")
	c.SetParamValues(review.ID.String())
	require.NoError(t, env.reviews.UpdateReview(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Review
	require.NoError(t, env.db.First(&updated, "id = ?", review.ID).Error)
	require.Equal(t, 4, updated.Rating)
}

func TestDeleteReviewOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner@example.com", "s3cret", models.RoleUser, true)
	other := env.createUser(t, "other@example.com", "s3cret", models.RoleUser, true)
	book := env.createBook(t, owner, "Reviewed Book")
	review := env.createReview(t, owner, book, 2)

	c, _ := env.request(t, http.MethodDelete, nil)
	asUser(c, other)
	c.SetParamNames("uid")
	c.SetParamValues(review.ID.String())
	require.ErrorIs(t, env.reviews.DeleteReview(c), apperr.ErrReviewPermission)

	c, rec := env.request(t, http.MethodDelete, nil)
	asUser(c, owner)
	c.SetParamNames("uid")
	c.SetParamValues(review.ID.String())
	require.NoError(t, env.reviews.DeleteReview(c))
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGetReviewNotFound(t *testing.T) {
	env := newTestEnv(t)

	c, _ := env.request(t, http.MethodGet, nil)
	c.SetParamNames("uid")
	c.SetParamValues(uuid.NewString())
	require.ErrorIs(t, env.reviews.GetReview(c), apperr.ErrReviewNotFound)
}
