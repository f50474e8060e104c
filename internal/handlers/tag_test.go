package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/booklyapp/bookly/internal/apperr"
	"github.com/booklyapp/bookly/internal/models"
)

func TestCreateTag(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(t, http.MethodPost, map[string]string{"name": "classics"})
	require.NoError(t, env.tags.CreateTag(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var tag models.Tag
	require.NoError(t, env.db.Where("name = ?", "classics").First(&tag).Error)
}

func TestCreateTagDuplicate(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&models.Tag{Name: "classics"}).Error)

	c, _ := env.request(t, http.MethodPost, map[string]string{"name": "classics"})
	require.ErrorIs(t, env.tags.CreateTag(c), apperr.ErrTagAlreadyExists)
}

func TestUpdateTag(t *testing.T) {
	env := newTestEnv(t)
	tag := models.Tag{Name: "clasics"}
	require.NoError(t, env.db.Create(&tag).Error)

	c, rec := env.request(t, http.MethodPut, map[string]string{"name": "classics"})
	c.SetParamNames("uid")
	c.SetParamValues(tag.ID.String())
	require.NoError(t, env.tags.UpdateTag(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated models.Tag
	require.NoError(t, env.db.First(&updated, "id = ?", tag.ID).Error)
	require.Equal(t, "classics", updated.Name)
}

func TestDeleteTag(t *testing.T) {
	env := newTestEnv(t)
	tag := models.Tag{Name: "doomed"}
	require.NoError(t, env.db.Create(&tag).Error)

	c, rec := env.request(t, http.MethodDelete, nil)
	c.SetParamNames("uid")
	c.SetParamValues(tag.ID.String())
	require.NoError(t, env.tags.DeleteTag(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = env.request(t, http.MethodDelete, nil)
	c.SetParamNames("uid")
	c.SetParamValues(tag.ID.String())
	require.ErrorIs(t, env.tags.DeleteTag(c), apperr.ErrTagNotFound)
}

func TestAddTagsToBookCreatesMissing(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "owner@example.com", "s3cret", models.RoleUser, true)
	book := env.createBook(t, user, "Tagged Book")
	require.NoError(t, env.db.Create(&models.Tag{Name: "existing"}).Error)

	c, rec := env.request(t, http.MethodPost, map[string]interface{}{
		"tags": []map[string]string{
			{"name": "existing"},
			{"name": "brand-new"},
		},
	})
	c.SetParamNames("book_uid")
	c.SetParamValues(book.ID.String())

	require.NoError(t, env.tags.AddTagsToBook(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var full models.Book
	require.NoError(t, env.db.Preload("Tags").First(&full, "id = ?", book.ID).Error)
	require.Len(t, full.Tags, 2)

	var count int64
	require.NoError(t, env.db.Model(&models.Tag{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestAddTagsToBookUnknownBook(t *testing.T) {
	env := newTestEnv(t)

	c, _ := env.request(t, http.MethodPost, map[string]interface{}{
		"tags": []map[string]string{{"name": "x"}},
	})
	c.SetParamNames("book_uid")
	c.SetParamValues(uuid.NewString())
	require.ErrorIs(t, env.tags.AddTagsToBook(c), apperr.ErrBookNotFound)
}
