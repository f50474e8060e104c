package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/booklyapp/bookly/internal/blocklist"
	"github.com/booklyapp/bookly/internal/hash"
	"github.com/booklyapp/bookly/internal/middleware"
	"github.com/booklyapp/bookly/internal/models"
	"github.com/booklyapp/bookly/internal/signer"
	"github.com/booklyapp/bookly/internal/token"
)

type recordedEvent struct {
	Topic string
	Key   string
	Event interface{}
}

// fakePublisher records events in memory instead of writing to a broker.
type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakePublisher) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{Topic: topic, Key: key, Event: event})
	return nil
}

func (f *fakePublisher) byTopic(topic string) []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedEvent
	for _, ev := range f.events {
		if ev.Topic == topic {
			out = append(out, ev)
		}
	}
	return out
}

type testEnv struct {
	echo      *echo.Echo
	db        *gorm.DB
	codec     *token.Codec
	blocklist *blocklist.Blocklist
	signer    *signer.Signer
	producer  *fakePublisher

	auth    *AuthHandler
	books   *BookHandler
	reviews *ReviewHandler
	tags    *TagHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Book{}, &models.Review{}, &models.Tag{}))

	mr := miniredis.RunT(t)
	bl, err := blocklist.New(mr.Addr(), time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bl.Close() })

	codec := &token.Codec{Secret: []byte("test-secret")}
	sgn := signer.New("test-email-secret")
	producer := &fakePublisher{}

	return &testEnv{
		echo:      echo.New(),
		db:        db,
		codec:     codec,
		blocklist: bl,
		signer:    sgn,
		producer:  producer,
		auth: &AuthHandler{
			DB:         db,
			Codec:      codec,
			Blocklist:  bl,
			Signer:     sgn,
			Producer:   producer,
			Domain:     "localhost:8080",
			AccessTTL:  time.Hour,
			RefreshTTL: 48 * time.Hour,
		},
		books:   &BookHandler{DB: db, Producer: producer},
		reviews: &ReviewHandler{DB: db},
		tags:    &TagHandler{DB: db},
	}
}

// request builds an echo context carrying an optional JSON body. Path params
// are set afterwards by the caller.
func (env *testEnv) request(t *testing.T, method string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, "/", reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return env.echo.NewContext(req, rec), rec
}

func (env *testEnv) createUser(t *testing.T, email, password, role string, verified bool) *models.User {
	t.Helper()

	pwHash, err := hash.HashPassword(password)
	require.NoError(t, err)
	user := models.User{
		Username:     strings.SplitN(email, "@", 2)[0],
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: pwHash,
		IsVerified:   verified,
		Role:         role,
	}
	require.NoError(t, env.db.Create(&user).Error)
	return &user
}

func (env *testEnv) createBook(t *testing.T, owner *models.User, title string) *models.Book {
	t.Helper()

	book := models.Book{
		Title:         title,
		Author:        "Some Author",
		Publisher:     "Some Publisher",
		PublishedDate: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		PageCount:     300,
		Genre:         "fiction",
		Price:         19.99,
		UserID:        owner.ID,
	}
	require.NoError(t, env.db.Create(&book).Error)
	return &book
}

// asUser injects the resolved user and matching claims the way the auth
// middleware would after a successful access token check.
func asUser(c echo.Context, user *models.User) {
	middleware.SetClaims(c, &token.Claims{
		User: token.UserClaims{Email: user.Email, UID: user.ID.String(), Role: user.Role},
	})
	middleware.SetUser(c, user)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) error {
	t.Helper()
	return json.Unmarshal(rec.Body.Bytes(), dst)
}
