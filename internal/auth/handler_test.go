package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/novelforge/novelforge/internal/auth"
	"github.com/novelforge/novelforge/internal/shared"
	_ "github.com/novelforge/novelforge/testing"
)

type stubRepo struct {
	users  []auth.User
	nextID int64
}

func (s *stubRepo) CreateUser(_ context.Context, user auth.User) (auth.User, error) {
	for _, u := range s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return auth.User{}, shared.ErrConflict
		}
	}
	s.nextID++
	user.ID = s.nextID
	user.IsActive = true
	s.users = append(s.users, user)
	return user, nil
}

func (s *stubRepo) FindByLogin(_ context.Context, login string) (auth.User, error) {
	for _, u := range s.users {
		if u.Username == auth.CanonicalUsername(login) || u.Email == auth.CanonicalEmail(login) {
			return u, nil
		}
	}
	return auth.User{}, shared.ErrNotFound
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (auth.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return auth.User{}, shared.ErrNotFound
}

func newRouter(t *testing.T, repo auth.Repository) http.Handler {
	t.Helper()
	codec := newCodec(t, "secret")
	csrf := shared.NewCSRFManager("csrf")
	service := auth.NewService(repo, codec, csrf, []string{"Root"})
	handler := auth.NewHandler(nil, service, false)
	authz, err := auth.NewAuthorizer(auth.CodecResolver{Codec: codec})
	require.NoError(t, err)
	mw := auth.Middleware{Authorizer: authz, CSRF: csrf}

	r := chi.NewRouter()
	r.Route("/api/auth", func(r chi.Router) {
		handler.MountRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireIdentity)
			handler.MountProtected(r)
		})
	})
	return r
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginAndMe(t *testing.T) {
	repo := &stubRepo{}
	router := newRouter(t, repo)

	rec := post(t, router, "/api/auth/register", `{"username":"Writer","email":"Writer@Example.com","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, repo.users, 1)
	assert.Equal(t, "writer", repo.users[0].Username)
	assert.Equal(t, "writer@example.com", repo.users[0].Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.users[0].PasswordHash), []byte("longenough")))

	rec = post(t, router, "/api/auth/login", `{"login":"writer@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var sess auth.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.NotEmpty(t, sess.Token)
	assert.NotEmpty(t, sess.CSRFToken)
	assert.Equal(t, shared.RoleUser, sess.User.Role)

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"username":"writer"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{}
	router := newRouter(t, repo)
	require.Equal(t, http.StatusCreated, post(t, router, "/api/auth/register", `{"username":"ana","email":"ana@example.com","password":"correctpass"}`).Code)

	rec := post(t, router, "/api/auth/login", `{"login":"ana","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid username or password")

	rec = post(t, router, "/api/auth/login", `{"login":"nobody","password":"wrongpass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterValidationAndConflict(t *testing.T) {
	router := newRouter(t, &stubRepo{})

	rec := post(t, router, "/api/auth/register", `{"username":"a","email":"nope","password":"short"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email"`)
	assert.Contains(t, rec.Body.String(), `"password"`)

	rec = post(t, router, "/api/auth/register", `{"username":"ana","email":"ana@example.com","password":"longenough","role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, http.StatusCreated, post(t, router, "/api/auth/register", `{"username":"ana","email":"ana@example.com","password":"longenough"}`).Code)
	rec = post(t, router, "/api/auth/register", `{"username":"ANA","email":"other@example.com","password":"longenough"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	repo := &stubRepo{}
	router := newRouter(t, repo)

	// 40 runes pass the rune-counting tag but encode to 80 bytes
	password := strings.Repeat("é", 40)
	rec := post(t, router, "/api/auth/register", `{"username":"ana","email":"ana@example.com","password":"`+password+`"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "72 bytes")
	assert.Empty(t, repo.users)

	password = strings.Repeat("é", 36)
	rec = post(t, router, "/api/auth/register", `{"username":"ana","email":"ana@example.com","password":"`+password+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestConfiguredAdminRegistersAsAdmin(t *testing.T) {
	repo := &stubRepo{}
	router := newRouter(t, repo)
	rec := post(t, router, "/api/auth/register", `{"username":"root","email":"root@example.com","password":"longenough"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, shared.RoleAdmin, repo.users[0].Role)
}

func TestMeRequiresIdentity(t *testing.T) {
	router := newRouter(t, &stubRepo{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
