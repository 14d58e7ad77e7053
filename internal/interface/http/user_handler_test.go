package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	userapp "github.com/dimaskp/conduit-api/internal/application"
	"github.com/dimaskp/conduit-api/internal/domain/entity"
	repo "github.com/dimaskp/conduit-api/internal/domain/repository"
	"github.com/dimaskp/conduit-api/internal/interface/middleware"
	"github.com/dimaskp/conduit-api/pkg/helpers"
	"github.com/dimaskp/conduit-api/pkg/validation"
)

type memRepo struct {
	mu     sync.Mutex
	users  map[string]*entity.User
	nextID int
}

func newMemRepo() *memRepo { return &memRepo{users: map[string]*entity.User{}} }

func (m *memRepo) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.users {
		if e.Email == u.Email {
			return repo.ErrDuplicateEmail
		}
		if e.Username == u.Username {
			return repo.ErrDuplicateUsername
		}
	}
	m.nextID++
	u.ID = fmt.Sprintf("id-%d", m.nextID)
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.ID == id })
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Email == email })
}

func (m *memRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	return m.find(func(u *entity.User) bool { return u.Username == username })
}

func (m *memRepo) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) find(match func(*entity.User) bool) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repo.ErrNotFound
}

func newTestRouter(t *testing.T) (*gin.Engine, *memRepo, *helpers.TokenCodec) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	r := newMemRepo()
	codec := helpers.NewTokenCodec("test-secret")
	svc := userapp.NewService(r, codec, nil, "", nil, nil, nil, "", nil, false)
	h := NewUserHandler(svc, nil)

	e := gin.New()
	api := e.Group("/api")
	api.Use(middleware.Identity(r, codec))
	api.POST("/users", h.Register)
	api.POST("/users/login", h.Login)
	api.GET("/user", h.Current)
	api.PUT("/user", h.Update)
	return e, r, codec
}

func doJSON(e *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestRegister_Scenario(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestRouter(t)
	w := doJSON(e, http.MethodPost, "/api/users", "",
		`{"user":{"email":"a@x.com","username":"alice","password":"secret123"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var res struct {
		User map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	assert.Equal(t, "alice", res.User["username"])
	assert.Equal(t, "a@x.com", res.User["email"])
	token, _ := res.User["token"].(string)
	assert.NotEmpty(t, token)
	_, hasPassword := res.User["password"]
	assert.False(t, hasPassword)
}

func TestRegister_DuplicateEmailCitesEmail(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestRouter(t)
	w := doJSON(e, http.MethodPost, "/api/users", "",
		`{"user":{"email":"a@x.com","username":"alice","password":"secret123"}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(e, http.MethodPost, "/api/users", "",
		`{"user":{"email":"a@x.com","username":"bob","password":"secret123"}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "user with given email already exists")
}

func TestRegister_InvalidPayload(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestRouter(t)
	w := doJSON(e, http.MethodPost, "/api/users", "",
		`{"user":{"email":"not-an-email","username":"alice","password":"short"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestRouter(t)
	w := doJSON(e, http.MethodPost, "/api/users", "",
		`{"user":{"email":"a@x.com","username":"alice","password":"secret123"}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(e, http.MethodPost, "/api/users/login", "",
		`{"user":{"email":"a@x.com","password":"secret123"}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)

	w = doJSON(e, http.MethodPost, "/api/users/login", "",
		`{"user":{"email":"a@x.com","password":"wrong-password"}}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestRouter(t)
	w := doJSON(e, http.MethodPost, "/api/users", "",
		`{"user":{"email":"a@x.com","username":"alice","password":"secret123"}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var res struct {
		User struct {
			Token string `json:"token"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	// Without a token the handler, not the middleware, rejects the request.
	w = doJSON(e, http.MethodGet, "/api/user", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(e, http.MethodGet, "/api/user", res.User.Token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	e, _, _ := newTestRouter(t)
	w := doJSON(e, http.MethodPost, "/api/users", "",
		`{"user":{"email":"a@x.com","username":"alice","password":"secret123"}}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var res struct {
		User struct {
			Token string `json:"token"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

	w = doJSON(e, http.MethodPut, "/api/user", res.User.Token,
		`{"user":{"bio":"gopher"}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"bio":"gopher"`)
}
