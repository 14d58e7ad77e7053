package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dimaskp/conduit-api/internal/domain/entity"
	repo "github.com/dimaskp/conduit-api/internal/domain/repository"
	"github.com/dimaskp/conduit-api/pkg/helpers"
)

type stubRepo struct {
	user *entity.User
	err  error
}

func (s *stubRepo) Create(context.Context, *entity.User) error { return nil }
func (s *stubRepo) Update(context.Context, *entity.User) error { return nil }
func (s *stubRepo) GetByEmail(context.Context, string) (*entity.User, error) {
	return nil, repo.ErrNotFound
}
func (s *stubRepo) GetByUsername(context.Context, string) (*entity.User, error) {
	return nil, repo.ErrNotFound
}
func (s *stubRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user != nil && s.user.ID == id {
		return s.user, nil
	}
	return nil, repo.ErrNotFound
}

func identityRig(t *testing.T, users repo.UserRepository, codec *helpers.TokenCodec) (*gin.Engine, *struct {
	user   *entity.User
	okFlag bool
}) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	seen := &struct {
		user   *entity.User
		okFlag bool
	}{}

	r := gin.New()
	r.Use(Identity(users, codec))
	r.GET("/probe", func(c *gin.Context) {
		seen.user, seen.okFlag = CurrentUser(c)
		c.Status(http.StatusOK)
	})
	return r, seen
}

func TestIdentity_AttachesUser(t *testing.T) {
	t.Parallel()

	codec := helpers.NewTokenCodec("secret")
	u := &entity.User{ID: "u1", Email: "a@x.com", Username: "alice"}
	r, seen := identityRig(t, &stubRepo{user: u}, codec)

	tok, err := codec.Issue("u1")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, seen.okFlag)
	assert.Equal(t, "alice", seen.user.Username)
}

func TestIdentity_NoHeader(t *testing.T) {
	t.Parallel()

	codec := helpers.NewTokenCodec("secret")
	r, seen := identityRig(t, &stubRepo{}, codec)

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, seen.okFlag)
}

func TestIdentity_MalformedHeader(t *testing.T) {
	t.Parallel()

	codec := helpers.NewTokenCodec("secret")
	tok, err := codec.Issue("u1")
	require.NoError(t, err)

	for _, header := range []string{
		"Token " + tok, // wrong scheme
		tok,            // no scheme at all
		"Bearer",       // prefix without token
		"bearer " + tok,
	} {
		r, seen := identityRig(t, &stubRepo{user: &entity.User{ID: "u1"}}, codec)
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", header)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, "header %q", header)
		assert.False(t, seen.okFlag, "header %q attached an identity", header)
	}
}

func TestIdentity_TamperedToken(t *testing.T) {
	t.Parallel()

	codec := helpers.NewTokenCodec("secret")
	tok, err := codec.Issue("u1")
	require.NoError(t, err)
	tampered := tok[:len(tok)-2] + "xx"

	r, seen := identityRig(t, &stubRepo{user: &entity.User{ID: "u1"}}, codec)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tampered)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, seen.okFlag)
}

func TestIdentity_DeletedUser(t *testing.T) {
	t.Parallel()

	codec := helpers.NewTokenCodec("secret")
	tok, err := codec.Issue("ghost")
	require.NoError(t, err)

	// Valid signature, but the store has no such user anymore.
	r, seen := identityRig(t, &stubRepo{}, codec)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, seen.okFlag)
}

func TestIdentity_StoreErrorSoftFails(t *testing.T) {
	t.Parallel()

	codec := helpers.NewTokenCodec("secret")
	tok, err := codec.Issue("u1")
	require.NoError(t, err)

	r, seen := identityRig(t, &stubRepo{err: errors.New("db down")}, codec)
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, seen.okFlag)
}
