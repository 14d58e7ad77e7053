package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dimaskp/conduit-api/internal/domain/entity"
	repo "github.com/dimaskp/conduit-api/internal/domain/repository"
	"github.com/dimaskp/conduit-api/pkg/helpers"
	"github.com/dimaskp/conduit-api/pkg/mailer"
	"github.com/dimaskp/conduit-api/pkg/response"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// ValidationError reports a registration-time uniqueness collision. It is a
// client fault and maps to a 4xx response at the HTTP boundary.
type ValidationError struct {
	Field string // "email" or "username"
}

func (e *ValidationError) Error() string {
	return "user with given " + e.Field + " already exists"
}

// Service orchestrates credential issuance and profile operations.
// Redis, GCS, ES, and the publisher are optional; their side effects are
// best-effort and never fail the main flow.
type Service struct {
	Repo         repo.UserRepository
	Codec        *helpers.TokenCodec
	GCS          *storage.Client
	GCSBucket    string
	Redis        *redis.Client
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
	Pub          *helpers.RabbitPublisher
	MailEnabled  bool
}

func NewService(repo repo.UserRepository, codec *helpers.TokenCodec, gcs *storage.Client, gcsBucket string, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string, pub *helpers.RabbitPublisher, mailEnabled bool) *Service {
	return &Service{
		Repo:         repo,
		Codec:        codec,
		GCS:          gcs,
		GCSBucket:    gcsBucket,
		Redis:        rdb,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
		Pub:          pub,
		MailEnabled:  mailEnabled,
	}
}

func lastAuthKey(userID string) string {
	return "user:lastauth:" + userID
}

func profileKey(userID string) string {
	return "user:profile:" + userID
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Register creates a new user. Email and username are probed concurrently and
// a collision yields a *ValidationError naming the field, email first when
// both collide. The unique indexes remain the authoritative guard: a
// write-time violation resolves to the same error.
func (s *Service) Register(ctx context.Context, email, username, password string) (*entity.User, error) {
	var byEmail, byUsername *entity.User

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		byEmail, err = s.probe(gctx, s.Repo.GetByEmail, email)
		return err
	})
	g.Go(func() error {
		var err error
		byUsername, err = s.probe(gctx, s.Repo.GetByUsername, username)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if byEmail != nil {
		return nil, &ValidationError{Field: "email"}
	}
	if byUsername != nil {
		return nil, &ValidationError{Field: "username"}
	}

	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{Email: email, Username: username, Password: hash}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, mapDuplicate(err)
	}

	// Best-effort after-effects; registration already succeeded.
	_ = s.indexUser(ctx, u)
	s.enqueueWelcome(ctx, u)

	return u, nil
}

// probe runs a uniqueness lookup where absence is the happy path.
func (s *Service) probe(ctx context.Context, lookup func(context.Context, string) (*entity.User, error), key string) (*entity.User, error) {
	u, err := lookup(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func mapDuplicate(err error) error {
	switch {
	case errors.Is(err, repo.ErrDuplicateEmail):
		return &ValidationError{Field: "email"}
	case errors.Is(err, repo.ErrDuplicateUsername):
		return &ValidationError{Field: "username"}
	}
	return err
}

// BuildAuthResponse issues a token for the user and returns the public view.
// Token issuance failure is the only failure path.
func (s *Service) BuildAuthResponse(ctx context.Context, u *entity.User) (response.UserEnvelope, error) {
	token, err := s.Codec.Issue(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("token issuance failed")
		}
		return response.UserEnvelope{}, err
	}

	if s.Redis != nil {
		fields := map[string]any{
			"user_id":   u.ID,
			"email":     u.Email,
			"username":  u.Username,
			"issued_at": nowRFC3339(),
		}
		key := lastAuthKey(u.ID)
		pipe := s.Redis.Pipeline()
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, 24*time.Hour)
		if _, rErr := pipe.Exec(ctx); rErr != nil && s.Logger != nil {
			s.Logger.WithError(rErr).WithField("key", key).Warn("redis pipeline failed")
		}
	}

	return response.NewUser(u, token), nil
}

// Login verifies email/password. Any mismatch, including an unknown email,
// reports ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}
	if !helpers.CheckPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// cachedProfile is the redis representation of a profile. The password hash
// is deliberately absent; cache hits return an entity with an empty hash.
type cachedProfile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

// GetProfile loads a user by id, reading through a short-lived redis cache.
func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	if s.Redis != nil {
		var cp cachedProfile
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, profileKey(userID), &cp); err == nil && ok {
			return &entity.User{ID: cp.ID, Email: cp.Email, Username: cp.Username, Bio: cp.Bio, Image: cp.Image}, nil
		}
	}

	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}

	if s.Redis != nil {
		cp := cachedProfile{ID: u.ID, Email: u.Email, Username: u.Username, Bio: u.Bio, Image: u.Image}
		if err := helpers.RedisSetJSON(ctx, s.Redis, profileKey(u.ID), cp, 5*time.Minute); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("profile cache write failed")
		}
	}

	return u, nil
}

type UpdateProfileInput struct {
	Email    string
	Username string
	Bio      string
	Image    string
	Password string
}

// UpdateProfile applies the non-empty fields of in to the user. Email and
// username changes go through the same uniqueness mapping as registration.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if in.Email != "" {
		u.Email = in.Email
	}
	if in.Username != "" {
		u.Username = in.Username
	}
	if in.Bio != "" {
		u.Bio = in.Bio
	}
	if in.Image != "" {
		u.Image = in.Image
	}
	if in.Password != "" {
		hash, hErr := helpers.HashPassword(in.Password)
		if hErr != nil {
			return nil, hErr
		}
		u.Password = hash
	}
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, mapDuplicate(err)
	}

	if s.Redis != nil {
		if err := helpers.RedisDel(ctx, s.Redis, profileKey(u.ID)); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("profile cache invalidation failed")
		}
	}

	_ = s.indexUser(ctx, u)
	return u, nil
}

// UploadImage stores an avatar in GCS and records its public URL on the profile.
func (s *Service) UploadImage(ctx context.Context, userID string, r io.Reader, filename, contentType string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if s.GCS == nil || s.GCSBucket == "" {
		return nil, errors.New("gcs not configured")
	}

	id := uuid.NewString()
	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, id+ext))
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, contentType, r)
	if err != nil {
		return nil, err
	}

	return s.UpdateProfile(ctx, userID, UpdateProfileInput{Image: url})
}

func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"username":   u.Username,
		"bio":        u.Bio,
		"image":      u.Image,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}

func (s *Service) enqueueWelcome(ctx context.Context, u *entity.User) {
	if s.Pub == nil || !s.MailEnabled {
		return
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: mailer.TemplateWelcome,
		Data:     map[string]any{"Username": u.Username, "Email": u.Email},
	}
	if err := s.Pub.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("welcome email enqueue failed")
	}
}

// SearchUsers performs a simple multi_match search on username, email, and bio.
func (s *Service) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"username^2", "email", "bio"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		// never expose email addresses through search results
		delete(h.Source, "email")
		out = append(out, h.Source)
	}
	return out, nil
}
