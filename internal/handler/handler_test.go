package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/softiel/backend/internal/auth"
	"github.com/softiel/backend/internal/config"
	"github.com/softiel/backend/internal/domain"
	"github.com/softiel/backend/internal/middleware"
	"github.com/softiel/backend/internal/repository"
	"github.com/softiel/backend/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	adminEmail    = "admin@softiel.com"
	adminPassword = "correct horse battery staple"
)

// memoryBlacklist is both the revoker and the middleware blacklist.
type memoryBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (b *memoryBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = ttl
	return nil
}

func (b *memoryBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[jti]
	return ok, nil
}

type testServer struct {
	app       *fiber.App
	db        *gorm.DB
	blacklist *memoryBlacklist
	blogID    uuid.UUID
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	} `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(domain.Models()...))

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	commentsCfg := config.CommentsConfig{
		AdminEmail:        adminEmail,
		AdminName:         "Softiel",
		AdminPasswordHash: string(hash),
		PreviewLength:     20,
	}
	jwtService := auth.NewJWTService(config.JWTConfig{AccessSecret: "handler-test", AccessExpiry: time.Hour})
	blacklist := &memoryBlacklist{revoked: map[string]time.Duration{}}
	validate := NewValidator()

	activitySvc := service.NewActivityService(repository.NewActivityRepository(db), nil)
	commentSvc := service.NewCommentService(
		repository.NewCommentRepository(db),
		repository.NewCommentLikeRepository(db),
		activitySvc,
		commentsCfg,
		nil,
	)

	app := fiber.New()
	RegisterRoutes(app.Group("/api/v1"), Handlers{
		Auth:     NewAuthHandler(jwtService, commentsCfg, blacklist, validate, nil),
		Comment:  NewCommentHandler(commentSvc, validate, 900, nil),
		Activity: NewActivityHandler(activitySvc, nil),
		Health:   NewHealthHandler(sqlDB, nil, nil, nil),
	}, middleware.NewAuthMiddleware(jwtService, blacklist))

	return &testServer{app: app, db: db, blacklist: blacklist, blogID: uuid.New()}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set(middleware.ViewerHeader, "test-viewer")

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

func (s *testServer) login(t *testing.T) string {
	status, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    adminEmail,
		"password": adminPassword,
	})
	require.Equal(t, fiber.StatusOK, status)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func (s *testServer) post(t *testing.T, parent *uuid.UUID, content string) uuid.UUID {
	body := map[string]interface{}{
		"author_name":  "Reader",
		"author_email": "reader@example.com",
		"content":      content,
	}
	if parent != nil {
		body["parent_id"] = parent.String()
	}
	status, env := s.do(t, http.MethodPost, "/api/v1/blogs/"+s.blogID.String()+"/comments", "", body)
	require.Equal(t, fiber.StatusCreated, status, "create failed: %+v", env.Error)

	var out struct {
		Comment struct {
			ID uuid.UUID `json:"id"`
		} `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	time.Sleep(2 * time.Millisecond)
	return out.Comment.ID
}

// ============================================================================
// Auth
// ============================================================================

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   map[string]string
		status int
		code   string
	}{
		{"wrong password", map[string]string{"email": adminEmail, "password": "nope"}, fiber.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"unknown email", map[string]string{"email": "reader@example.com", "password": adminPassword}, fiber.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"missing password", map[string]string{"email": adminEmail}, fiber.StatusBadRequest, "VALIDATION_ERROR"},
		{"email is case-insensitive", map[string]string{"email": "Admin@Softiel.com", "password": adminPassword}, fiber.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			assert.Equal(t, tt.status, status)
			if tt.code != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, s.blacklist.revoked, 1)

	status, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/v1/admin/comments/pending", "", nil)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)
}

// ============================================================================
// Public comments
// ============================================================================

func TestCreateComment_Validation(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/blogs/"+s.blogID.String()+"/comments", "", map[string]string{
		"author_name":  "Reader",
		"author_email": "not-an-email",
	})

	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	var fields []string
	for _, d := range env.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"author_email", "content"}, fields)
}

func TestCreateComment_ReservedEmail(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/blogs/"+s.blogID.String()+"/comments", "", map[string]string{
		"author_name":  "Impostor",
		"author_email": adminEmail,
		"content":      "official statement",
	})

	assert.Equal(t, fiber.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "RESERVED_EMAIL", env.Error.Code)
}

func TestCreateComment_InvalidBlogID(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, http.MethodGet, "/api/v1/blogs/not-a-uuid/comments", "", nil)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ID", env.Error.Code)
}

func TestReplyToPendingCommentIsRejected(t *testing.T) {
	s := newTestServer(t)
	root := s.post(t, nil, "first")

	status, env := s.do(t, http.MethodPost, "/api/v1/blogs/"+s.blogID.String()+"/comments", "", map[string]interface{}{
		"parent_id":    root.String(),
		"author_name":  "Reader",
		"author_email": "reader@example.com",
		"content":      "too early",
	})

	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)
}

func TestPublicListRedactsPendingContent(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	approvedID := s.post(t, nil, "visible")
	s.post(t, nil, "hidden until approved")

	status, _ := s.do(t, http.MethodPost, "/api/v1/admin/comments/"+approvedID.String()+"/approve", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env := s.do(t, http.MethodGet, "/api/v1/blogs/"+s.blogID.String()+"/comments", "", nil)
	require.Equal(t, fiber.StatusOK, status)

	var thread struct {
		Total    int `json:"total"`
		Comments []struct {
			Content string `json:"content"`
			State   string `json:"state"`
			Likes   *int   `json:"likes"`
		} `json:"comments"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &thread))
	require.Equal(t, 2, thread.Total)
	require.Len(t, thread.Comments, 2)

	assert.Equal(t, "visible", thread.Comments[0].Content)
	assert.NotNil(t, thread.Comments[0].Likes)
	assert.Equal(t, "pending", thread.Comments[1].State)
	assert.NotEqual(t, "hidden until approved", thread.Comments[1].Content)
	assert.Nil(t, thread.Comments[1].Likes)
}

func TestLikeFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	id := s.post(t, nil, "likeable")
	likePath := "/api/v1/comments/" + id.String() + "/like"

	status, env := s.do(t, http.MethodPost, likePath, "", nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status, "pending comments cannot be liked")
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/comments/"+id.String()+"/approve", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env = s.do(t, http.MethodPost, likePath, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var like struct {
		IsLiked   bool `json:"is_liked"`
		LikeCount int  `json:"like_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &like))
	assert.True(t, like.IsLiked)
	assert.Equal(t, 1, like.LikeCount)

	status, env = s.do(t, http.MethodPost, likePath, "", nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ALREADY_LIKED", env.Error.Code)

	status, env = s.do(t, http.MethodGet, "/api/v1/blogs/"+s.blogID.String()+"/comments", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var thread struct {
		LikedIDs []uuid.UUID `json:"liked_ids"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &thread))
	assert.Equal(t, []uuid.UUID{id}, thread.LikedIDs)

	status, env = s.do(t, http.MethodDelete, likePath, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &like))
	assert.False(t, like.IsLiked)
	assert.Equal(t, 0, like.LikeCount)

	status, _ = s.do(t, http.MethodPost, "/api/v1/comments/"+uuid.NewString()+"/like", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

// ============================================================================
// Moderation
// ============================================================================

func TestModeration(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	id := s.post(t, nil, "moderate me")
	base := "/api/v1/admin/comments/" + id.String()

	status, env := s.do(t, http.MethodGet, "/api/v1/admin/comments/pending", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var pending []struct {
		ID          uuid.UUID `json:"id"`
		AuthorEmail string    `json:"author_email"`
		Version     int       `json:"version"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "reader@example.com", pending[0].AuthorEmail)

	status, env = s.do(t, http.MethodPost, base+"/reject", token, map[string]int{"expected_version": pending[0].Version + 5})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "VERSION_CONFLICT", env.Error.Code)

	status, _ = s.do(t, http.MethodPost, base+"/reject", token, map[string]int{"expected_version": pending[0].Version})
	require.Equal(t, fiber.StatusOK, status)

	status, env = s.do(t, http.MethodPost, base+"/approve", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var approved struct {
		IsApproved bool `json:"is_approved"`
		IsRejected bool `json:"is_rejected"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &approved))
	assert.True(t, approved.IsApproved)
	assert.False(t, approved.IsRejected)

	status, _ = s.do(t, http.MethodPost, "/api/v1/admin/comments/"+uuid.NewString()+"/approve", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAdminReplyAndCascadeDelete(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	root := s.post(t, nil, "question")
	s.do(t, http.MethodPost, "/api/v1/admin/comments/"+root.String()+"/approve", token, nil)

	status, env := s.do(t, http.MethodPost, "/api/v1/admin/blogs/"+s.blogID.String()+"/comments/reply", token, map[string]string{
		"parent_id": root.String(),
		"content":   "official answer",
	})
	require.Equal(t, fiber.StatusCreated, status)
	var reply struct {
		Comment struct {
			ID   uuid.UUID `json:"id"`
			Role string    `json:"role"`
		} `json:"comment"`
		ReplyingTo *struct {
			AuthorName string `json:"author_name"`
		} `json:"replying_to"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &reply))
	assert.Equal(t, "admin", reply.Comment.Role)
	require.NotNil(t, reply.ReplyingTo)
	assert.Equal(t, "Reader", reply.ReplyingTo.AuthorName)

	status, env = s.do(t, http.MethodDelete, "/api/v1/admin/comments/"+root.String(), token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var removed struct {
		Removed int `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &removed))
	assert.Equal(t, 2, removed.Removed)

	var count int64
	require.NoError(t, s.db.Model(&domain.Comment{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAdminListRawView(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	s.post(t, nil, "raw")

	status, env := s.do(t, http.MethodGet, "/api/v1/admin/blogs/"+s.blogID.String()+"/comments?view=raw", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	var raw struct {
		Total int               `json:"total"`
		Nodes []json.RawMessage `json:"nodes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	assert.Equal(t, 1, raw.Total)
	assert.Len(t, raw.Nodes, 1)
}

func TestExportStreamsWorkbookWithoutStore(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	s.post(t, nil, "export me")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/blogs/"+s.blogID.String()+"/comments/export", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), ".xlsx")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")), "xlsx is a zip archive")
}

// ============================================================================
// Activities and health
// ============================================================================

func TestActivities(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)
	id := s.post(t, nil, "activity")
	s.do(t, http.MethodPost, "/api/v1/admin/comments/"+id.String()+"/approve", token, nil)

	var list []struct {
		ID     uuid.UUID `json:"id"`
		IsRead bool      `json:"is_read"`
	}
	require.Eventually(t, func() bool {
		status, env := s.do(t, http.MethodGet, "/api/v1/admin/activities?unread_only=true", token, nil)
		if status != fiber.StatusOK {
			return false
		}
		list = nil
		return json.Unmarshal(env.Data, &list) == nil && len(list) == 1
	}, 2*time.Second, 20*time.Millisecond)

	status, _ := s.do(t, http.MethodPatch, "/api/v1/admin/activities/"+list[0].ID.String()+"/read", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env := s.do(t, http.MethodGet, "/api/v1/admin/activities/count", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	var count struct {
		UnreadCount int64 `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &count))
	assert.Zero(t, count.UnreadCount)

	status, _ = s.do(t, http.MethodPatch, "/api/v1/admin/activities/read-all", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestCheckKafka_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.Error(t, checkKafka(ctx, []string{"127.0.0.1:1"}))
	assert.Error(t, checkKafka(ctx, nil))
}

func TestMarkUnknownActivity(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	status, env := s.do(t, http.MethodPatch, "/api/v1/admin/activities/"+uuid.NewString()+"/read", token, nil)

	assert.Equal(t, fiber.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ACTIVITY_NOT_FOUND", env.Error.Code)
}
