package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"qwerty/api/middleware"
	"qwerty/api/models"
	"qwerty/api/store"
	"qwerty/api/utils"
)

// MockUserStore is a mock implementation of store.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) CreateUser(ctx context.Context, name, email, avatarURL string, hashedPassword []byte) (*models.User, error) {
	args := m.Called(ctx, name, email, avatarURL, hashedPassword)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserStore) UpdateName(ctx context.Context, id int, name string) (*models.User, error) {
	args := m.Called(ctx, id, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func testJWTManager() *utils.JWTManager {
	return utils.NewJWTManager("test-secret", time.Hour)
}

func setupAuthRouter(users store.UserStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	jwtManager := testJWTManager()
	h := NewAuthHandlers(users, jwtManager, zap.NewNop())
	router := gin.New()
	router.POST("/api/auth/register", h.Register)
	router.POST("/api/auth/login", h.Login)
	protected := router.Group("/api/auth", middleware.AuthRequired(jwtManager, zap.NewNop()))
	protected.GET("/profile", h.GetProfile)
	protected.PUT("/profile", h.UpdateProfile)
	return router
}

func authedRequest(method, path string, body interface{}, token string) *http.Request {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serveRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRegister_Success(t *testing.T) {
	mockUsers := new(MockUserStore)
	router := setupAuthRouter(mockUsers)

	created := &models.User{ID: 1, Name: "Ada", Email: "ada@example.com", AvatarURL: "https://api.dicebear.com/9.x/notionists/svg?seed=Ada"}
	mockUsers.On("CreateUser", mock.Anything, "Ada", "ada@example.com", mock.AnythingOfType("string"), mock.Anything).
		Return(created, nil)

	w := performRequest(router, http.MethodPost, "/api/auth/register", gin.H{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "password123",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
	user := data["user"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", user["email"])
	// The hashed password never serializes.
	assert.NotContains(t, user, "HashedPassword")
	mockUsers.AssertExpectations(t)
}

func TestRegister_ValidationFailures(t *testing.T) {
	mockUsers := new(MockUserStore)
	router := setupAuthRouter(mockUsers)

	cases := []gin.H{
		{"email": "ada@example.com", "password": "password123"},          // no name
		{"name": "Ada", "email": "not-an-email", "password": "password123"},
		{"name": "Ada", "email": "ada@example.com", "password": "short"}, // under 8 chars
	}
	for _, payload := range cases {
		w := performRequest(router, http.MethodPost, "/api/auth/register", payload)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	mockUsers.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	mockUsers := new(MockUserStore)
	router := setupAuthRouter(mockUsers)

	mockUsers.On("CreateUser", mock.Anything, "Ada", "ada@example.com", mock.Anything, mock.Anything).
		Return(nil, store.ErrDuplicateEmail)

	w := performRequest(router, http.MethodPost, "/api/auth/register", gin.H{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "password123",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Email is already registered", body["message"])
}

func TestLogin_Success(t *testing.T) {
	mockUsers := new(MockUserStore)
	router := setupAuthRouter(mockUsers)

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	mockUsers.On("GetUserByEmail", mock.Anything, "ada@example.com").
		Return(&models.User{ID: 1, Email: "ada@example.com", HashedPassword: hashed}, nil)

	w := performRequest(router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "ada@example.com",
		"password": "password123",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.NotEmpty(t, data["token"])
}

func TestLogin_WrongPasswordAndUnknownEmailLookSame(t *testing.T) {
	mockUsers := new(MockUserStore)
	router := setupAuthRouter(mockUsers)

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	mockUsers.On("GetUserByEmail", mock.Anything, "ada@example.com").
		Return(&models.User{ID: 1, Email: "ada@example.com", HashedPassword: hashed}, nil)
	mockUsers.On("GetUserByEmail", mock.Anything, "ghost@example.com").
		Return(nil, store.ErrNotFound)

	wrongPassword := performRequest(router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "ada@example.com",
		"password": "wrong-password",
	})
	unknownEmail := performRequest(router, http.MethodPost, "/api/auth/login", gin.H{
		"email":    "ghost@example.com",
		"password": "password123",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestGetProfile_RequiresAuth(t *testing.T) {
	mockUsers := new(MockUserStore)
	router := setupAuthRouter(mockUsers)

	w := performRequest(router, http.MethodGet, "/api/auth/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetProfile_Success(t *testing.T) {
	mockUsers := new(MockUserStore)
	router := setupAuthRouter(mockUsers)

	user := &models.User{ID: 7, Name: "Ada", Email: "ada@example.com"}
	mockUsers.On("GetUserByID", mock.Anything, 7).Return(user, nil)

	token, err := testJWTManager().Generate(user)
	require.NoError(t, err)

	req := authedRequest(http.MethodGet, "/api/auth/profile", nil, token)
	w := serveRequest(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	profile := data["user"].(map[string]interface{})
	assert.Equal(t, float64(7), profile["id"])
}

func TestUpdateProfile_Success(t *testing.T) {
	mockUsers := new(MockUserStore)
	router := setupAuthRouter(mockUsers)

	user := &models.User{ID: 7, Name: "Ada", Email: "ada@example.com"}
	renamed := &models.User{ID: 7, Name: "Ada L", Email: "ada@example.com"}
	mockUsers.On("UpdateName", mock.Anything, 7, "Ada L").Return(renamed, nil)

	token, err := testJWTManager().Generate(user)
	require.NoError(t, err)

	req := authedRequest(http.MethodPut, "/api/auth/profile", gin.H{"name": "Ada L"}, token)
	w := serveRequest(router, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	profile := data["user"].(map[string]interface{})
	assert.Equal(t, "Ada L", profile["name"])
	mockUsers.AssertExpectations(t)
}
