package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/kontak-api/internal/models"
	"github.com/noah-isme/kontak-api/internal/service"
)

type authRepoStub struct {
	user *models.User
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func newAuthServiceForTest(t *testing.T) (*service.AuthService, string) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := &authRepoStub{user: &models.User{
		ID:           "u-1",
		Email:        "ayu@example.com",
		PasswordHash: string(hash),
		Active:       true,
	}}
	svc := service.NewAuthService(repo, nil, nil, service.AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "kontak-api",
	})

	login, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "ayu@example.com",
		Password: "s3cret",
	})
	require.NoError(t, err)

	return svc, login.AccessToken
}

func protectedRouter(svc *service.AuthService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWT(svc), func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.JSON(http.StatusOK, gin.H{"uid": claims.UserID})
	})
	return r
}

func TestJWTAcceptsValidBearerToken(t *testing.T) {
	svc, token := newAuthServiceForTest(t)
	r := protectedRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u-1")
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	svc, _ := newAuthServiceForTest(t)
	r := protectedRouter(svc)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Token abc"},
		{"no token part", "Bearer"},
		{"forged token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		name, header := tc.name, tc.header
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	svc, token := newAuthServiceForTest(t)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/open", OptionalJWT(svc), func(c *gin.Context) {
		if claims, ok := c.Get(ContextUserKey); ok {
			c.JSON(http.StatusOK, gin.H{"uid": claims.(*models.JWTClaims).UserID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"uid": nil})
	})

	anon := httptest.NewRecorder()
	r.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/open", nil))
	assert.Equal(t, http.StatusOK, anon.Code)
	assert.Contains(t, anon.Body.String(), "null")

	authed := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(authed, req)
	assert.Equal(t, http.StatusOK, authed.Code)
	assert.Contains(t, authed.Body.String(), "u-1")
}
