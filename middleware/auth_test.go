package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/models"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/repository"
	"github.com/purnasaisrinivasbusam-arch/car-inventory1/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newUser(t *testing.T, users *repository.MemoryUserRepo, email, role, status string) *models.User {
	t.Helper()
	u := &models.User{Name: "Test User", Email: email, Password: "hash", Role: role, Status: status}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func authRouter(tokens *utils.TokenIssuer, users repository.UserRepository) *gin.Engine {
	r := gin.New()
	authed := r.Group("", Auth(tokens, users, zap.NewNop()))
	authed.GET("/me", func(c *gin.Context) {
		u := CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"email": u.Email, "password": u.Password})
	})
	authed.GET("/admin", RequireAdmin(users), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	users := repository.NewMemoryUserRepo()
	tokens := utils.NewTokenIssuer("secret", time.Hour, time.Hour, nil)
	verified := newUser(t, users, "user@example.com", models.RoleUser, models.StatusVerified)
	pending := newUser(t, users, "pending@example.com", models.RoleUser, models.StatusPending)
	r := authRouter(tokens, users)

	sign := func(id primitive.ObjectID) string {
		tok, err := tokens.GenerateJWT(id.Hex(), models.RoleUser)
		require.NoError(t, err)
		return tok
	}
	reset, err := tokens.GenerateResetToken(verified.ID.Hex(), verified.Email, verified.Password)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
		body   string
	}{
		{"no header", "", http.StatusUnauthorized, `{"message":"Unauthorized"}`},
		{"not bearer", "Basic abc", http.StatusUnauthorized, `{"message":"Unauthorized"}`},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, `{"message":"Invalid token"}`},
		{"reset token", "Bearer " + reset, http.StatusUnauthorized, `{"message":"Invalid token"}`},
		{"pending user", "Bearer " + sign(pending.ID), http.StatusUnauthorized, `{"message":"Invalid token"}`},
		{"unknown user", "Bearer " + sign(primitive.NewObjectID()), http.StatusUnauthorized, `{"message":"Invalid token"}`},
		{"valid", "Bearer " + sign(verified.ID), http.StatusOK, `{"email":"user@example.com","password":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestRequireAdminReadsRoleFromStore(t *testing.T) {
	users := repository.NewMemoryUserRepo()
	tokens := utils.NewTokenIssuer("secret", time.Hour, time.Hour, nil)
	admin := newUser(t, users, "admin@example.com", models.RoleAdmin, models.StatusVerified)
	user := newUser(t, users, "user@example.com", models.RoleUser, models.StatusVerified)
	r := authRouter(tokens, users)

	adminTok, err := tokens.GenerateJWT(admin.ID.Hex(), models.RoleAdmin)
	require.NoError(t, err)
	w := get(r, "/admin", adminTok)
	assert.Equal(t, http.StatusNoContent, w.Code)

	// a token claiming admin does not help a plain user
	forged, err := tokens.GenerateJWT(user.ID.Hex(), models.RoleAdmin)
	require.NoError(t, err)
	w = get(r, "/admin", forged)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"Access denied. Admin only."}`, w.Body.String())
}
