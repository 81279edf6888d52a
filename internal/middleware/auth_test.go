package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"artisan-marketplace/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func testUser(role models.Role) *models.User {
	return &models.User{ID: uuid.New(), Email: "maker@example.com", Role: role}
}

func newGuardedRouter(roles ...models.Role) *gin.Engine {
	r := gin.New()
	r.GET("/guarded", AuthMiddleware(testSecret), RequireRole(roles...), func(c *gin.Context) {
		id, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"user": id.String(), "role": GetUserRole(c)})
	})
	return r
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestIssueAndParseToken(t *testing.T) {
	user := testUser(models.RoleArtisan)
	token, expiresAt, err := IssueToken(testSecret, user, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := ParseToken(testSecret, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, "artisan", claims.Role)
	assert.Equal(t, user.ID.String(), claims.Subject)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, _, err := IssueToken(testSecret, testUser(models.RoleCustomer), -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(testSecret, token)
	assert.Error(t, err)
}

func TestParseTokenRejectsUnknownRole(t *testing.T) {
	claims := &Claims{
		UserID: uuid.NewString(),
		Role:   "superuser",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseToken(testSecret, signed)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	admin := testUser(models.RoleAdmin)
	adminToken, _, err := IssueToken(testSecret, admin, time.Hour)
	require.NoError(t, err)
	customerToken, _, err := IssueToken(testSecret, testUser(models.RoleCustomer), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"wrong scheme", "Token " + adminToken, http.StatusUnauthorized, "INVALID_TOKEN_FORMAT"},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
		{"wrong role", "Bearer " + customerToken, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS"},
		{"admin allowed", "Bearer " + adminToken, http.StatusOK, ""},
	}

	router := newGuardedRouter(models.RoleAdmin, models.RoleArtisan)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, errorCode(t, w))
			} else {
				assert.Contains(t, w.Body.String(), admin.ID.String())
			}
		})
	}
}

func TestAuthMiddlewareAcceptsQueryTokenOnWebSocketUpgrade(t *testing.T) {
	token, _, err := IssueToken(testSecret, testUser(models.RoleArtisan), time.Hour)
	require.NoError(t, err)

	router := newGuardedRouter(models.RoleArtisan)

	req := httptest.NewRequest(http.MethodGet, "/guarded?token="+token, nil)
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// plain requests must still use the header
	req = httptest.NewRequest(http.MethodGet, "/guarded?token="+token, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	r := gin.New()
	r.GET("/public", OptionalAuth(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, string(GetUserRole(c)))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	token, _, err := IssueToken(testSecret, testUser(models.RoleCustomer), time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "customer", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Bearer broken")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}
