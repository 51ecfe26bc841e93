package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func whoami(c *gin.Context) {
	uid, _ := c.Get("user_id")
	role, _ := c.Get("role")
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "role": role})
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/me", whoami)
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	r := newRouter(JWTAuth(JWTConfig{Secret: secret, Audience: "authenticated"}))
	valid := jwt.MapClaims{
		"sub":          "user-1",
		"aud":          "authenticated",
		"exp":          time.Now().Add(time.Hour).Unix(),
		"app_metadata": map[string]any{"role": "recruiter"},
	}

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, valid, secret))
		w := do(r, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":"user-1","role":"recruiter"}`, w.Body.String())
	})

	t.Run("missing token", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "missing bearer token")
	})

	t.Run("wrong key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, valid, "other"))
		assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
	})

	t.Run("expired", func(t *testing.T) {
		c := jwt.MapClaims{"sub": "user-1", "aud": "authenticated", "exp": time.Now().Add(-time.Minute).Unix()}
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, c, secret))
		assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
	})

	t.Run("wrong audience", func(t *testing.T) {
		c := jwt.MapClaims{"sub": "user-1", "aud": "anon", "exp": time.Now().Add(time.Hour).Unix()}
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, c, secret))
		w := do(r, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "audience")
	})

	t.Run("default role", func(t *testing.T) {
		c := jwt.MapClaims{"sub": "user-2", "aud": "authenticated", "exp": time.Now().Add(time.Hour).Unix()}
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+sign(t, c, secret))
		assert.JSONEq(t, `{"user_id":"user-2","role":"user"}`, do(r, req).Body.String())
	})

	t.Run("websocket query token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me?access_token="+sign(t, valid, secret), nil)
		req.Header.Set("Upgrade", "websocket")
		assert.Equal(t, http.StatusOK, do(r, req).Code)

		plain := httptest.NewRequest(http.MethodGet, "/me?access_token="+sign(t, valid, secret), nil)
		assert.Equal(t, http.StatusUnauthorized, do(r, plain).Code)
	})
}

func TestJWTAuth_OpenMode(t *testing.T) {
	r := newRouter(JWTAuth(JWTConfig{}))

	w := do(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":null,"role":"user"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-User-Role", "admin")
	assert.JSONEq(t, `{"user_id":null,"role":"admin"}`, do(r, req).Body.String())
}

func TestRequireRole(t *testing.T) {
	setRole := func(role string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if role != "" {
				c.Set("role", role)
			}
			c.Next()
		}
	}

	for role, want := range map[string]int{
		"Recruiter": http.StatusOK,
		"admin":     http.StatusOK,
		"user":      http.StatusForbidden,
		"":          http.StatusForbidden,
	} {
		r := newRouter(setRole(role), RequireRole("recruiter", "partner", "admin"))
		assert.Equal(t, want, do(r, httptest.NewRequest(http.MethodGet, "/me", nil)).Code, role)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://app.example"})(newRouter())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Origin", "https://app.example")
	w := do(h, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "X-Request-Id", w.Header().Get("Access-Control-Expose-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Origin", "https://evil.example")
	assert.Empty(t, do(h, req).Header().Get("Access-Control-Allow-Origin"))

	// preflight is answered without reaching the router
	req = httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w = do(h, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestCORS_Wildcard(t *testing.T) {
	h := CORS([]string{"*"})(newRouter())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Origin", "https://anything.example")
	assert.Equal(t, "*", do(h, req).Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	r := newRouter(RequestLogger(log))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("X-Request-Id", "req-1")
	w := do(r, req)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-Id"))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "req-1", entry.Data["request_id"])
	assert.Equal(t, "/me", entry.Data["path"])

	do(r, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}
