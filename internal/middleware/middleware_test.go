package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campus-sim/internal/models"
	appErrors "github.com/noah-isme/campus-sim/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

type observed struct {
	method, path string
	status       int
}

type recordingObserver struct {
	calls []observed
}

func (r *recordingObserver) ObserveHTTPRequest(method, path string, status int, _ time.Duration) {
	r.calls = append(r.calls, observed{method, path, status})
}

func newRouter(role models.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	v := stubValidator{claims: &models.JWTClaims{Role: role, RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}}}
	r.POST("/advance-week", JWT(v), RequireRoles(models.RoleAdmin), func(c *gin.Context) {
		c.String(http.StatusOK, ClaimsFromContext(c).Subject)
	})
	return r
}

func serve(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/advance-week", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAndRoles(t *testing.T) {
	admin := newRouter(models.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, serve(admin, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(admin, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(admin, "Bearer bad").Code)

	w := serve(admin, "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", w.Body.String())

	viewer := newRouter(models.RoleViewer)
	assert.Equal(t, http.StatusForbidden, serve(viewer, "bearer good").Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/advance-week", RequireRoles(models.RoleAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(Metrics(obs))
	r.GET("/periods/:code/risks", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/periods/2020SP/risks", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	if assert.Len(t, obs.calls, 2) {
		assert.Equal(t, observed{http.MethodGet, "/periods/:code/risks", http.StatusOK}, obs.calls[0])
		assert.Equal(t, observed{http.MethodGet, "unmatched", http.StatusNotFound}, obs.calls[1])
	}
}
