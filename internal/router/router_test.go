package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"dialdesk/internal/model"
)

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name       string
		identity   *model.UserIdentity
		allowed    []model.UserRole
		wantStatus int
		wantNext   bool
	}{
		{
			name:       "role allowed",
			identity:   &model.UserIdentity{ID: 1, Role: model.RoleAdmin},
			allowed:    []model.UserRole{model.RoleAdmin, model.RoleManager},
			wantStatus: http.StatusOK,
			wantNext:   true,
		},
		{
			name:       "role denied",
			identity:   &model.UserIdentity{ID: 2, Role: model.RoleUser},
			allowed:    []model.UserRole{model.RoleAdmin},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "no identity in context",
			identity:   nil,
			allowed:    []model.UserRole{model.RoleAdmin},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			if tt.identity != nil {
				c.Set("user", tt.identity)
			}

			nextCalled := false
			next := func(c echo.Context) error {
				nextCalled = true
				return c.String(http.StatusOK, "ok")
			}

			err := RequireRoles(tt.allowed...)(next)(c)

			assert.Equal(t, tt.wantNext, nextCalled)
			if tt.wantNext {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantStatus, rec.Code)
			} else {
				httpErr, ok := err.(*echo.HTTPError)
				assert.True(t, ok)
				assert.Equal(t, tt.wantStatus, httpErr.Code)
			}
		})
	}
}
