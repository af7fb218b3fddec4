package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-picker/internal/handler"
	"github.com/iliyamo/seat-picker/internal/repository"
	"github.com/iliyamo/seat-picker/internal/utils"
)

const operatorSecret = "op-secret"

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func newVenueServer(secret string) *echo.Echo {
	e := echo.New()
	RegisterVenues(e, handler.NewVenueHandler(repository.NewSeededVenueRepo()), passThrough, passThrough, secret)
	return e
}

func postVenue(e *echo.Echo, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/venues", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegisterVenues_CreateRequiresOperator(t *testing.T) {
	opToken, _, err := utils.NewOperatorToken(operatorSecret, "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	session, err := utils.NewSessionToken(operatorSecret, "sess-1", 1, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	foreign, _, err := utils.NewOperatorToken("other-secret", "mallory", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	const valid = `{"name":"Studio","config":{"A":[1,4,[],"Box"]}}`
	tests := []struct {
		name  string
		token string
		body  string
		want  int
	}{
		{"no token", "", valid, http.StatusUnauthorized},
		{"session token", session.Token, valid, http.StatusUnauthorized},
		{"token of another secret", foreign, valid, http.StatusUnauthorized},
		{"operator", opToken, valid, http.StatusCreated},
		{"operator with oversized row", opToken, `{"name":"huge","config":{"A":[1,2000000000,null,"Club"]}}`, http.StatusBadRequest},
		{"body over limit", opToken, `{"name":"big","config":{"A":[1,4,[],"` + strings.Repeat("x", 70*1024) + `"]}}`, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newVenueServer(operatorSecret)
			if rec := postVenue(e, tt.token, tt.body); rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestRegisterVenues_WritesDisabledWithoutSecret(t *testing.T) {
	e := newVenueServer("")
	opToken, _, err := utils.NewOperatorToken("anything", "alice", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if rec := postVenue(e, opToken, `{"name":"Studio","config":{"A":[1,4,[],"Box"]}}`); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/venues/1/layout", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("layout read status = %d", rec.Code)
	}
}
