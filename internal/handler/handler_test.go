package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-picker/internal/layout"
	"github.com/iliyamo/seat-picker/internal/middleware"
	"github.com/iliyamo/seat-picker/internal/queue"
	"github.com/iliyamo/seat-picker/internal/repository"
	"github.com/iliyamo/seat-picker/internal/session"
)

const testSecret = "test-secret"

type stubPublisher struct {
	mu     sync.Mutex
	events []queue.SelectionCompletedEvent
	err    error
}

func (p *stubPublisher) PublishSelectionCompleted(_ context.Context, ev queue.SelectionCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

type testServer struct {
	e        *echo.Echo
	sessions *session.Store
	pub      *stubPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	venues := repository.NewSeededVenueRepo()
	sessions := session.NewStore(time.Minute)
	pub := &stubPublisher{}

	e := echo.New()
	vh := NewVenueHandler(venues)
	e.GET("/v1/venues", vh.ListVenues)
	e.POST("/v1/venues", vh.CreateVenue)
	e.GET("/v1/venues/:id/layout", vh.GetLayout)

	sh := NewSelectionHandler(venues, sessions, testSecret, time.Minute, pub)
	e.POST("/v1/sessions", sh.CreateSession)
	g := e.Group("/v1/session", middleware.SessionAuth(testSecret))
	g.GET("", sh.GetState)
	g.PUT("/quantity", sh.SetQuantity)
	g.POST("/clicks", sh.Click)
	g.DELETE("", sh.DeleteSession)

	return &testServer{e: e, sessions: sessions, pub: pub}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec, out
}

func (s *testServer) open(t *testing.T) string {
	t.Helper()
	rec, out := s.do(t, http.MethodPost, "/v1/sessions", "", `{"venue_id":1}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("open session: status %d body %s", rec.Code, rec.Body.String())
	}
	tok, _ := out["token"].(string)
	if tok == "" {
		t.Fatalf("open session: no token in %v", out)
	}
	return tok
}

func labels(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, _ := it.(string)
		out = append(out, s)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListVenues(t *testing.T) {
	s := newTestServer(t)
	rec, out := s.do(t, http.MethodGet, "/v1/venues", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if out["count"] != float64(1) {
		t.Fatalf("count = %v", out["count"])
	}
	item := out["items"].([]any)[0].(map[string]any)
	if item["name"] != "Demo Hall" || item["rows"] != float64(10) {
		t.Fatalf("item = %v", item)
	}
}

func TestCreateVenue(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"ok", `{"name":"Studio","config":{"A":[1,4,[2],"Box"],"B":[1,6]}}`, http.StatusCreated},
		{"missing name", `{"config":{"A":[1,4,[],"Box"]}}`, http.StatusBadRequest},
		{"missing config", `{"name":"Studio"}`, http.StatusBadRequest},
		{"first row without class", `{"name":"Studio","config":{"A":[1,4]}}`, http.StatusBadRequest},
		{"inverted range", `{"name":"Studio","config":{"A":[9,4,[],"Box"]}}`, http.StatusBadRequest},
		{"oversized row", `{"name":"huge","config":{"A":[1,2000000000,null,"Club"]}}`, http.StatusBadRequest},
		{"row one seat too long", `{"name":"Studio","config":{"A":[1,16,[],"Box"]}}`, http.StatusBadRequest},
		{"duplicate name", `{"name":"Demo Hall","config":{"A":[1,4,[],"Box"]}}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec, out := s.do(t, http.MethodPost, "/v1/venues", "", tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%v)", rec.Code, tt.want, out)
			}
			if tt.want == http.StatusCreated && (out["id"] != float64(2) || out["seats"] != float64(10)) {
				t.Fatalf("created = %v", out)
			}
		})
	}
}

func TestGetLayout(t *testing.T) {
	s := newTestServer(t)
	rec, out := s.do(t, http.MethodGet, "/v1/venues/1/layout", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	order := labels(out["order"])
	if !equalStrings(order, []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}) {
		t.Fatalf("order = %v", order)
	}
	rows := out["rows"].([]any)
	b := rows[1].(map[string]any)
	if b["class"] != "Club" || b["class_header"] != false {
		t.Fatalf("row B = %v", b)
	}
	c := rows[2].(map[string]any)
	if c["class"] != "Executive" || c["class_header"] != true {
		t.Fatalf("row C = %v", c)
	}
	seat := c["seats"].([]any)[6].(map[string]any)
	if seat["label"] != "C13" || seat["state"] != "blocked" || seat["col"] != float64(7) {
		t.Fatalf("seat C13 = %v", seat)
	}

	for _, path := range []string{"/v1/venues/9/layout", "/v1/venues/x/layout"} {
		if rec, _ := s.do(t, http.MethodGet, path, "", ""); rec.Code == http.StatusOK {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestRenderRows_UsesSeatMatrix(t *testing.T) {
	l, err := layout.New([]layout.Row{
		{Label: "A", FirstSeatNo: 101, LastSeatNo: 104, BlockedOffsets: []int{2}, SeatClass: "Box"},
		{Label: "B", FirstSeatNo: 7, LastSeatNo: 9},
	})
	if err != nil {
		t.Fatal(err)
	}
	rows, err := renderRows(l, nil)
	if err != nil {
		t.Fatal(err)
	}
	matrix := l.BuildSeatMatrix()
	for _, r := range rows {
		nums := matrix[r.Label]
		if len(r.Seats) != len(nums) {
			t.Fatalf("row %s: %d seats, matrix has %d", r.Label, len(r.Seats), len(nums))
		}
		for i, seat := range r.Seats {
			if seat.Number != nums[i] || seat.Col != i+1 {
				t.Fatalf("row %s seat %d = %+v, want number %d", r.Label, i, seat, nums[i])
			}
		}
	}
	if got := rows[0].Seats[1]; got.Label != "A102" || got.State != layout.Blocked {
		t.Fatalf("A102 = %+v", got)
	}
}

func TestCreateSession_Errors(t *testing.T) {
	s := newTestServer(t)
	if rec, _ := s.do(t, http.MethodPost, "/v1/sessions", "", `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing venue: status = %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodPost, "/v1/sessions", "", `{"venue_id":42}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown venue: status = %d", rec.Code)
	}
}

func TestSession_SelectContiguousBlock(t *testing.T) {
	s := newTestServer(t)
	tok := s.open(t)

	rec, out := s.do(t, http.MethodPut, "/v1/session/quantity", tok, `{"quantity":3}`)
	if rec.Code != http.StatusOK || out["remaining"] != float64(3) {
		t.Fatalf("set quantity: %d %v", rec.Code, out)
	}

	rec, out = s.do(t, http.MethodPost, "/v1/session/clicks", tok, `{"row":"E","seat_number":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("click: %d %v", rec.Code, out)
	}
	if got := labels(out["selected"]); !equalStrings(got, []string{"E7", "E8", "E9"}) {
		t.Fatalf("selected = %v", got)
	}
	if out["remaining"] != float64(0) || out["complete"] != true || out["stop"] != "budget" {
		t.Fatalf("click response = %v", out)
	}

	if len(s.pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(s.pub.events))
	}
	ev := s.pub.events[0]
	if ev.VenueName != "Demo Hall" || ev.Quantity != 3 || !equalStrings(ev.SeatLabels, []string{"E7", "E8", "E9"}) {
		t.Fatalf("event = %+v", ev)
	}
	if !equalStrings(ev.SeatClasses, []string{"Executive", "Executive", "Executive"}) {
		t.Fatalf("classes = %v", ev.SeatClasses)
	}

	// budget exhausted: a free seat elsewhere is ignored and nothing is republished
	rec, out = s.do(t, http.MethodPost, "/v1/session/clicks", tok, `{"row":"H","col":1}`)
	if rec.Code != http.StatusOK || len(labels(out["selected"])) != 3 {
		t.Fatalf("no-op click: %d %v", rec.Code, out)
	}
	if len(s.pub.events) != 1 {
		t.Fatalf("published %d events after no-op, want 1", len(s.pub.events))
	}
}

func TestSession_PartialFillStops(t *testing.T) {
	tests := []struct {
		name     string
		click    string
		selected []string
		stop     string
	}{
		{"blocked seat", `{"row":"A","col":1}`, []string{"A1", "A2"}, "blocked"},
		{"end of row", `{"row":"E","col":8}`, []string{"E14", "E15"}, "end_of_row"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tok := s.open(t)
			s.do(t, http.MethodPut, "/v1/session/quantity", tok, `{"quantity":3}`)

			rec, out := s.do(t, http.MethodPost, "/v1/session/clicks", tok, tt.click)
			if rec.Code != http.StatusOK {
				t.Fatalf("click: %d %v", rec.Code, out)
			}
			if got := labels(out["selected"]); !equalStrings(got, tt.selected) {
				t.Fatalf("selected = %v, want %v", got, tt.selected)
			}
			if out["remaining"] != float64(1) || out["complete"] != false || out["stop"] != tt.stop {
				t.Fatalf("click response = %v", out)
			}
			if len(s.pub.events) != 0 {
				t.Fatalf("incomplete selection was published")
			}
		})
	}
}

func TestSession_ClickErrors(t *testing.T) {
	s := newTestServer(t)
	tok := s.open(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown row", `{"row":"Z","col":1}`, http.StatusBadRequest},
		{"col out of range", `{"row":"A","col":16}`, http.StatusBadRequest},
		{"seat number out of range", `{"row":"C","seat_number":3}`, http.StatusBadRequest},
		{"both col and seat number", `{"row":"A","col":1,"seat_number":1}`, http.StatusBadRequest},
		{"neither col nor seat number", `{"row":"A"}`, http.StatusBadRequest},
		{"blocked seat", `{"row":"A","col":3}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := s.do(t, http.MethodPost, "/v1/session/clicks", tok, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%v)", rec.Code, tt.want, out)
			}
		})
	}

	_, out := s.do(t, http.MethodGet, "/v1/session", tok, "")
	if out["remaining"] != float64(1) || len(labels(out["selected"])) != 0 {
		t.Fatalf("rejected clicks changed the state: %v", out)
	}
}

func TestSession_InvalidQuantity(t *testing.T) {
	s := newTestServer(t)
	tok := s.open(t)
	for _, body := range []string{`{"quantity":0}`, `{"quantity":11}`, `{"quantity":-2}`} {
		rec, out := s.do(t, http.MethodPut, "/v1/session/quantity", tok, body)
		if rec.Code != http.StatusUnprocessableEntity || out["error"] != "invalid_quantity" {
			t.Fatalf("%s: %d %v", body, rec.Code, out)
		}
	}
	if rec, _ := s.do(t, http.MethodPut, "/v1/session/quantity", tok, `{}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing quantity: status = %d", rec.Code)
	}
	_, out := s.do(t, http.MethodGet, "/v1/session", tok, "")
	if out["required_quantity"] != float64(1) {
		t.Fatalf("invalid quantity changed the state: %v", out)
	}
}

func TestSession_GetStateRendersSelection(t *testing.T) {
	s := newTestServer(t)
	tok := s.open(t)
	s.do(t, http.MethodPost, "/v1/session/clicks", tok, `{"row":"H","col":2}`)

	rec, out := s.do(t, http.MethodGet, "/v1/session", tok, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	h := out["rows"].([]any)[7].(map[string]any)
	seats := h["seats"].([]any)
	if st := seats[1].(map[string]any)["state"]; st != "selected" {
		t.Fatalf("H4 state = %v", st)
	}
	if st := seats[0].(map[string]any)["state"]; st != "available" {
		t.Fatalf("H3 state = %v", st)
	}
}

func TestSession_Isolation(t *testing.T) {
	s := newTestServer(t)
	a, b := s.open(t), s.open(t)

	s.do(t, http.MethodPost, "/v1/session/clicks", a, `{"row":"J","col":1}`)
	_, out := s.do(t, http.MethodGet, "/v1/session", b, "")
	if len(labels(out["selected"])) != 0 {
		t.Fatalf("session b sees session a's selection: %v", out["selected"])
	}
}

func TestSession_AuthAndDelete(t *testing.T) {
	s := newTestServer(t)
	tok := s.open(t)

	if rec, _ := s.do(t, http.MethodGet, "/v1/session", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodDelete, "/v1/session", tok, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status = %d", rec.Code)
	}
	if rec, _ := s.do(t, http.MethodGet, "/v1/session", tok, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("after delete: status = %d", rec.Code)
	}
	if s.sessions.Len() != 0 {
		t.Fatalf("store still holds %d sessions", s.sessions.Len())
	}
}

func TestSession_PublishFailureDoesNotFailClick(t *testing.T) {
	s := newTestServer(t)
	s.pub.err = errors.New("broker down")
	tok := s.open(t)

	rec, out := s.do(t, http.MethodPost, "/v1/session/clicks", tok, `{"row":"H","col":1}`)
	if rec.Code != http.StatusOK || out["complete"] != true {
		t.Fatalf("click: %d %v", rec.Code, out)
	}
	if len(s.pub.events) != 1 {
		t.Fatalf("publish attempts = %d", len(s.pub.events))
	}
}

func TestHealth(t *testing.T) {
	e := echo.New()
	store := session.NewStore(0)
	e.GET("/healthz", Health(store))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"sessions":0`) {
		t.Fatalf("healthz = %d %s", rec.Code, rec.Body.String())
	}
}
