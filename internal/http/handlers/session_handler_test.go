package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/caky/go-study-backend/internal/domain"
	"github.com/caky/go-study-backend/internal/services"
)

// ---------- helpers-only tests ----------

func Test_userID_and_clampPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// userID helper
	rc := gin.CreateTestContextOnly(httptest.NewRecorder(), gin.New())
	if got := userID(rc); got != "demo-user" {
		t.Fatalf("fallback userID = %q", got)
	}
	rc.Set("userID", "u1")
	if got := userID(rc); got != "u1" {
		t.Fatalf("ctx userID = %q", got)
	}
	rc.Set("userID", 123) // wrong type -> fallback
	if got := userID(rc); got != "demo-user" {
		t.Fatalf("wrong-type fallback userID = %q", got)
	}

	// header fallback
	cH, _ := gin.CreateTestContext(httptest.NewRecorder())
	reqH := httptest.NewRequest("GET", "/", nil)
	reqH.Header.Set("X-User-ID", "u-123")
	cH.Request = reqH
	if got := userID(cH); got != "u-123" {
		t.Fatalf("header fallback userID = %q", got)
	}

	// clampPagination bounds
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=-5&page_size=9999", nil)
	p, ps := clampPagination(c)
	if p != 1 || ps != 100 {
		t.Fatalf("clamp bounds got p=%d ps=%d", p, ps)
	}
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?page=&page_size=0", nil)
	p, ps = clampPagination(c)
	if p != 1 || ps != 1 {
		t.Fatalf("clamp lower bound got p=%d ps=%d", p, ps)
	}
	c, _ = gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	p, ps = clampPagination(c)
	if p != 1 || ps != 20 {
		t.Fatalf("clamp defaults got p=%d ps=%d", p, ps)
	}
}

// ---------- CreateSession ----------

func TestCreateSession_BadJSON_Success_Internal(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// Bad JSON -> 400
	{
		h := newStubHandlers()
		r := gin.New()
		r.POST("/sessions", h.CreateSession)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString("{bad"))
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("bad json -> %d", w.Code)
		}
	}

	// Success -> 201, title trimmed, user from header
	{
		var got struct{ uid, title string }
		svc := stubSessionSvc{
			create: func(_ context.Context, userID, title string, _ *string) (*domain.Session, error) {
				got.uid, got.title = userID, title
				return &domain.Session{ID: uuid.NewString(), UserID: userID, Title: title, Status: domain.SessionPlanning}, nil
			},
		}
		h := New(svc, stubDocSvc{}, stubPlanSvc{}, stubStudySvc{}, stubChatSvc{})
		r := gin.New()
		r.POST("/sessions", h.CreateSession)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(`{"title":"   Linear Algebra  "}`))
		req.Header.Set("X-User-ID", "u1")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusCreated {
			t.Fatalf("create -> %d body=%s", w.Code, w.Body.String())
		}
		if got.uid != "u1" || got.title != "Linear Algebra" {
			t.Fatalf("service args: %+v", got)
		}
		var out domain.Session
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("json: %v", err)
		}
		if out.Status != domain.SessionPlanning {
			t.Fatalf("status = %q", out.Status)
		}
	}

	// Internal error -> 500 internal_error
	{
		svc := stubSessionSvc{
			create: func(context.Context, string, string, *string) (*domain.Session, error) {
				return nil, context.DeadlineExceeded
			},
		}
		h := New(svc, stubDocSvc{}, stubPlanSvc{}, stubStudySvc{}, stubChatSvc{})
		r := gin.New()
		r.POST("/sessions", h.CreateSession)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(`{"title":"X"}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("internal -> %d", w.Code)
		}
		var resp ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json: %v", err)
		}
		if resp.Code != ErrCodeInternal {
			t.Fatalf("code = %q", resp.Code)
		}
	}
}

// ---------- ListSessions ----------

func TestListSessions_PaginationEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := stubSessionSvc{
		listPage: func(_ context.Context, userID string, page, pageSize int) ([]domain.Session, int64, error) {
			if userID != "u1" || page != 2 || pageSize != 1 {
				t.Fatalf("unexpected args: %s %d %d", userID, page, pageSize)
			}
			return []domain.Session{{ID: "s2", UserID: userID}}, 3, nil
		},
	}
	h := New(svc, stubDocSvc{}, stubPlanSvc{}, stubStudySvc{}, stubChatSvc{})
	r := gin.New()
	r.GET("/sessions", h.ListSessions)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions?page=2&page_size=1", nil)
	req.Header.Set("X-User-ID", "u1")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list -> %d body=%s", w.Code, w.Body.String())
	}

	var out ListSessionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(out.Sessions) != 1 || out.Sessions[0].ID != "s2" {
		t.Fatalf("sessions: %#v", out.Sessions)
	}
	p := out.Pagination
	if p.Page != 2 || p.PageSize != 1 || p.Total != 3 || p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("pagination: %#v", p)
	}
}

func TestListSessions_LastPageHasNoNext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := stubSessionSvc{
		listPage: func(context.Context, string, int, int) ([]domain.Session, int64, error) {
			return nil, 3, nil
		},
	}
	h := New(svc, stubDocSvc{}, stubPlanSvc{}, stubStudySvc{}, stubChatSvc{})
	r := gin.New()
	r.GET("/sessions", h.ListSessions)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions?page=3&page_size=1", nil))

	var out ListSessionsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out.Pagination.HasNext {
		t.Fatalf("last page must not report has_next: %#v", out.Pagination)
	}
}

// ---------- GetSession ----------

func TestGetSession_UUID_NotFound_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newStubHandlers()
	r := gin.New()
	r.GET("/sessions/:id", h.GetSession)

	// bad UUID -> 400
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/not-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("uuid 400 -> %d", w.Code)
	}

	// not found -> 404 not_found
	errSvc := stubSessionSvc{
		get: func(context.Context, string, string) (*domain.Session, error) {
			return nil, services.ErrSessionNotFound
		},
	}
	h = New(errSvc, stubDocSvc{}, stubPlanSvc{}, stubStudySvc{}, stubChatSvc{})
	r = gin.New()
	r.GET("/sessions/:id", h.GetSession)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("not found -> %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Code != ErrCodeNotFound {
		t.Fatalf("code = %q", resp.Code)
	}

	// success -> 200
	h = newStubHandlers()
	r = gin.New()
	r.GET("/sessions/:id", h.GetSession)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/"+uuid.NewString(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get -> %d", w.Code)
	}
}

// ---------- UpdateSessionTitle ----------

func TestUpdateSessionTitle_Binding_Success(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// empty title -> 400
	{
		h := newStubHandlers()
		r := gin.New()
		r.PUT("/sessions/:id/title", h.UpdateSessionTitle)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/sessions/"+uuid.NewString()+"/title", bytes.NewBufferString(`{"title":"   "}`))
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("empty title -> %d", w.Code)
		}
	}

	// success -> 204, args forwarded
	{
		var got struct{ uid, id, title string }
		svc := stubSessionSvc{
			updateTitle: func(_ context.Context, userID, sessionID, title string) error {
				got.uid, got.id, got.title = userID, sessionID, title
				return nil
			},
		}
		h := New(svc, stubDocSvc{}, stubPlanSvc{}, stubStudySvc{}, stubChatSvc{})
		r := gin.New()
		r.PUT("/sessions/:id/title", h.UpdateSessionTitle)

		id := uuid.NewString()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPut, "/sessions/"+id+"/title", bytes.NewBufferString(`{"title":"New Name"}`))
		req.Header.Set("X-User-ID", "U-9")
		r.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("204 -> %d body=%s", w.Code, w.Body.String())
		}
		if got.uid != "U-9" || got.id != id || got.title != "New Name" {
			t.Fatalf("service args mismatch: %+v", got)
		}
	}
}

// ---------- CompleteSession / DeleteSession ----------

func TestCompleteSession_InvalidState(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := stubSessionSvc{
		complete: func(context.Context, string, string) error { return services.ErrInvalidState },
	}
	h := New(svc, stubDocSvc{}, stubPlanSvc{}, stubStudySvc{}, stubChatSvc{})
	r := gin.New()
	r.POST("/sessions/:id/complete", h.CompleteSession)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/"+uuid.NewString()+"/complete", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("invalid state -> %d", w.Code)
	}
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Code != ErrCodeInvalidState {
		t.Fatalf("code = %q", resp.Code)
	}
}

func TestDeleteSession_Success_NotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := newStubHandlers()
	r := gin.New()
	r.DELETE("/sessions/:id", h.DeleteSession)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sessions/"+uuid.NewString(), nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete -> %d", w.Code)
	}

	errSvc := stubSessionSvc{
		delete: func(context.Context, string, string) error { return services.ErrSessionNotFound },
	}
	h = New(errSvc, stubDocSvc{}, stubPlanSvc{}, stubStudySvc{}, stubChatSvc{})
	r = gin.New()
	r.DELETE("/sessions/:id", h.DeleteSession)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/sessions/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing -> %d", w.Code)
	}
}
