package analyses

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/sections"
)

func newTestRouter(t *testing.T, svc *Service, identity func(c *gin.Context)) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	if identity != nil {
		api.Use(func(c *gin.Context) {
			identity(c)
			c.Next()
		})
	}
	NewHandler(svc).RegisterRoutes(api)
	return r
}

func asUser(userID string) func(c *gin.Context) {
	return func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("isGuest", false)
	}
}

func asGuest(guestID string) func(c *gin.Context) {
	return func(c *gin.Context) {
		c.Set("userId", "guest:"+guestID)
		c.Set("isGuest", true)
	}
}

func TestCreateAnalysisEndpoint(t *testing.T) {
	svc, _ := newTestService(t, newFakeGateway())
	r := newTestRouter(t, svc, asUser("user-1"))

	body := `{"description": "AI bookkeeping for freelancers", "industry": "Fintech"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	var resp struct {
		AnalysisID string `json:"analysisId"`
		Status     string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AnalysisID == "" {
		t.Fatal("missing analysisId")
	}
	if resp.Status != StatusPending {
		t.Fatalf("status = %s, want %s", resp.Status, StatusPending)
	}
}

func TestCreateAnalysisEndpointValidation(t *testing.T) {
	svc, _ := newTestService(t, newFakeGateway())
	r := newTestRouter(t, svc, asUser("user-1"))

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"missing description", `{"industry": "Fintech"}`, "description"},
		{"missing industry", `{"description": "An idea"}`, "industry"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
			if !strings.Contains(w.Body.String(), "validation_error") {
				t.Fatalf("body missing error code: %s", w.Body.String())
			}
			if !strings.Contains(w.Body.String(), tc.field) {
				t.Fatalf("body does not name the missing field: %s", w.Body.String())
			}
		})
	}
}

func TestGetAnalysisEndpoint(t *testing.T) {
	svc, repo := newTestService(t, newFakeGateway())
	analysis := seedAnalysis(t, repo)
	r := newTestRouter(t, svc, asUser("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/"+analysis.ID, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID       string                     `json:"id"`
		Status   string                     `json:"status"`
		Sections map[string]json.RawMessage `json:"sections"`
		Progress struct {
			ResolvedSections          int     `json:"resolvedSections"`
			TotalSections             int     `json:"totalSections"`
			EstimatedSecondsRemaining float64 `json:"estimatedSecondsRemaining"`
		} `json:"progress"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != analysis.ID {
		t.Fatalf("id = %s", resp.ID)
	}
	if len(resp.Sections) != len(sections.All()) {
		t.Fatalf("sections = %d, want %d", len(resp.Sections), len(sections.All()))
	}
	if resp.Progress.TotalSections != len(sections.All()) || resp.Progress.ResolvedSections != 0 {
		t.Fatalf("progress = %+v", resp.Progress)
	}
	if resp.Progress.EstimatedSecondsRemaining <= 0 {
		t.Fatal("expected a positive remaining-time estimate for a fresh analysis")
	}
}

func TestGetAnalysisEndpointNotFound(t *testing.T) {
	svc, _ := newTestService(t, newFakeGateway())
	r := newTestRouter(t, svc, asUser("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses/does-not-exist", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestListAnalysesEndpointRejectsGuests(t *testing.T) {
	svc, _ := newTestService(t, newFakeGateway())
	r := newTestRouter(t, svc, asGuest("g-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "login_required") {
		t.Fatalf("body missing login_required: %s", w.Body.String())
	}
}

func TestListAnalysesEndpoint(t *testing.T) {
	svc, repo := newTestService(t, newFakeGateway())
	seedAnalysis(t, repo)
	r := newTestRouter(t, svc, asUser("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses?limit=10", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp []struct {
		AnalysisID  string `json:"analysisId"`
		Status      string `json:"status"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("len = %d, want 1", len(resp))
	}
	if resp[0].Description == "" {
		t.Fatal("listing is missing the description")
	}
}

func TestOverrideSectionEndpoint(t *testing.T) {
	svc, repo := newTestService(t, newFakeGateway())
	analysis := seedAnalysis(t, repo)
	r := newTestRouter(t, svc, asUser("user-1"))

	body := `{"data": ` + validPayloads[sections.SWOTAnalysis] + `}`
	req := httptest.NewRequest(http.MethodPut,
		"/api/v1/analyses/"+analysis.ID+"/sections/swotAnalysis", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		SectionID string `json:"sectionId"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != SectionCompleted {
		t.Fatalf("status = %s, want %s", resp.Status, SectionCompleted)
	}
}

func TestOverrideSectionEndpointUnknownSection(t *testing.T) {
	svc, repo := newTestService(t, newFakeGateway())
	analysis := seedAnalysis(t, repo)
	r := newTestRouter(t, svc, asUser("user-1"))

	req := httptest.NewRequest(http.MethodPut,
		"/api/v1/analyses/"+analysis.ID+"/sections/notASection",
		strings.NewReader(`{"data": {"x": 1}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404: %s", w.Code, w.Body.String())
	}
}

func TestOverrideSectionEndpointSchemaMismatch(t *testing.T) {
	svc, repo := newTestService(t, newFakeGateway())
	analysis := seedAnalysis(t, repo)
	r := newTestRouter(t, svc, asUser("user-1"))

	req := httptest.NewRequest(http.MethodPut,
		"/api/v1/analyses/"+analysis.ID+"/sections/swotAnalysis",
		strings.NewReader(`{"data": {"strengths": []}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", w.Code, w.Body.String())
	}
}
