package routing

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// tag appends name to the X-Trace header before and after the inner handler
func tag(name string) HandlerWrapper {
	return HandlerWrapperFunc(func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Add("X-Trace", name)
			inner.ServeHTTP(w, r)
		})
	})
}

func TestGroupWrapperOrder(t *testing.T) {
	router := NewBaseRouter()
	var trace []string
	router.Group("/v1/", func(v1 *RouteGroup) {
		v1.Group("jobs/", func(jobs *RouteGroup) {
			jobs.HandleFunc("GET {id}", func(w http.ResponseWriter, r *http.Request) {
				trace = r.Header.Values("X-Trace")
				_, _ = w.Write([]byte(r.PathValue("id")))
			}, tag("route"))
		}, tag("inner"))
		v1.HandleFunc("GET sheet-sizes", okHandler)
	}, tag("outer"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/J7", nil))
	if rec.Body.String() != "J7" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if d := cmp.Diff([]string{"outer", "inner", "route"}, trace); d != "" {
		t.Errorf("wrapper order mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff([]string{"GET /v1/jobs/{id}", "GET /v1/sheet-sizes"}, router.Patterns()); d != "" {
		t.Errorf("Patterns() mismatch (-want +got):\n%s", d)
	}
}

func TestUnknownRouteIsJSON(t *testing.T) {
	router := NewBaseRouter()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestJoinPattern(t *testing.T) {
	tests := []struct {
		prefix, sub, want string
		wantErr           bool
	}{
		{"/v1/", "POST jobs", "POST /v1/jobs", false},
		{"/v1/", "plan", "/v1/plan", false},
		{"/v1/", "GET /jobs", "", true},
	}
	for _, tc := range tests {
		got, err := joinPattern(tc.prefix, tc.sub)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("joinPattern(%q, %q) = %q, %v", tc.prefix, tc.sub, got, err)
		}
	}
}
