package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"app-groups-sync/internal/models"
)

// FakeOkta serves the three Okta endpoints the sync reads from in-memory data.
// Unknown ids answer 404 with an Okta-style error body.
type FakeOkta struct {
	mu          sync.RWMutex
	apps        map[string]models.Application
	memberships map[string][]string
	groups      map[string]models.Group
	failing     map[string]int

	Requests atomic.Int64
}

func NewFakeOkta() *FakeOkta {
	return &FakeOkta{
		apps:        make(map[string]models.Application),
		memberships: make(map[string][]string),
		groups:      make(map[string]models.Group),
		failing:     make(map[string]int),
	}
}

// NewScenarioOkta serves the app123 reference scenario.
func NewScenarioOkta() *FakeOkta {
	f := NewFakeOkta()
	groups := ScenarioGroups()
	f.WithApp(ScenarioApp(), groups...)
	return f
}

// WithApp registers an app and assigns the given groups to it, in order.
func (f *FakeOkta) WithApp(app models.Application, groups ...models.Group) *FakeOkta {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apps[app.ID] = app
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		f.groups[g.ID] = g
		ids = append(ids, g.ID)
	}
	f.memberships[app.ID] = ids
	return f
}

// FailPath makes requests for path answer with status.
func (f *FakeOkta) FailPath(path string, status int) *FakeOkta {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing[path] = status
	return f
}

// Start runs the fake on an httptest server closed at test cleanup.
func (f *FakeOkta) Start(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return server
}

func (f *FakeOkta) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.Requests.Add(1)
	f.mu.RLock()
	defer f.mu.RUnlock()

	if status, ok := f.failing[r.URL.Path]; ok {
		w.WriteHeader(status)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "apps":
		if app, ok := f.apps[parts[1]]; ok {
			writeJSON(w, app)
			return
		}
	case len(parts) == 3 && parts[0] == "apps" && parts[2] == "groups":
		if ids, ok := f.memberships[parts[1]]; ok {
			page := make([]map[string]string, 0, len(ids))
			for _, id := range ids {
				page = append(page, map[string]string{"id": id})
			}
			writeJSON(w, page)
			return
		}
	case len(parts) == 2 && parts[0] == "groups":
		if group, ok := f.groups[parts[1]]; ok {
			writeJSON(w, group)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"errorCode":"E0000007","errorSummary":"Not found: Resource not found"}`))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
