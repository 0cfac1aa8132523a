package delivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chanyoung/vinum/app/vinumd/domain/model/plex"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/table"
	"github.com/chanyoung/vinum/app/vinumd/domain/model/volume"
	"github.com/chanyoung/vinum/app/vinumd/repository/memstore"
	"github.com/chanyoung/vinum/app/vinumd/usecase/admin"
	"github.com/chanyoung/vinum/app/vinumd/usecase/state"
)

const createBody = `
drives:
  - name: d0
    device: /dev/da0
  - name: d1
    device: /dev/da1
volumes:
  - name: v
    setupstate: true
    plexes:
      - subdisks:
          - drive: d0
            size: 1024
      - subdisks:
          - drive: d1
            size: 1024
`

func newTestServer(t *testing.T) *httptest.Server {
	h := admin.NewHandlers(state.New(memstore.New()))
	srv := httptest.NewServer(makeHandler(NewAdminService(h)))
	t.Cleanup(srv.Close)

	res := do(t, srv, "POST", "/v1/create", createBody)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("create: got status %d, expected %d", res.StatusCode, http.StatusOK)
	}
	res.Body.Close()

	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) *http.Response {
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	res, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestRequestStatus(t *testing.T) {
	srv := newTestServer(t)

	testCases := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{"GET", "/v1/config", "", http.StatusOK},
		{"GET", "/v1/plex/0", "", http.StatusOK},
		{"GET", "/v1/disk/0", "", http.StatusBadRequest},
		{"GET", "/v1/drive/9", "", http.StatusNotFound},
		{"GET", "/v1/drive/x", "", http.StatusNotFound},
		{"PUT", "/v1/plex/0/stop", "", http.StatusOK},
		{"PUT", "/v1/plex/1/stop", "", http.StatusConflict},
		{"PUT", "/v1/plex/1/stop?force=true", "", http.StatusOK},
		{"PUT", "/v1/sd/0/state/bogus", "", http.StatusBadRequest},
		{"PUT", "/v1/sd/0/state/stale?force=true", "", http.StatusOK},
		{"PUT", "/v1/volume/0/start", "", http.StatusOK},
		{"PUT", "/v1/plex/0/open", "", http.StatusBadRequest},
		{"PUT", "/v1/volume/4/open", "", http.StatusNotFound},
		{"PUT", "/v1/volume/0/init", "", http.StatusBadRequest},
		{"GET", "/v1/volume/0/open", "", http.StatusMethodNotAllowed},
		{"POST", "/v1/create", "drives:\n  - name: d0\n", http.StatusConflict},
		{"POST", "/v1/create", "drives: [", http.StatusBadRequest},
		{"DELETE", "/v1/plex/0", "", http.StatusMethodNotAllowed},
	}

	for _, c := range testCases {
		res := do(t, srv, c.method, c.path, c.body)
		res.Body.Close()

		if res.StatusCode != c.status {
			t.Errorf("%s %s: got status %d, expected %d", c.method, c.path, res.StatusCode, c.status)
		}
	}
}

func TestListConfig(t *testing.T) {
	srv := newTestServer(t)

	res := do(t, srv, "GET", "/v1/config", "")
	defer res.Body.Close()

	var cfg table.Config
	if err := json.NewDecoder(res.Body).Decode(&cfg); err != nil {
		t.Fatal(err)
	}

	if len(cfg.Plexes) != 2 {
		t.Fatalf("got %d plexes, expected 2", len(cfg.Plexes))
	}
	for _, p := range cfg.Plexes {
		if p.State != plex.Up {
			t.Errorf("plex %s: got %s, expected %s", p.Name, p.State, plex.Up)
		}
	}
	if cfg.Volumes[0].State != volume.Up {
		t.Errorf("got volume state %s, expected %s", cfg.Volumes[0].State, volume.Up)
	}
}

func TestStartReturnsObject(t *testing.T) {
	srv := newTestServer(t)

	res := do(t, srv, "PUT", "/v1/plex/0/stop", "")
	res.Body.Close()

	res = do(t, srv, "PUT", "/v1/plex/0/start", "")
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, expected %d", res.StatusCode, http.StatusOK)
	}

	var p plex.Plex
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.State != plex.Up {
		t.Errorf("got %s, expected %s", p.State, plex.Up)
	}
}

func TestOpenVolumeHoldsDrives(t *testing.T) {
	srv := newTestServer(t)

	res := do(t, srv, "PUT", "/v1/volume/0/open", "")
	var v volume.Volume
	err := json.NewDecoder(res.Body).Decode(&v)
	res.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusOK || !v.Open {
		t.Fatalf("got status %d open %v, expected %d open true", res.StatusCode, v.Open, http.StatusOK)
	}

	steps := []struct {
		path   string
		status int
	}{
		{"/v1/drive/0/stop", http.StatusConflict},
		{"/v1/volume/0/stop", http.StatusConflict},
		{"/v1/volume/0/close", http.StatusOK},
		{"/v1/drive/0/stop", http.StatusOK},
		{"/v1/volume/0/stop", http.StatusOK},
	}

	for _, c := range steps {
		res := do(t, srv, "PUT", c.path, "")
		res.Body.Close()

		if res.StatusCode != c.status {
			t.Errorf("PUT %s: got status %d, expected %d", c.path, res.StatusCode, c.status)
		}
	}
}

func TestInitLivePlex(t *testing.T) {
	srv := newTestServer(t)

	res := do(t, srv, "PUT", "/v1/plex/0/init", "")
	res.Body.Close()
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("got status %d, expected %d", res.StatusCode, http.StatusConflict)
	}

	res = do(t, srv, "GET", "/v1/plex/0", "")
	defer res.Body.Close()

	var p plex.Plex
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.State != plex.Up {
		t.Errorf("got %s, expected %s", p.State, plex.Up)
	}
}
