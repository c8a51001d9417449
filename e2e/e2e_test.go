package e2e

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/lingyi/internal/app"
	"github.com/ayusman/lingyi/internal/capture"
	"github.com/ayusman/lingyi/internal/desktop"
	"github.com/ayusman/lingyi/internal/geom"
	"github.com/ayusman/lingyi/internal/server"
	"github.com/ayusman/lingyi/internal/store"
)

// sessionPath is a recorded session: click, context menu, fist drag of
// 0.1 frame widths, a dropped frame, then an open-palm scroll.
const sessionPath = "../testdata/session.jsonl"

var photosBounds = geom.Rect{Left: 100, Top: 100, Width: 400, Height: 300}

type env struct {
	app     *app.App
	desktop *desktop.Desktop
	photos  string
	ts      *httptest.Server
}

func newEnv(t *testing.T, s *store.Store) *env {
	t.Helper()

	d := desktop.New(geom.Size{Width: 1920, Height: 1080}, 300, 200)
	w := d.Open("Photos", photosBounds)

	cfg := app.DefaultConfig()
	cfg.Smoothing = 1
	cfg.Store = s
	a := app.New(cfg, d, d)

	ts := httptest.NewServer(server.New(server.Config{App: a, Desktop: d, Store: s}))
	t.Cleanup(ts.Close)
	return &env{app: a, desktop: d, photos: w.ID, ts: ts}
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func getJSON(t *testing.T, e *env, path string, v interface{}) {
	t.Helper()
	resp, err := e.ts.Client().Get(e.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s error = %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s decode error = %v", path, err)
	}
}

func eventKinds(d *desktop.Desktop) []string {
	var kinds []string
	for _, ev := range d.Events() {
		kinds = append(kinds, string(ev.Kind))
	}
	return kinds
}

func TestE2E_ReplaySession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	e := newEnv(t, openStore(t))
	ctx := context.Background()

	replay, err := capture.OpenReplay(sessionPath, false)
	if err != nil {
		t.Fatalf("OpenReplay() error = %v", err)
	}
	recordPath := filepath.Join(t.TempDir(), "again.jsonl")
	f, err := os.Create(recordPath)
	if err != nil {
		t.Fatal(err)
	}
	rec := capture.NewRecorder(replay, f)

	if err := e.app.Run(ctx, rec); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("Recorder.Close() error = %v", err)
	}

	t.Run("Journal", func(t *testing.T) {
		var resp struct {
			Events []store.Event `json:"events"`
		}
		getJSON(t, e, "/api/events?limit=50", &resp)

		want := []string{"click", "context-menu", "drag-start", "drag-end", "scroll-start", "scroll-end"}
		if len(resp.Events) != len(want) {
			t.Fatalf("journal has %d events, want %d: %+v", len(resp.Events), len(want), resp.Events)
		}
		// Newest first.
		for i, w := range want {
			if got := resp.Events[len(want)-1-i].Action; got != w {
				t.Errorf("event %d = %q, want %q", i, got, w)
			}
		}
	})

	t.Run("DraggedWindowPersisted", func(t *testing.T) {
		var win struct {
			Bounds geom.Rect `json:"bounds"`
		}
		getJSON(t, e, "/api/windows/"+e.photos, &win)
		if math.Abs(win.Bounds.Left-292) > 1e-6 || win.Bounds.Top != photosBounds.Top {
			t.Errorf("bounds = %+v, want left 292", win.Bounds)
		}
	})

	t.Run("FinalState", func(t *testing.T) {
		var st struct {
			State       string `json:"state"`
			HandPresent bool   `json:"handPresent"`
			Seq         uint64 `json:"seq"`
		}
		getJSON(t, e, "/api/state", &st)
		if st.State != "pointing" || !st.HandPresent || st.Seq != 12 {
			t.Errorf("state = %+v", st)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		resp, err := e.ts.Client().Get(e.ts.URL + "/metrics")
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		for _, line := range []string{
			`lingyi_actions_total{kind="click"} 1`,
			`lingyi_frames_total{hand="absent"} 1`,
		} {
			if !strings.Contains(string(body), line) {
				t.Errorf("metrics missing %q", line)
			}
		}
	})

	t.Run("RecordingReplaysIdentically", func(t *testing.T) {
		again := newEnv(t, nil)
		src, err := capture.OpenReplay(recordPath, false)
		if err != nil {
			t.Fatalf("OpenReplay() error = %v", err)
		}
		defer src.Close()

		if err := again.app.Run(ctx, src); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		got, want := eventKinds(again.desktop), eventKinds(e.desktop)
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Errorf("replayed desktop events = %v, want %v", got, want)
		}
	})
}

func TestE2E_DisabledIgnoresGestures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s := openStore(t)
	e := newEnv(t, s)

	req, _ := http.NewRequest(http.MethodPut, e.ts.URL+"/api/settings", strings.NewReader(`{"enabled": false}`))
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("PUT /api/settings error = %v", err)
	}
	resp.Body.Close()

	src, err := capture.OpenReplay(sessionPath, false)
	if err != nil {
		t.Fatalf("OpenReplay() error = %v", err)
	}
	defer src.Close()
	if err := e.app.Run(context.Background(), src); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if kinds := eventKinds(e.desktop); len(kinds) != 0 {
		t.Errorf("desktop events while disabled = %v", kinds)
	}
	events, _ := s.Events().List(0)
	if len(events) != 0 {
		t.Errorf("journal has %d events while disabled", len(events))
	}
	got, _ := e.desktop.Get(e.photos)
	if got.Bounds != photosBounds {
		t.Errorf("bounds = %+v, want untouched %+v", got.Bounds, photosBounds)
	}
}
