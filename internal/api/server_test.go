package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/gridworld/internal/calendar"
	"github.com/talgya/gridworld/internal/engine"
	"github.com/talgya/gridworld/internal/entropy"
	"github.com/talgya/gridworld/internal/persistence"
	"github.com/talgya/gridworld/internal/world"
)

const testKey = "secret"

// openMap returns a radius-2 map where every tile is habitable flats.
func openMap() *world.Map {
	m := world.NewMap(2)
	for _, t := range m.Tiles {
		t.Terrain = world.TerrainFlats
		t.Biome = world.BiomeGrassland
		t.Habitable = true
	}
	return m
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		World:    engine.NewWorld(engine.Options{Rand: entropy.NewSource(7)}),
		Runner:   engine.NewRunner(),
		Map:      openMap(),
		AdminKey: testKey,
		SavePath: filepath.Join(t.TempDir(), "world.sav"),
	}
	t.Cleanup(s.StopRunner)
	return s
}

func do(t *testing.T, h http.Handler, method, path, token string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	s.World.SeedPopulation(12)
	s.SetSeed(99)

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[map[string]any](t, rec)
	assert.Equal(t, float64(12), status["population"])
	assert.Equal(t, float64(13), status["next_person_id"])
	assert.Equal(t, float64(99), status["seed"])
	assert.Equal(t, engine.DefaultSpeed, status["speed"])
	assert.Equal(t, false, status["running"])
	assert.Equal(t, "Year 4000, Month 1, Day 1", status["date_text"])
}

func TestAdminAuth(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/v1/tick", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/api/v1/tick", "wrong", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/tick", testKey, nil).Code)

	s.AdminKey = ""
	h = s.Handler()
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/api/v1/tick", testKey, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/api/v1/stream", testKey, nil).Code)
}

func TestAdminRateLimit(t *testing.T) {
	s := newTestServer(t)
	s.AdminPerMinute = 2
	h := s.Handler()

	for range 2 {
		require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/v1/tick", testKey, nil).Code)
	}
	rec := do(t, h, http.MethodPost, "/api/v1/tick", testKey, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Public reads are not limited.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/status", "", nil).Code)
}

func TestTick(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/tick?n=10", testKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[engine.TickResult](t, rec)
	assert.Equal(t, calendar.Date{Year: 4000, Month: 2, Day: 3}, res.Date)
	assert.Equal(t, res.Date, s.World.Date())

	for _, q := range []string{"n=0", "n=-1", "n=abc", "n=100000"} {
		assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/tick?"+q, testKey, nil).Code, q)
	}
}

func TestSeed(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/seed", testKey, []byte(`{"count":6,"location":3}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 6, s.World.LocationPopulation(3))

	rec = do(t, h, http.MethodPost, "/api/v1/seed", testKey, []byte(`{"min":4,"max":4,"location":5}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), decode[map[string]any](t, rec)["added"])
	assert.Equal(t, 10, s.World.Population())

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/seed", testKey, []byte(`{"count":1,"location":500}`)).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/seed", testKey, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/v1/seed", testKey, []byte(`{`)).Code)
}

func TestPeopleEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.World.SeedPopulationAt(3, 1)
	s.World.SeedPopulationAt(2, 4)
	h := s.Handler()

	all := decode[[]engine.PersonView](t, do(t, h, http.MethodGet, "/api/v1/people", "", nil))
	assert.Len(t, all, 5)

	at := decode[[]engine.PersonView](t, do(t, h, http.MethodGet, "/api/v1/people?location=4", "", nil))
	require.Len(t, at, 2)
	assert.EqualValues(t, 4, at[0].Location)

	rec := do(t, h, http.MethodGet, "/api/v1/people/2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[engine.PersonView](t, rec).ID)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/people/77", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/people/x", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/people?location=-1", "", nil).Code)
}

func TestLocationEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.World.SeedPopulationAt(3, 1)
	h := s.Handler()

	locs := decode[[]map[string]any](t, do(t, h, http.MethodGet, "/api/v1/locations", "", nil))
	require.Len(t, locs, 1)
	assert.Equal(t, float64(3), locs[0]["count"])
	assert.NotNil(t, locs[0]["tile"])

	rec := do(t, h, http.MethodGet, "/api/v1/locations/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decode[map[string]any](t, rec)["population"])

	// On the map but empty.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/v1/locations/2", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/locations/900", "", nil).Code)

	m := decode[map[string]any](t, do(t, h, http.MethodGet, "/api/v1/map", "", nil))
	assert.Equal(t, float64(19), m["habitable"])
	assert.Len(t, m["tiles"], 19)
}

func TestStatsAndEvents(t *testing.T) {
	s := newTestServer(t)
	s.World.SeedPopulation(40)
	s.World.TickN(96 * 3)
	h := s.Handler()

	d := decode[map[string]any](t, do(t, h, http.MethodGet, "/api/v1/demographics", "", nil))
	assert.Len(t, d["age_bracket_labels"], 7)
	assert.Equal(t, float64(s.World.Population()), d["population"])

	for _, path := range []string{
		"/api/v1/stats/current",
		"/api/v1/stats/recent?years=2",
		"/api/v1/stats/vital?start=4000&end=4002",
	} {
		assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, path, "", nil).Code, path)
	}
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/v1/stats/vital?start=x", "", nil).Code)

	v := decode[engine.VitalStatistics](t, do(t, h, http.MethodGet, "/api/v1/stats/vital?start=4002&end=4000", "", nil))
	assert.EqualValues(t, 4000, v.StartYear)
	assert.EqualValues(t, 4002, v.EndYear)

	ev := decode[map[string]any](t, do(t, h, http.MethodGet, "/api/v1/events?limit=3", "", nil))
	assert.Equal(t, float64(s.World.EventCount()), ev["total"])
	assert.LessOrEqual(t, len(ev["events"].([]any)), 3)

	// No archive attached.
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/archive/events", "", nil).Code)
}

func TestStatsAndEventsDefaults(t *testing.T) {
	s := newTestServer(t)
	s.World.SeedPopulation(120)
	s.World.TickN(96 * 4)
	h := s.Handler()

	year := s.World.Date().Year
	v := decode[engine.VitalStatistics](t, do(t, h, http.MethodGet, "/api/v1/stats/recent", "", nil))
	assert.Equal(t, year-9, v.StartYear)
	assert.Equal(t, year, v.EndYear)

	ev := decode[map[string]any](t, do(t, h, http.MethodGet, "/api/v1/events", "", nil))
	assert.Len(t, ev["events"], min(100, s.World.EventCount()))
}

func TestExportImport(t *testing.T) {
	s := newTestServer(t)
	s.World.SeedPopulation(10)
	s.World.TickN(50)
	h := s.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/export", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.Bytes()

	other := newTestServer(t)
	oh := other.Handler()
	rec = do(t, oh, http.MethodPost, "/api/v1/import", testKey, exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[engine.ImportResult](t, rec)
	assert.Equal(t, s.World.Population(), res.Population)
	assert.Equal(t, s.World.Date(), other.World.Date())

	before := other.World.Population()
	rec = do(t, oh, http.MethodPost, "/api/v1/import", testKey, []byte(`{"version":9}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, before, other.World.Population())
}

func TestSaveLoadRestoresHostState(t *testing.T) {
	s := newTestServer(t)
	s.World.SeedPopulation(8)
	s.SetSeed(1234)
	s.SetSpeed("1_month")
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/save", testKey, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Positive(t, decode[engine.SaveResult](t, rec).FileBytes)

	s.SetSpeed("1_day")
	s.SetSeed(1)
	s.World.SeedPopulation(5)

	rec = do(t, h, http.MethodPost, "/api/v1/load", testKey, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 8, s.World.Population())
	assert.Equal(t, uint32(1234), s.Seed())
	assert.Equal(t, "1_month", s.Speed())
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/load", testKey, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRestartIsSeedDeterministic(t *testing.T) {
	a, b := newTestServer(t), newTestServer(t)
	ha, hb := a.Handler(), b.Handler()

	ra := decode[engine.RestartResult](t, do(t, ha, http.MethodPost, "/api/v1/restart", testKey, []byte(`{"seed":42}`)))
	rb := decode[engine.RestartResult](t, do(t, hb, http.MethodPost, "/api/v1/restart", testKey, []byte(`{"seed":42}`)))

	assert.Equal(t, uint32(42), ra.Seed)
	assert.Equal(t, 8, ra.Tiles) // ceil(19 * 40%)
	assert.Equal(t, a.World.PopulationByLocation(), b.World.PopulationByLocation())
	assert.Equal(t, uint32(42), a.Seed())
	assert.Equal(t, ra.Tiles, rb.Tiles)

	rc := decode[engine.RestartResult](t, do(t, ha, http.MethodPost, "/api/v1/restart", testKey, nil))
	assert.NotZero(t, rc.Seed)
}

func TestSpeedAndRunner(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/speed", testKey, []byte(`{"speed":"warp"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, engine.DefaultSpeed, decode[map[string]any](t, rec)["speed"])

	rec = do(t, h, http.MethodPost, "/api/v1/runner/start", testKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["started"])
	assert.True(t, s.Runner.IsRunning())

	// Changing speed while running keeps the runner going.
	do(t, h, http.MethodPost, "/api/v1/speed", testKey, []byte(`{"speed":"1_month"}`))
	assert.True(t, s.Runner.IsRunning())

	require.Eventually(t, func() bool { return s.ticks.Load() > 0 }, 2*time.Second, 10*time.Millisecond)

	rec = do(t, h, http.MethodPost, "/api/v1/runner/stop", testKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, s.Runner.IsRunning())

	speeds := decode[map[string]any](t, do(t, h, http.MethodGet, "/api/v1/speeds", "", nil))
	assert.Equal(t, "1_month", speeds["current"])
}

func TestArchiveRoundTrip(t *testing.T) {
	db, err := persistence.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := newTestServer(t)
	s.DB = db
	res, err := s.RestartWorld(77)
	require.NoError(t, err)
	s.World.TickN(20)
	s.SetSpeed("1_month")
	require.NoError(t, s.Archive())

	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/archive/events?limit=5", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	fresh := newTestServer(t)
	fresh.DB = db
	restored, err := fresh.RestoreArchive()
	require.NoError(t, err)
	assert.Equal(t, s.World.Population(), restored.Population)
	assert.Positive(t, res.Population)
	assert.Equal(t, uint32(77), fresh.Seed())
	assert.Equal(t, "1_month", fresh.Speed())
	assert.Equal(t, s.World.Date(), fresh.World.Date())
}

func TestOnTickPublishesAndAutosaves(t *testing.T) {
	db, err := persistence.Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := newTestServer(t)
	s.DB = db
	s.AutosaveEvery = 2
	s.World.SeedPopulation(4)

	id, ch := s.hub.subscribe()
	defer s.hub.unsubscribe(id)

	s.onTick(s.World.Tick())
	assert.False(t, db.HasWorldState())
	s.onTick(s.World.Tick())
	assert.True(t, db.HasWorldState())

	select {
	case res := <-ch:
		assert.Equal(t, calendar.Date{Year: 4000, Month: 1, Day: 2}, res.Date)
	case <-time.After(time.Second):
		t.Fatal("no tick published")
	}
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	var h hub
	id, ch := h.subscribe()
	for range subscriberBuffer + 10 {
		h.publish(engine.TickResult{})
	}
	assert.Len(t, ch, subscriberBuffer)
	h.unsubscribe(id)
	assert.Zero(t, h.len())
}

func TestStreamRequiresToken(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), http.MethodGet, "/api/v1/stream", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStreamDeliversTicks(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testKey)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return s.hub.len() == 1 }, time.Second, 10*time.Millisecond)
	s.onTick(s.World.Tick())

	buf := make([]byte, 4096)
	var got strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(got.String(), "event: tick") && time.Now().Before(deadline) {
		n, err := resp.Body.Read(buf)
		got.Write(buf[:n])
		if err != nil {
			break
		}
	}
	assert.Contains(t, got.String(), "event: status")
	assert.Contains(t, got.String(), "event: tick")
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
