package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/talgya/gridworld/internal/agents"
	"github.com/talgya/gridworld/internal/engine"
	"github.com/talgya/gridworld/internal/events"
	"github.com/talgya/gridworld/internal/world"
)

const (
	defaultEventLimit  = 100
	defaultRecentYears = 10
	maxEventLimit      = 1000
)

// queryInt reads an integer query parameter, returning def when absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func queryUint32(r *http.Request, key string, def uint32) (uint32, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return uint32(v), nil
}

func parseLocation(raw string) (agents.LocationID, error) {
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid location %q", raw)
	}
	return agents.LocationID(v), nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	date := s.World.Date()
	status := map[string]any{
		"name":           "gridworld",
		"date":           date,
		"date_text":      date.String(),
		"population":     s.World.Population(),
		"next_person_id": s.World.NextPersonID(),
		"event_count":    s.World.EventCount(),
		"running":        s.Runner.IsRunning(),
		"speed":          s.Speed(),
		"seed":           s.Seed(),
		"ticks":          s.ticks.Load(),
		"subscribers":    s.hub.len(),
		"archive":        s.DB != nil,
	}
	writeJSON(w, status)
}

func (s *Server) handleDemographics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		engine.Demographics
		AgeBracketLabels [7]string `json:"age_bracket_labels"`
	}{s.World.Demographics(), engine.AgeBracketLabels})
}

type locationSummary struct {
	engine.LocationCount
	Tile *world.Tile `json:"tile,omitempty"`
}

func (s *Server) tile(loc agents.LocationID) *world.Tile {
	if s.Map == nil {
		return nil
	}
	return s.Map.Tile(loc)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	counts := s.World.PopulationByLocation()
	out := make([]locationSummary, len(counts))
	for i, c := range counts {
		out[i] = locationSummary{LocationCount: c, Tile: s.tile(c.Location)}
	}
	writeJSON(w, out)
}

func (s *Server) handleLocationDetail(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	t := s.tile(loc)
	people := s.World.PeopleAt(loc)
	if t == nil && len(people) == 0 {
		writeError(w, http.StatusNotFound, "location not found")
		return
	}
	writeJSON(w, map[string]any{
		"location":   loc,
		"tile":       t,
		"population": len(people),
		"people":     people,
	})
}

func (s *Server) handlePeople(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("location")
	if raw == "" {
		writeJSON(w, s.World.People())
		return
	}
	loc, err := parseLocation(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, s.World.PeopleAt(loc))
}

func (s *Server) handlePerson(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid person id %q", raw))
		return
	}
	p, ok := s.World.Person(agents.PersonID(id))
	if !ok {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}
	writeJSON(w, p)
}

// handleVitalStats serves ?start=&end= year ranges; either bound defaults to
// the current year.
func (s *Server) handleVitalStats(w http.ResponseWriter, r *http.Request) {
	year := s.World.Date().Year
	start, err := queryUint32(r, "start", year)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := queryUint32(r, "end", year)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, s.World.VitalStatistics(start, end))
}

func (s *Server) handleCurrentStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.World.CurrentYearStatistics())
}

func (s *Server) handleRecentStats(w http.ResponseWriter, r *http.Request) {
	years, err := queryUint32(r, "years", defaultRecentYears)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, s.World.RecentStatistics(years))
}

func eventLimit(r *http.Request) (int, error) {
	limit, err := queryInt(r, "limit", defaultEventLimit)
	if err != nil {
		return 0, err
	}
	return min(max(limit, 0), maxEventLimit), nil
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := eventLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recent := s.World.RecentEvents(limit)
	if recent == nil {
		recent = []events.Event{}
	}
	writeJSON(w, map[string]any{
		"total":  s.World.EventCount(),
		"events": recent,
	})
}

func (s *Server) handleArchiveEvents(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, errNoArchive.Error())
		return
	}
	limit, err := eventLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	archived, err := s.DB.RecentEvents(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, archived)
}

func (s *Server) handleSpeeds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"current": s.Speed(),
		"speeds":  engine.Speeds,
	})
}

// handleMap serves every tile with its current population.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if s.Map == nil {
		writeError(w, http.StatusNotFound, "no map loaded")
		return
	}
	pop := make(map[agents.LocationID]int)
	for _, c := range s.World.PopulationByLocation() {
		pop[c.Location] = c.Count
	}

	type tileSummary struct {
		*world.Tile
		Population int `json:"population"`
	}
	tiles := make([]tileSummary, len(s.Map.Tiles))
	for i, t := range s.Map.Tiles {
		tiles[i] = tileSummary{Tile: t, Population: pop[t.ID]}
	}
	writeJSON(w, map[string]any{
		"radius":    s.Map.Radius,
		"habitable": len(s.Map.Habitable()),
		"tiles":     tiles,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	text, err := s.World.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="world.json"`)
	w.Write(text)
}
