package sitetraffic

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	geojson "github.com/paulmach/go.geojson"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// ErrProjectNotFound Returned when an unknown project id is requested.
// Unlike network failures this indicates a caller error and is surfaced.
var ErrProjectNotFound = errors.New("project not found")

// CounterRef Reference to a traffic counting station selected for a project
type CounterRef struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
	Name      string `json:"name,omitempty"`
	Primary   bool   `json:"primary,omitempty"`
}

// DeliveryWindow Daily time window in which deliveries may arrive
type DeliveryWindow struct {
	Start string `json:"start"` // HH:MM
	End   string `json:"end"`   // HH:MM
}

// Hours returns the window as inclusive start/end hours, defaulting to 06:00-18:00
func (w DeliveryWindow) Hours() (int, int) {
	start := parseHour(w.Start, 6)
	end := parseHour(w.End, 18)
	if end < start {
		start, end = end, start
	}
	return start, end
}

func parseHour(s string, fallback int) int {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) == 0 || parts[0] == "" {
		return fallback
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return fallback
	}
	return h
}

// Project Construction site project record
type Project struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	MapBounds     *geojson.Geometry   `json:"map_bounds"`
	AccessRoutes  []*geojson.Geometry `json:"access_routes,omitempty"`
	DeliveryDays  []string            `json:"delivery_days,omitempty"` // German weekday names
	DeliveryHours DeliveryWindow      `json:"delivery_hours"`
	SchedulePath  string              `json:"file_path,omitempty"`
	Counters      []CounterRef        `json:"selected_counters,omitempty"`
}

var weekdayByGermanName = map[string]time.Weekday{
	"Montag":     time.Monday,
	"Dienstag":   time.Tuesday,
	"Mittwoch":   time.Wednesday,
	"Donnerstag": time.Thursday,
	"Freitag":    time.Friday,
	"Samstag":    time.Saturday,
	"Sonntag":    time.Sunday,
}

// DeliveryWeekdays returns allowed weekdays, defaulting to Monday-Friday
func (p *Project) DeliveryWeekdays() map[time.Weekday]bool {
	allowed := make(map[time.Weekday]bool)
	for _, name := range p.DeliveryDays {
		if wd, ok := weekdayByGermanName[name]; ok {
			allowed[wd] = true
		}
	}
	if len(allowed) == 0 {
		for wd := time.Monday; wd <= time.Friday; wd++ {
			allowed[wd] = true
		}
	}
	return allowed
}

// BoundsRing returns the exterior ring of the project map bounds as [lon, lat] pairs
func (p *Project) BoundsRing() [][]float64 {
	if p.MapBounds == nil || p.MapBounds.Type != geojson.GeometryPolygon {
		return nil
	}
	if len(p.MapBounds.Polygon) == 0 {
		return nil
	}
	return p.MapBounds.Polygon[0]
}

// BoundsPolygon returns the map bounds as an orb.Polygon (nil if degenerate)
func (p *Project) BoundsPolygon() orb.Polygon {
	ring := p.BoundsRing()
	if len(ring) < 3 {
		return nil
	}
	orbRing := make(orb.Ring, 0, len(ring))
	for _, pt := range ring {
		if len(pt) < 2 {
			continue
		}
		orbRing = append(orbRing, orb.Point{pt[0], pt[1]})
	}
	if len(orbRing) < 3 {
		return nil
	}
	if orbRing[0] != orbRing[len(orbRing)-1] {
		orbRing = append(orbRing, orbRing[0])
	}
	return orb.Polygon{orbRing}
}

// AccessRouteLines returns the access routes as polylines. Polygon routes
// contribute their exterior ring, matching how they are drawn in the editor.
func (p *Project) AccessRouteLines() []orb.LineString {
	lines := []orb.LineString{}
	for _, route := range p.AccessRoutes {
		if route == nil {
			continue
		}
		var coords [][]float64
		switch route.Type {
		case geojson.GeometryLineString:
			coords = route.LineString
		case geojson.GeometryPolygon:
			if len(route.Polygon) > 0 {
				coords = route.Polygon[0]
			}
		default:
			continue
		}
		if len(coords) < 2 {
			continue
		}
		line := make(orb.LineString, 0, len(coords))
		for _, pt := range coords {
			if len(pt) < 2 {
				continue
			}
			line = append(line, orb.Point{pt[0], pt[1]})
		}
		if len(line) >= 2 {
			lines = append(lines, line)
		}
	}
	return lines
}

// ProjectStore Resolves project records by id
type ProjectStore interface {
	Get(projectID string) (*Project, error)
}

// FSProjectStore Reads project records from <dir>/<id>.json
type FSProjectStore struct {
	Dir string
}

// NewFSProjectStore creates store over given directory
func NewFSProjectStore(dir string) *FSProjectStore {
	return &FSProjectStore{Dir: dir}
}

// Get returns project with given id or ErrProjectNotFound
func (s *FSProjectStore) Get(projectID string) (*Project, error) {
	if projectID == "" {
		return nil, ErrProjectNotFound
	}
	fname := filepath.Join(s.Dir, fmt.Sprintf("%s.json", projectID))
	data, err := os.ReadFile(fname)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrProjectNotFound, "id '%s'", projectID)
		}
		return nil, errors.Wrap(err, "Can't read project file")
	}
	project := &Project{}
	if err := json.Unmarshal(data, project); err != nil {
		return nil, errors.Wrap(err, "Can't decode project file")
	}
	if project.ID == "" {
		project.ID = projectID
	}
	return project, nil
}

// StaticProjectStore In-memory project resolver
type StaticProjectStore map[string]*Project

// Get returns project with given id or ErrProjectNotFound
func (s StaticProjectStore) Get(projectID string) (*Project, error) {
	if p, ok := s[projectID]; ok {
		return p, nil
	}
	return nil, errors.Wrapf(ErrProjectNotFound, "id '%s'", projectID)
}
