package sitetraffic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// DefaultOverpassEndpoint Public Overpass API instance
const DefaultOverpassEndpoint = "https://overpass-api.de/api/interpreter"

// Highway tags considered drivable for delivery traffic. Matches the
// 'drive_service' selection of the dashboard: service roads included,
// footways, cycleways and tracks not.
var drivableHighways = map[string]struct{}{
	"motorway":         {},
	"motorway_link":    {},
	"trunk":            {},
	"trunk_link":       {},
	"primary":          {},
	"primary_link":     {},
	"secondary":        {},
	"secondary_link":   {},
	"tertiary":         {},
	"tertiary_link":    {},
	"unclassified":     {},
	"residential":      {},
	"residential_link": {},
	"living_street":    {},
	"service":          {},
	"road":             {},
}

func isDrivable(tag string) bool {
	_, ok := drivableHighways[tag]
	return ok
}

// OverpassClient Minimal Overpass API client for highway extraction
type OverpassClient struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewOverpassClient creates client for given endpoint (or the public default)
func NewOverpassClient(endpoint string) *OverpassClient {
	if endpoint == "" {
		endpoint = DefaultOverpassEndpoint
	}
	return &OverpassClient{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// QueryPolygon fetches all highway ways whose geometry lies within the ring
func (c *OverpassClient) QueryPolygon(ctx context.Context, ring orb.Ring) (*osm.OSM, error) {
	if len(ring) < 3 {
		return nil, errors.New("Polygon ring needs at least 3 points")
	}
	poly := make([]string, 0, len(ring))
	for _, pt := range ring {
		poly = append(poly, fmt.Sprintf("%f %f", pt.Lat(), pt.Lon()))
	}
	query := fmt.Sprintf(
		`[out:json][timeout:60];(way["highway"](poly:"%s"););(._;>;);out body;`,
		strings.Join(poly, " "),
	)
	return c.run(ctx, query)
}

// QueryBBox fetches all highway ways intersecting the bounding box
func (c *OverpassClient) QueryBBox(ctx context.Context, bound orb.Bound) (*osm.OSM, error) {
	query := fmt.Sprintf(
		`[out:json][timeout:60];(way["highway"](%f,%f,%f,%f););(._;>;);out body;`,
		bound.Min.Lat(), bound.Min.Lon(), bound.Max.Lat(), bound.Max.Lon(),
	)
	return c.run(ctx, query)
}

func (c *OverpassClient) run(ctx context.Context, query string) (*osm.OSM, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "Can't build overpass request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "Overpass request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("Overpass returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read overpass response")
	}
	data := &osm.OSM{}
	if err := json.Unmarshal(body, data); err != nil {
		return nil, errors.Wrap(err, "Can't decode overpass response")
	}
	return data, nil
}

// segmentsFromOSM turns an OSM extract into annotated road segments. Ways
// without a drivable highway tag or with less than 2 resolvable nodes are
// skipped.
func segmentsFromOSM(data *osm.OSM) []RoadSegment {
	nodes := make(map[osm.NodeID]orb.Point, len(data.Nodes))
	for _, node := range data.Nodes {
		nodes[node.ID] = orb.Point{node.Lon, node.Lat}
	}

	segments := []RoadSegment{}
	for _, way := range data.Ways {
		tags := way.TagMap()
		highway, ok := tags["highway"]
		if !ok || !isDrivable(highway) {
			continue
		}
		line := make(orb.LineString, 0, len(way.Nodes))
		for _, wayNode := range way.Nodes {
			if pt, ok := nodes[wayNode.ID]; ok {
				line = append(line, pt)
			} else if wayNode.Lon != 0 || wayNode.Lat != 0 {
				line = append(line, orb.Point{wayNode.Lon, wayNode.Lat})
			}
		}
		if len(line) < 2 {
			continue
		}
		segments = append(segments, newRoadSegment(
			fmt.Sprintf("%d", way.ID),
			tags["name"],
			highway,
			line,
		))
	}
	return segments
}
