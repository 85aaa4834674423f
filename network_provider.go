package sitetraffic

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/planar"
)

// SegmentSource Provides the road segments of a project area
type SegmentSource interface {
	Segments(ctx context.Context, project *Project) []RoadSegment
}

// fetchStrategy One way of obtaining segments, tried in declared order
type fetchStrategy struct {
	name string
	run  func(ctx context.Context, project *Project) ([]RoadSegment, error)
}

// NetworkProvider Fetches the drivable road network of a project's map
// bounds and caches it on disk. Never returns an error to callers: fetch
// failures degrade to an empty segment list so dashboards render "no data"
// instead of crashing.
type NetworkProvider struct {
	CacheDir string
	Client   *OverpassClient
	PBFPath  string // optional offline extract
	Logger   *slog.Logger

	locker *pathLocker
}

// NewNetworkProvider creates a provider caching into cacheDir
func NewNetworkProvider(cacheDir string, client *OverpassClient) *NetworkProvider {
	return &NetworkProvider{
		CacheDir: cacheDir,
		Client:   client,
		locker:   newPathLocker(),
	}
}

func (p *NetworkProvider) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// NetworkCacheKey returns the deterministic cache key for a project and its
// map-bounds ring. Same project and ring always hash to the same key.
func NetworkCacheKey(projectID string, ring [][]float64) string {
	canonical, _ := json.Marshal(ring)
	digest := xxhash.New()
	digest.WriteString(projectID)
	digest.WriteString("_")
	digest.Write(canonical)
	return fmt.Sprintf("%016x", digest.Sum64())
}

func (p *NetworkProvider) cacheFile(key string) string {
	return filepath.Join(p.CacheDir, fmt.Sprintf("osm_segments_%s.json", key))
}

// Segments returns the road segments for the project's map bounds, from the
// disk cache when possible. A degenerate polygon (fewer than 3 ring points)
// yields an empty list.
func (p *NetworkProvider) Segments(ctx context.Context, project *Project) []RoadSegment {
	ring := project.BoundsRing()
	polygon := project.BoundsPolygon()
	if polygon == nil {
		p.log().Debug("degenerate map bounds, no segments", "project", project.ID)
		return []RoadSegment{}
	}

	fname := p.cacheFile(NetworkCacheKey(project.ID, ring))
	unlock := p.locker.Acquire(fname)
	defer unlock()

	if segments, ok := p.readCache(fname); ok {
		return segments
	}

	for _, strategy := range p.strategies(polygon) {
		segments, err := strategy.run(ctx, project)
		if err != nil {
			p.log().Warn("segment fetch failed", "strategy", strategy.name, "project", project.ID, "err", err)
			continue
		}
		if len(segments) == 0 {
			p.log().Debug("segment fetch returned nothing", "strategy", strategy.name, "project", project.ID)
			continue
		}
		if err := p.writeCache(fname, segments); err != nil {
			p.log().Warn("can't persist segment cache", "project", project.ID, "err", err)
		}
		return segments
	}
	return []RoadSegment{}
}

func (p *NetworkProvider) strategies(polygon orb.Polygon) []fetchStrategy {
	strategies := []fetchStrategy{}
	if p.Client != nil {
		strategies = append(strategies,
			fetchStrategy{"polygon", func(ctx context.Context, project *Project) ([]RoadSegment, error) {
				data, err := p.Client.QueryPolygon(ctx, polygon[0])
				if err != nil {
					return nil, err
				}
				return segmentsFromOSM(data), nil
			}},
			fetchStrategy{"bbox+clip", func(ctx context.Context, project *Project) ([]RoadSegment, error) {
				bound := polygon.Bound().Pad(0.008)
				data, err := p.Client.QueryBBox(ctx, bound)
				if err != nil {
					return nil, err
				}
				return clipSegmentsToPolygon(segmentsFromOSM(data), polygon), nil
			}},
		)
	}
	if p.PBFPath != "" {
		strategies = append(strategies,
			fetchStrategy{"pbf", func(ctx context.Context, project *Project) ([]RoadSegment, error) {
				return ImportSegmentsFromPBF(ctx, p.PBFPath, polygon)
			}},
		)
	}
	return strategies
}

// readCache loads a cached segment list. Empty or unreadable cache files
// are removed and treated as a miss.
func (p *NetworkProvider) readCache(fname string) ([]RoadSegment, bool) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, false
	}
	segments := []RoadSegment{}
	if err := json.Unmarshal(data, &segments); err != nil || len(segments) == 0 {
		p.log().Warn("dropping corrupt segment cache", "file", fname)
		os.Remove(fname)
		return nil, false
	}
	return segments, true
}

func (p *NetworkProvider) writeCache(fname string, segments []RoadSegment) error {
	data, err := json.Marshal(segments)
	if err != nil {
		return err
	}
	return writeFileAtomic(fname, data)
}

// clipSegmentsToPolygon trims segment geometry to the polygon's bounding box
// and keeps segments with at least one vertex inside the polygon itself.
func clipSegmentsToPolygon(segments []RoadSegment, polygon orb.Polygon) []RoadSegment {
	bound := polygon.Bound()
	clipped := []RoadSegment{}
	for i := range segments {
		line := segments[i].Geometry()
		if len(line) < 2 {
			continue
		}
		trimmed := clipLineToBound(bound, line)
		if len(trimmed) < 2 {
			continue
		}
		inside := false
		for _, pt := range trimmed {
			if planar.PolygonContains(polygon, pt) {
				inside = true
				break
			}
		}
		if !inside {
			continue
		}
		segment := segments[i]
		segment.Coordinates = lineToCoordinates(trimmed)
		segment.LengthM = sphericalLengthMeters(trimmed)
		clipped = append(clipped, segment)
	}
	return clipped
}

// clipLineToBound clips a polyline to a bounding box. A line leaving and
// re-entering the box splits into pieces; the longest piece represents the
// segment on the map.
func clipLineToBound(bound orb.Bound, line orb.LineString) orb.LineString {
	switch geom := clip.Geometry(bound, line).(type) {
	case orb.LineString:
		return geom
	case orb.MultiLineString:
		longest := orb.LineString{}
		longestLength := 0.0
		for _, piece := range geom {
			if l := sphericalLengthMeters(piece); l > longestLength {
				longest = piece
				longestLength = l
			}
		}
		return longest
	}
	return nil
}
