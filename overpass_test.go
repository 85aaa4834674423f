package sitetraffic

import (
	"testing"

	"github.com/paulmach/osm"
)

func TestIsDrivable(t *testing.T) {
	for _, tag := range []string{"motorway", "residential", "service", "living_street"} {
		if !isDrivable(tag) {
			t.Errorf("Highway type '%s' must be drivable", tag)
		}
	}
	for _, tag := range []string{"footway", "cycleway", "track", "path", "steps"} {
		if isDrivable(tag) {
			t.Errorf("Highway type '%s' must not be drivable", tag)
		}
	}
}

func TestSegmentsFromOSM(t *testing.T) {
	data := &osm.OSM{
		Nodes: osm.Nodes{
			{ID: 1, Lon: 13.40, Lat: 52.52},
			{ID: 2, Lon: 13.41, Lat: 52.52},
			{ID: 3, Lon: 13.42, Lat: 52.52},
		},
		Ways: osm.Ways{
			{
				ID:    100,
				Nodes: osm.WayNodes{{ID: 1}, {ID: 2}, {ID: 3}},
				Tags:  osm.Tags{{Key: "highway", Value: "residential"}, {Key: "name", Value: "Wohnstrasse"}},
			},
			{
				ID:    101,
				Nodes: osm.WayNodes{{ID: 1}, {ID: 2}},
				Tags:  osm.Tags{{Key: "highway", Value: "footway"}},
			},
			{
				ID:    102,
				Nodes: osm.WayNodes{{ID: 1}},
				Tags:  osm.Tags{{Key: "highway", Value: "residential"}},
			},
			{
				ID:    103,
				Nodes: osm.WayNodes{{ID: 1}, {ID: 2}},
				Tags:  osm.Tags{{Key: "building", Value: "yes"}},
			},
		},
	}

	segments := segmentsFromOSM(data)
	if len(segments) != 1 {
		t.Fatalf("Only the drivable way with enough nodes must survive, got %d segments", len(segments))
	}
	seg := segments[0]
	if seg.SegmentID != "100" || seg.Name != "Wohnstrasse" || seg.HighwayType != "residential" {
		t.Errorf("Unexpected segment attributes: %+v", seg)
	}
	if len(seg.Coordinates) != 3 {
		t.Errorf("Segment must keep all 3 vertices, got %d", len(seg.Coordinates))
	}
	if seg.Capacity != 400 {
		t.Errorf("Residential capacity must be %d, but got %d", 400, seg.Capacity)
	}
	if seg.LengthM <= 0 {
		t.Errorf("Segment length must be positive, got %f", seg.LengthM)
	}
}

func TestSegmentsFromOSMWayNodeFallback(t *testing.T) {
	// Overpass 'out geom' responses carry coordinates on the way nodes
	// themselves instead of separate node elements.
	data := &osm.OSM{
		Ways: osm.Ways{{
			ID:    100,
			Nodes: osm.WayNodes{{ID: 1, Lon: 13.40, Lat: 52.52}, {ID: 2, Lon: 13.41, Lat: 52.52}},
			Tags:  osm.Tags{{Key: "highway", Value: "primary"}},
		}},
	}
	segments := segmentsFromOSM(data)
	if len(segments) != 1 {
		t.Fatalf("Way node coordinates must be used as fallback, got %d segments", len(segments))
	}
	if segments[0].Coordinates[0][0] != 13.40 {
		t.Errorf("Fallback coordinates must round trip, got %v", segments[0].Coordinates[0])
	}
}
