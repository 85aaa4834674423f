package sitetraffic

import (
	"testing"

	"github.com/paulmach/orb"
)

func TestMatchAccessSegments(t *testing.T) {
	segments := []RoadSegment{
		newRoadSegment("near", "", "service", orb.LineString{{13.4000, 52.5200}, {13.4010, 52.5200}}),
		newRoadSegment("far", "", "service", orb.LineString{{13.4000, 52.5300}, {13.4010, 52.5300}}),
		newRoadSegment("within_tol", "", "service", orb.LineString{{13.4000, 52.5204}, {13.4010, 52.5204}}),
	}
	route := orb.LineString{{13.3990, 52.5200}, {13.4020, 52.5200}}

	matched := MatchAccessSegments([]orb.LineString{route}, segments, AccessRouteTolerance)
	if !matched["near"] {
		t.Errorf("Segment on the route must match")
	}
	if !matched["within_tol"] {
		t.Errorf("Segment within tolerance must match")
	}
	if matched["far"] {
		t.Errorf("Segment 0.01 degrees away must not match")
	}

	if len(MatchAccessSegments(nil, segments, AccessRouteTolerance)) != 0 {
		t.Errorf("No routes must match nothing")
	}
}

func TestDeriveAccessRoute(t *testing.T) {
	// A straight chain of three segments from the site center to the boundary.
	segments := []RoadSegment{
		newRoadSegment("a", "", "service", orb.LineString{{13.4100, 52.5250}, {13.4120, 52.5250}}),
		newRoadSegment("b", "", "service", orb.LineString{{13.4120, 52.5250}, {13.4140, 52.5250}}),
		newRoadSegment("c", "", "service", orb.LineString{{13.4140, 52.5250}, {13.4160, 52.5250}}),
	}
	bounds := orb.Polygon{{
		{13.4040, 52.5200}, {13.4160, 52.5200}, {13.4160, 52.5300}, {13.4040, 52.5300}, {13.4040, 52.5200},
	}}

	route, err := DeriveAccessRoute(segments, bounds)
	if err != nil {
		t.Fatal(err)
	}
	if len(route) < 2 {
		t.Fatalf("Derived route must have at least 2 vertices, got %d", len(route))
	}
	first, last := route[0], route[len(route)-1]
	if first.Lon() > last.Lon() {
		first, last = last, first
	}
	if first != (orb.Point{13.4100, 52.5250}) {
		t.Errorf("Route must start at the vertex nearest the centroid, got %v", first)
	}
	if last != (orb.Point{13.4160, 52.5250}) {
		t.Errorf("Route must end at the vertex nearest the boundary, got %v", last)
	}
}

func TestDeriveAccessRouteDegenerate(t *testing.T) {
	if _, err := DeriveAccessRoute(nil, orb.Polygon{}); err == nil {
		t.Errorf("No segments must fail")
	}
	segments := []RoadSegment{
		newRoadSegment("a", "", "service", orb.LineString{{13.41, 52.525}, {13.412, 52.525}}),
	}
	if _, err := DeriveAccessRoute(segments, orb.Polygon{}); err == nil {
		t.Errorf("Degenerate bounds must fail")
	}
}
