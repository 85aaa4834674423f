package sitetraffic

import (
	"fmt"
	"math"

	"github.com/LdDl/ch"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// AccessRouteTolerance Matching tolerance between a segment and an access
// route polyline, in degrees. Roughly 50 meters at mid latitudes.
const AccessRouteTolerance = 0.0005

// MatchAccessSegments returns the ids of all segments lying within tol
// degrees of any access route polyline. Delivery traffic is attributed to
// exactly these segments.
func MatchAccessSegments(routes []orb.LineString, segments []RoadSegment, tol float64) map[string]bool {
	matched := make(map[string]bool)
	if len(routes) == 0 {
		return matched
	}
	for i := range segments {
		line := segments[i].Geometry()
		if len(line) < 2 {
			continue
		}
		for _, route := range routes {
			if lineToLineDistance(line, route) <= tol {
				matched[segments[i].SegmentID] = true
				break
			}
		}
	}
	return matched
}

// DeriveAccessRoute derives an access route for a project without a drawn
// one: the shortest path over the segment graph from the segment endpoint
// nearest the site centroid to the endpoint nearest the map-bounds boundary.
func DeriveAccessRoute(segments []RoadSegment, bounds orb.Polygon) (orb.LineString, error) {
	if len(segments) == 0 {
		return nil, errors.New("No segments to derive route from")
	}
	if len(bounds) == 0 || len(bounds[0]) < 3 {
		return nil, errors.New("Degenerate map bounds")
	}

	vertexID := make(map[string]int64)
	vertexGeom := make(map[int64]orb.Point)
	nextID := int64(0)
	vertexFor := func(pt orb.Point) int64 {
		key := fmt.Sprintf("%.6f_%.6f", pt.Lon(), pt.Lat())
		if id, ok := vertexID[key]; ok {
			return id
		}
		id := nextID
		nextID++
		vertexID[key] = id
		vertexGeom[id] = pt
		return id
	}

	graph := ch.Graph{}
	for i := range segments {
		line := segments[i].Geometry()
		if len(line) < 2 {
			continue
		}
		source := vertexFor(line[0])
		target := vertexFor(line[len(line)-1])
		if source == target {
			continue
		}
		if err := graph.CreateVertex(source); err != nil {
			return nil, errors.Wrap(err, "Can't create source vertex")
		}
		if err := graph.CreateVertex(target); err != nil {
			return nil, errors.Wrap(err, "Can't create target vertex")
		}
		cost := segments[i].LengthM
		if cost <= 0 {
			cost = sphericalLengthMeters(line)
		}
		// Access roads are usable both ways by delivery vehicles.
		if err := graph.AddEdge(source, target, cost); err != nil {
			return nil, errors.Wrap(err, "Can't add edge")
		}
		if err := graph.AddEdge(target, source, cost); err != nil {
			return nil, errors.Wrap(err, "Can't add reverse edge")
		}
	}
	if len(vertexGeom) < 2 {
		return nil, errors.New("Not enough graph vertices")
	}

	centroid := findCentroid([]orb.Point(bounds[0]))
	ring := bounds[0]

	sourceVertex, targetVertex := int64(-1), int64(-1)
	bestSource, bestTarget := math.Inf(1), math.Inf(1)
	for id, pt := range vertexGeom {
		if d := euclideanDistance(pt, centroid); d < bestSource {
			bestSource = d
			sourceVertex = id
		}
		boundaryDist := math.Inf(1)
		for j := 1; j < len(ring); j++ {
			if d := pointToSegmentDistance(pt, ring[j-1], ring[j]); d < boundaryDist {
				boundaryDist = d
			}
		}
		if boundaryDist < bestTarget {
			bestTarget = boundaryDist
			targetVertex = id
		}
	}
	if sourceVertex == targetVertex {
		return nil, errors.New("Site centroid and boundary resolve to the same vertex")
	}

	graph.PrepareContractionHierarchies()
	cost, path := graph.ShortestPath(sourceVertex, targetVertex)
	if cost < 0 || len(path) < 2 {
		return nil, errors.New("No path between site and boundary")
	}

	route := make(orb.LineString, 0, len(path))
	for _, id := range path {
		route = append(route, vertexGeom[id])
	}
	return route, nil
}
