package sitetraffic

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/pkg/errors"
)

// ImportSegmentsFromPBF Extracts drivable road segments from a local file of
// PBF-format (in OSM terms), clipped to the given polygon.
/*
	Offline alternative to the Overpass fetch. The file should have PBF
	(Protocolbuffer Binary Format) extension according to
	https://github.com/paulmach/osm
*/
func ImportSegmentsFromPBF(ctx context.Context, fileName string, clipTo orb.Polygon) ([]RoadSegment, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "File open")
	}
	defer f.Close()

	// First pass: collect drivable ways and remember which nodes they need.
	scannerWays := osmpbf.New(ctx, f, 4)
	ways := []*osm.Way{}
	nodesNeeded := make(map[osm.NodeID]struct{})
	for scannerWays.Scan() {
		obj := scannerWays.Object()
		if obj.ObjectID().Type() != "way" {
			continue
		}
		way := obj.(*osm.Way)
		tag, ok := way.TagMap()["highway"]
		if !ok || !isDrivable(tag) {
			continue
		}
		ways = append(ways, way)
		for _, wayNode := range way.Nodes {
			nodesNeeded[wayNode.ID] = struct{}{}
		}
	}
	if err := scannerWays.Err(); err != nil {
		scannerWays.Close()
		return nil, errors.Wrap(err, "Scanner error (ways)")
	}
	scannerWays.Close()

	if _, err := f.Seek(0, 0); err != nil {
		return nil, errors.Wrap(err, "Can't rewind file")
	}

	// Second pass: resolve node geometry.
	scannerNodes := osmpbf.New(ctx, f, 4)
	defer scannerNodes.Close()
	nodes := make(map[osm.NodeID]orb.Point, len(nodesNeeded))
	for scannerNodes.Scan() {
		obj := scannerNodes.Object()
		if obj.ObjectID().Type() != "node" {
			continue
		}
		node := obj.(*osm.Node)
		if _, needed := nodesNeeded[node.ID]; needed {
			nodes[node.ID] = orb.Point{node.Lon, node.Lat}
		}
	}
	if err := scannerNodes.Err(); err != nil {
		return nil, errors.Wrap(err, "Scanner error (nodes)")
	}

	segments := []RoadSegment{}
	for _, way := range ways {
		line := make(orb.LineString, 0, len(way.Nodes))
		for _, wayNode := range way.Nodes {
			if pt, ok := nodes[wayNode.ID]; ok {
				line = append(line, pt)
			}
		}
		if len(line) < 2 {
			continue
		}
		tags := way.TagMap()
		segment := newRoadSegment(fmt.Sprintf("%d", way.ID), tags["name"], tags["highway"], line)
		segments = append(segments, segment)
	}
	if clipTo != nil {
		segments = clipSegmentsToPolygon(segments, clipTo)
	}
	return segments, nil
}
