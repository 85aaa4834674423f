package sitetraffic

import (
	"github.com/paulmach/orb"
)

// RoadSegment One edge of the road network restricted to the project's map bounds
type RoadSegment struct {
	SegmentID   string      `json:"segment_id"`
	Coordinates [][]float64 `json:"coordinates"` // ordered [lon, lat] pairs
	Name        string      `json:"name"`
	HighwayType string      `json:"highway_type"`
	LengthM     float64     `json:"length"`
	Capacity    int         `json:"capacity"`
}

// Geometry returns segment polyline as orb.LineString
func (seg *RoadSegment) Geometry() orb.LineString {
	line := make(orb.LineString, 0, len(seg.Coordinates))
	for _, pt := range seg.Coordinates {
		if len(pt) < 2 {
			continue
		}
		line = append(line, orb.Point{pt[0], pt[1]})
	}
	return line
}

func lineToCoordinates(line orb.LineString) [][]float64 {
	coords := make([][]float64, len(line))
	for i := range line {
		coords[i] = []float64{line[i].Lon(), line[i].Lat()}
	}
	return coords
}

// newRoadSegment builds an annotated segment from raw geometry
func newRoadSegment(id, name, highwayType string, line orb.LineString) RoadSegment {
	return RoadSegment{
		SegmentID:   id,
		Coordinates: lineToCoordinates(line),
		Name:        name,
		HighwayType: highwayType,
		LengthM:     sphericalLengthMeters(line),
		Capacity:    CapacityFor(highwayType),
	}
}

// TrafficSegment Simulated state of one road segment for one hour
type TrafficSegment struct {
	SegmentID           string      `json:"segment_id"`
	Coordinates         [][]float64 `json:"coordinates"`
	Name                string      `json:"name"`
	HighwayType         string      `json:"highway_type"`
	Capacity            int         `json:"capacity"`
	TrafficVolume       int         `json:"traffic_volume"`
	CongestionLevel     float64     `json:"congestion_level"`
	ConstructionTraffic int         `json:"construction_traffic"`
}

// SimulationStats Aggregate summary for one simulated hour
type SimulationStats struct {
	TotalTraffic         int     `json:"total_traffic"`
	AverageCongestion    float64 `json:"average_congestion"`
	DeliveriesCount      int     `json:"deliveries_count"`
	AccessTraffic        int     `json:"access_traffic"`
	ConstructionTraffic  int     `json:"construction_traffic"`
	ConstructionSharePct float64 `json:"construction_share_pct"`
}

// SimulationResult Output of simulating one project at one date+hour
type SimulationResult struct {
	Date            string           `json:"date"` // YYYY-MM-DD
	Hour            int              `json:"hour"`
	TrafficSegments []TrafficSegment `json:"traffic_segments"`
	Stats           SimulationStats  `json:"stats"`
}
