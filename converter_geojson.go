package sitetraffic

import (
	geojson "github.com/paulmach/go.geojson"
)

// ResultToGeoJSON returns one simulated hour as a GeoJSON FeatureCollection.
// Each traffic segment becomes a LineString feature carrying the simulated
// volume, congestion and construction share as properties, ready for any
// web map layer.
func ResultToGeoJSON(result *SimulationResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range result.TrafficSegments {
		seg := &result.TrafficSegments[i]
		feature := geojson.NewLineStringFeature(seg.Coordinates)
		feature.SetProperty("segment_id", seg.SegmentID)
		feature.SetProperty("name", seg.Name)
		feature.SetProperty("highway_type", seg.HighwayType)
		feature.SetProperty("capacity", seg.Capacity)
		feature.SetProperty("traffic_volume", seg.TrafficVolume)
		feature.SetProperty("congestion_level", seg.CongestionLevel)
		feature.SetProperty("construction_traffic", seg.ConstructionTraffic)
		feature.SetProperty("date", result.Date)
		feature.SetProperty("hour", result.Hour)
		fc.AddFeature(feature)
	}
	return fc
}

// ResultGeoJSONBytes returns the FeatureCollection serialized to JSON
func ResultGeoJSONBytes(result *SimulationResult) ([]byte, error) {
	return ResultToGeoJSON(result).MarshalJSON()
}
