package sitetraffic

import (
	"math"
	"time"

	"github.com/cespare/xxhash/v2"
)

// StatsPolicy Controls how the aggregate totals of an hour are derived
type StatsPolicy int

const (
	// StatsAuto Counter-based totals when profiles are loaded, degraded
	// segment-only output otherwise. Matches the dashboard behaviour.
	StatsAuto = StatsPolicy(iota)
	// StatsCounters Always counter-based totals, zero without profiles
	StatsCounters
	// StatsSegments Totals summed from the simulated segment volumes
	StatsSegments
)

// SimulationInput One (project, date, hour) simulation request
type SimulationInput struct {
	Date             time.Time
	Hour             int
	Segments         []RoadSegment
	AccessSegmentIDs map[string]bool
	Deliveries       int // deliveries allocated to this hour
	Counters         CounterSet
}

// TrafficSimulator Computes deterministic synthetic per-segment traffic
type TrafficSimulator struct {
	Policy StatsPolicy
}

// segmentMultiplier returns the stable pseudo-random factor in [0.30, 1.00]
// for a segment. Derived from the segment id only, so a segment keeps its
// multiplier across hours, calls and process restarts.
func segmentMultiplier(segmentID string) float64 {
	return float64(xxhash.Sum64String(segmentID)%71+30) / 100.0
}

// degradedMultiplier Weaker variant in [0.10, 0.59] used without counter context
func degradedMultiplier(segmentID string) float64 {
	return float64(xxhash.Sum64String(segmentID)%50+10) / 100.0
}

// timeOfDayFactor returns the driving share of the utilization window for an
// hour, lifted by the ambient congestion measured at the reference counters.
func timeOfDayFactor(hour int, ambientCongestion float64) float64 {
	factor := 0.15
	switch {
	case hour >= 7 && hour <= 9:
		factor += 0.65 + ambientCongestion*0.40
	case hour >= 16 && hour <= 18:
		factor += 0.60 + ambientCongestion*0.40
	case hour >= 10 && hour <= 15:
		factor += 0.25 + ambientCongestion*0.25
	default:
		factor += 0.10 + ambientCongestion*0.15
	}
	return math.Max(0.05, math.Min(factor, 1.0))
}

func degradedTimeFactor(hour int) float64 {
	switch {
	case (hour >= 7 && hour <= 9) || (hour >= 16 && hour <= 18):
		return 0.6
	case hour >= 10 && hour <= 15:
		return 0.4
	}
	return 0.3
}

// Simulate computes the traffic state of every segment for one hour and the
// aggregate stats. Never fails: with no segments it returns an empty,
// well-formed result.
func (s *TrafficSimulator) Simulate(in SimulationInput) SimulationResult {
	result := SimulationResult{
		Date:            in.Date.Format("2006-01-02"),
		Hour:            in.Hour,
		TrafficSegments: []TrafficSegment{},
	}

	hasCounters := len(in.Counters) > 0
	if !hasCounters && s.Policy != StatsSegments {
		return s.simulateDegraded(in, result)
	}

	counterTotal, ambientCongestion := in.Counters.AmbientTraffic(in.Date, in.Hour)
	timeFactor := timeOfDayFactor(in.Hour, ambientCongestion)

	accessCount := len(in.AccessSegmentIDs)
	accessTraffic := 0
	volumeSum := 0
	congestionSum := 0.0
	for i := range in.Segments {
		seg := &in.Segments[i]
		capacity := seg.Capacity
		if capacity == 0 {
			capacity = DefaultCapacity
		}

		window := utilizationFor(seg.HighwayType)
		driven := window.min + (window.max-window.min)*timeFactor
		multiplier := segmentMultiplier(seg.SegmentID)
		utilization := math.Max(0.005, math.Min(driven*multiplier, 1.0))

		volume := float64(capacity) * utilization
		if ceiling, ok := flowCeilingFor(seg.HighwayType); ok {
			volume = math.Min(volume, ceiling*multiplier*timeFactor)
		}
		volume = math.Max(0, math.Min(volume, float64(capacity)*1.5))

		construction := 0.0
		if accessCount > 0 && in.AccessSegmentIDs[seg.SegmentID] {
			construction = float64(in.Deliveries*2) / float64(accessCount)
			volume += construction
		}

		congestion := math.Min(1.0, volume/float64(capacity))
		result.TrafficSegments = append(result.TrafficSegments, TrafficSegment{
			SegmentID:           seg.SegmentID,
			Coordinates:         seg.Coordinates,
			Name:                seg.Name,
			HighwayType:         seg.HighwayType,
			Capacity:            capacity,
			TrafficVolume:       int(volume),
			CongestionLevel:     congestion,
			ConstructionTraffic: int(construction),
		})

		if in.AccessSegmentIDs[seg.SegmentID] {
			accessTraffic += int(volume)
		}
		volumeSum += int(volume)
		congestionSum += congestion
	}

	result.Stats = SimulationStats{
		TotalTraffic:        counterTotal,
		AverageCongestion:   ambientCongestion,
		DeliveriesCount:     in.Deliveries,
		AccessTraffic:       accessTraffic,
		ConstructionTraffic: in.Deliveries,
	}
	if s.Policy == StatsSegments {
		result.Stats.TotalTraffic = volumeSum
		if len(result.TrafficSegments) > 0 {
			result.Stats.AverageCongestion = congestionSum / float64(len(result.TrafficSegments))
		} else {
			result.Stats.AverageCongestion = 0
		}
	}
	if accessTraffic > 0 {
		result.Stats.ConstructionSharePct = float64(in.Deliveries*2) / float64(accessTraffic) * 100.0
	}
	return result
}

// simulateDegraded renders segments without any counted-traffic context.
// Volumes stay plausible for the map layer but the aggregate stats are
// zeroed so dashboards show "no data" instead of invented totals.
func (s *TrafficSimulator) simulateDegraded(in SimulationInput, result SimulationResult) SimulationResult {
	timeFactor := degradedTimeFactor(in.Hour)
	for i := range in.Segments {
		seg := &in.Segments[i]
		capacity := seg.Capacity
		if capacity == 0 {
			capacity = DefaultCapacity
		}
		volume := float64(capacity) * degradedMultiplier(seg.SegmentID) * timeFactor
		volume = math.Min(volume, float64(capacity)*1.2)
		congestion := math.Min(1.0, volume/float64(capacity))
		result.TrafficSegments = append(result.TrafficSegments, TrafficSegment{
			SegmentID:       seg.SegmentID,
			Coordinates:     seg.Coordinates,
			Name:            seg.Name,
			HighwayType:     seg.HighwayType,
			Capacity:        capacity,
			TrafficVolume:   int(volume),
			CongestionLevel: congestion,
		})
	}
	return result
}
