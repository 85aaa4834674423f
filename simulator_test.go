package sitetraffic

import (
	"testing"
	"time"
)

func testSegments() []RoadSegment {
	return []RoadSegment{
		{SegmentID: "1", Name: "Hauptstrasse", HighwayType: "primary", Capacity: 1500,
			Coordinates: [][]float64{{13.40, 52.52}, {13.41, 52.52}}},
		{SegmentID: "2", Name: "Wohnstrasse", HighwayType: "residential", Capacity: 400,
			Coordinates: [][]float64{{13.41, 52.52}, {13.41, 52.53}}},
		{SegmentID: "3", Name: "Zufahrt", HighwayType: "service", Capacity: 150,
			Coordinates: [][]float64{{13.41, 52.53}, {13.42, 52.53}}},
	}
}

func testCounters() CounterSet {
	rows := []profileRow{}
	for hour := 0; hour < 24; hour++ {
		vehicles := 40.0
		if hour >= 7 && hour <= 9 {
			vehicles = 320.0
		}
		rows = append(rows, profileRow{weekday: "Monday", month: 3, hour: hour, vehicles: vehicles})
	}
	return CounterSet{&CounterProfile{ID: "c1", Direction: "north", Primary: true, rows: rows}}
}

func TestSimulateDeterministic(t *testing.T) {
	sim := &TrafficSimulator{}
	in := SimulationInput{
		Date:             time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), // a Monday
		Hour:             8,
		Segments:         testSegments(),
		AccessSegmentIDs: map[string]bool{"3": true},
		Deliveries:       6,
		Counters:         testCounters(),
	}
	first := sim.Simulate(in)
	second := sim.Simulate(in)

	if len(first.TrafficSegments) != len(second.TrafficSegments) {
		t.Fatalf("Segment count must be stable, got %d and %d", len(first.TrafficSegments), len(second.TrafficSegments))
	}
	for i := range first.TrafficSegments {
		a, b := first.TrafficSegments[i], second.TrafficSegments[i]
		if a.TrafficVolume != b.TrafficVolume || a.CongestionLevel != b.CongestionLevel {
			t.Errorf("Segment %s must simulate identically, got volume %d/%d congestion %f/%f",
				a.SegmentID, a.TrafficVolume, b.TrafficVolume, a.CongestionLevel, b.CongestionLevel)
		}
	}
	if first.Stats != second.Stats {
		t.Errorf("Stats must be identical across runs, got %+v and %+v", first.Stats, second.Stats)
	}
}

func TestSimulateRushHourBusier(t *testing.T) {
	sim := &TrafficSimulator{}
	base := SimulationInput{
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Segments: testSegments(),
		Counters: testCounters(),
	}

	morning := base
	morning.Hour = 8
	night := base
	night.Hour = 23

	rush := sim.Simulate(morning)
	quiet := sim.Simulate(night)

	for i := range rush.TrafficSegments {
		if rush.TrafficSegments[i].CongestionLevel < quiet.TrafficSegments[i].CongestionLevel {
			t.Errorf("Segment %s must be at least as congested at 08:00 as at 23:00, got %f vs %f",
				rush.TrafficSegments[i].SegmentID,
				rush.TrafficSegments[i].CongestionLevel, quiet.TrafficSegments[i].CongestionLevel)
		}
		if rush.TrafficSegments[i].SegmentID == "2" &&
			rush.TrafficSegments[i].CongestionLevel <= quiet.TrafficSegments[i].CongestionLevel {
			t.Errorf("Residential segment must be strictly more congested at 08:00 than at 23:00, got %f vs %f",
				rush.TrafficSegments[i].CongestionLevel, quiet.TrafficSegments[i].CongestionLevel)
		}
	}
}

func TestSimulateCongestionMonotonicInCapacity(t *testing.T) {
	sim := &TrafficSimulator{}
	simulateAt := func(capacity int) SimulationResult {
		return sim.Simulate(SimulationInput{
			Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			Hour: 8,
			Segments: []RoadSegment{{SegmentID: "2", HighwayType: "residential", Capacity: capacity,
				Coordinates: [][]float64{{13.41, 52.52}, {13.41, 52.53}}}},
			AccessSegmentIDs: map[string]bool{"2": true},
			Deliveries:       6,
			Counters:         testCounters(),
		})
	}

	narrow := simulateAt(400).TrafficSegments[0]
	wide := simulateAt(1200).TrafficSegments[0]
	if wide.CongestionLevel > narrow.CongestionLevel {
		t.Errorf("Higher capacity must not raise congestion, got %f at capacity 400 and %f at capacity 1200",
			narrow.CongestionLevel, wide.CongestionLevel)
	}
	// The residential flow ceiling binds here, so tripling the capacity must
	// actually lower the congestion, not just keep it equal.
	if wide.CongestionLevel >= narrow.CongestionLevel {
		t.Errorf("Ceiling-bound segment must get less congested with more capacity, got %f and %f",
			narrow.CongestionLevel, wide.CongestionLevel)
	}
}

func TestSimulateAccessSegments(t *testing.T) {
	sim := &TrafficSimulator{}
	in := SimulationInput{
		Date:             time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Hour:             10,
		Segments:         testSegments(),
		AccessSegmentIDs: map[string]bool{"3": true},
		Deliveries:       8,
		Counters:         testCounters(),
	}
	withDeliveries := sim.Simulate(in)

	in.Deliveries = 0
	withoutDeliveries := sim.Simulate(in)

	var loaded, unloaded *TrafficSegment
	for i := range withDeliveries.TrafficSegments {
		if withDeliveries.TrafficSegments[i].SegmentID == "3" {
			loaded = &withDeliveries.TrafficSegments[i]
			unloaded = &withoutDeliveries.TrafficSegments[i]
		}
	}
	if loaded == nil {
		t.Fatal("Access segment missing from the result")
	}
	if loaded.ConstructionTraffic != 16 {
		t.Errorf("Access segment must carry %d construction vehicles, but got %d", 16, loaded.ConstructionTraffic)
	}
	if loaded.TrafficVolume <= unloaded.TrafficVolume {
		t.Errorf("Deliveries must add volume on the access segment, got %d vs %d", loaded.TrafficVolume, unloaded.TrafficVolume)
	}
	if withDeliveries.Stats.DeliveriesCount != 8 {
		t.Errorf("Stats must carry the delivery count %d, but got %d", 8, withDeliveries.Stats.DeliveriesCount)
	}
	if withDeliveries.Stats.ConstructionSharePct <= 0 {
		t.Errorf("Construction share must be positive with deliveries on the access route")
	}
}

func TestSimulateCongestionBounds(t *testing.T) {
	sim := &TrafficSimulator{}
	in := SimulationInput{
		Date:             time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Hour:             8,
		Segments:         testSegments(),
		AccessSegmentIDs: map[string]bool{"3": true},
		Deliveries:       500,
		Counters:         testCounters(),
	}
	result := sim.Simulate(in)
	for _, seg := range result.TrafficSegments {
		if seg.CongestionLevel < 0 || seg.CongestionLevel > 1 {
			t.Errorf("Congestion of segment %s must stay within [0, 1], but got %f", seg.SegmentID, seg.CongestionLevel)
		}
		if seg.TrafficVolume < 0 {
			t.Errorf("Volume of segment %s must not be negative, got %d", seg.SegmentID, seg.TrafficVolume)
		}
	}
}

func TestSimulateDegradedWithoutCounters(t *testing.T) {
	sim := &TrafficSimulator{}
	in := SimulationInput{
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Hour:     8,
		Segments: testSegments(),
	}
	result := sim.Simulate(in)
	if len(result.TrafficSegments) != 3 {
		t.Fatalf("Degraded mode must still render all %d segments, got %d", 3, len(result.TrafficSegments))
	}
	if result.Stats.TotalTraffic != 0 || result.Stats.AverageCongestion != 0 {
		t.Errorf("Degraded mode must zero the aggregate stats, got %+v", result.Stats)
	}
	for _, seg := range result.TrafficSegments {
		if seg.TrafficVolume <= 0 {
			t.Errorf("Degraded segment %s must still carry some volume", seg.SegmentID)
		}
	}
}

func TestSimulateSegmentsPolicy(t *testing.T) {
	sim := &TrafficSimulator{Policy: StatsSegments}
	in := SimulationInput{
		Date:     time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Hour:     8,
		Segments: testSegments(),
		Counters: testCounters(),
	}
	result := sim.Simulate(in)

	sum := 0
	for _, seg := range result.TrafficSegments {
		sum += seg.TrafficVolume
	}
	if result.Stats.TotalTraffic != sum {
		t.Errorf("Segment policy total must be %d, but got %d", sum, result.Stats.TotalTraffic)
	}
}

func TestSimulateEmptyInput(t *testing.T) {
	sim := &TrafficSimulator{}
	result := sim.Simulate(SimulationInput{
		Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Hour: 8,
	})
	if result.Date != "2026-03-02" || result.Hour != 8 {
		t.Errorf("Empty input must still produce a well-formed result, got %s %d", result.Date, result.Hour)
	}
	if result.TrafficSegments == nil {
		t.Errorf("Traffic segments must be an empty slice, not nil")
	}
}

func TestTimeOfDayFactor(t *testing.T) {
	if rush, lunch := timeOfDayFactor(8, 0.5), timeOfDayFactor(12, 0.5); rush <= lunch {
		t.Errorf("Morning rush factor must exceed midday, got %f vs %f", rush, lunch)
	}
	if f := timeOfDayFactor(8, 1.0); f != 1.0 {
		t.Errorf("Factor must be capped at 1.0, got %f", f)
	}
	if f := timeOfDayFactor(3, 0.0); f < 0.05 {
		t.Errorf("Factor must not drop below 0.05, got %f", f)
	}
}

func TestSegmentMultiplierStable(t *testing.T) {
	if segmentMultiplier("42") != segmentMultiplier("42") {
		t.Errorf("Segment multiplier must be stable per id")
	}
	m := segmentMultiplier("42")
	if m < 0.30 || m > 1.00 {
		t.Errorf("Segment multiplier must lie in [0.30, 1.00], got %f", m)
	}
}
