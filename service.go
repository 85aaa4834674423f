package sitetraffic

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
)

// SimulationService Wires project records, the network provider, the
// schedule and the counter profiles into per-hour simulation runs. All
// derived per-project state (segments, schedule aggregates, access segment
// ids, counter profiles) is resolved once and reused.
type SimulationService struct {
	Projects    ProjectStore
	Network     SegmentSource
	Simulator   *TrafficSimulator
	Allocator   *DeliveryAllocator
	ProfilesDir string
	Logger      *slog.Logger

	mu        sync.Mutex
	segments  map[string][]RoadSegment
	schedules map[string]*Schedule
	counters  map[string]CounterSet
	accessIDs map[string]map[string]bool
}

// NewSimulationService creates a service over the given collaborators
func NewSimulationService(projects ProjectStore, network SegmentSource) *SimulationService {
	return &SimulationService{
		Projects:  projects,
		Network:   network,
		Simulator: &TrafficSimulator{},
		Allocator: NewDeliveryAllocator(),
		segments:  make(map[string][]RoadSegment),
		schedules: make(map[string]*Schedule),
		counters:  make(map[string]CounterSet),
		accessIDs: make(map[string]map[string]bool),
	}
}

func (s *SimulationService) log() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Project resolves a project record. Unknown ids surface ErrProjectNotFound.
func (s *SimulationService) Project(projectID string) (*Project, error) {
	return s.Projects.Get(projectID)
}

// ProjectSegments returns the (cached) road segments of a project area
func (s *SimulationService) ProjectSegments(ctx context.Context, project *Project) []RoadSegment {
	s.mu.Lock()
	cached, ok := s.segments[project.ID]
	s.mu.Unlock()
	if ok {
		return cached
	}
	segments := s.Network.Segments(ctx, project)
	s.mu.Lock()
	s.segments[project.ID] = segments
	s.mu.Unlock()
	return segments
}

func (s *SimulationService) projectSchedule(project *Project) *Schedule {
	s.mu.Lock()
	cached, ok := s.schedules[project.ID]
	s.mu.Unlock()
	if ok {
		return cached
	}
	var schedule *Schedule
	if project.SchedulePath != "" {
		loaded, err := LoadSchedule(project.SchedulePath)
		if err != nil {
			s.log().Warn("can't load delivery schedule", "project", project.ID, "err", err)
		} else {
			schedule = loaded
		}
	}
	s.mu.Lock()
	s.schedules[project.ID] = schedule
	s.mu.Unlock()
	return schedule
}

func (s *SimulationService) projectCounters(project *Project) CounterSet {
	s.mu.Lock()
	cached, ok := s.counters[project.ID]
	s.mu.Unlock()
	if ok {
		return cached
	}
	set := CounterSet{}
	if s.ProfilesDir != "" && len(project.Counters) > 0 {
		loaded, err := LoadCounterProfiles(s.ProfilesDir, project.Counters)
		if err != nil {
			s.log().Warn("can't load counter profiles", "project", project.ID, "err", err)
		} else {
			set = loaded
		}
	}
	s.mu.Lock()
	s.counters[project.ID] = set
	s.mu.Unlock()
	return set
}

// AccessSegmentIDs returns the (cached) ids of segments carrying delivery
// traffic. When a project has no drawn access route one is derived from the
// segment graph.
func (s *SimulationService) AccessSegmentIDs(ctx context.Context, project *Project) map[string]bool {
	s.mu.Lock()
	cached, ok := s.accessIDs[project.ID]
	s.mu.Unlock()
	if ok {
		return cached
	}

	segments := s.ProjectSegments(ctx, project)
	routes := project.AccessRouteLines()
	if len(routes) == 0 {
		if derived, err := DeriveAccessRoute(segments, project.BoundsPolygon()); err == nil {
			routes = []orb.LineString{derived}
		} else {
			s.log().Debug("no access route derivable", "project", project.ID, "err", err)
		}
	}
	matched := MatchAccessSegments(routes, segments, AccessRouteTolerance)

	s.mu.Lock()
	s.accessIDs[project.ID] = matched
	s.mu.Unlock()
	return matched
}

// Compute runs the simulation for one project, date and hour
func (s *SimulationService) Compute(ctx context.Context, project *Project, date time.Time, hour int) SimulationResult {
	dateStr := date.Format("2006-01-02")
	dailyTotal := s.projectSchedule(project).DeliveriesOn(dateStr)
	deliveries := s.Allocator.DeliveriesAt(project.ID, dateStr, hour, dailyTotal)

	return s.Simulator.Simulate(SimulationInput{
		Date:             date,
		Hour:             hour,
		Segments:         s.ProjectSegments(ctx, project),
		AccessSegmentIDs: s.AccessSegmentIDs(ctx, project),
		Deliveries:       deliveries,
		Counters:         s.projectCounters(project),
	})
}

// Invalidate drops all derived state of one project, forcing a re-resolve
// on next use. Needed when map bounds or the schedule file change.
func (s *SimulationService) Invalidate(projectID string) {
	s.mu.Lock()
	delete(s.segments, projectID)
	delete(s.schedules, projectID)
	delete(s.counters, projectID)
	delete(s.accessIDs, projectID)
	s.mu.Unlock()
	s.Allocator.Invalidate(projectID)
}
