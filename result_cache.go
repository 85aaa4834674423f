package sitetraffic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ResultComputer Produces simulation results and resolves project records.
// Implemented by SimulationService; tests substitute counting stubs.
type ResultComputer interface {
	Project(projectID string) (*Project, error)
	Compute(ctx context.Context, project *Project, date time.Time, hour int) SimulationResult
}

// ResultCache Memoizes simulation results per (project, date, hour), week
// by week. Entries are grouped by ISO week so that switching the dashboard
// to another week can drop exactly the stale week of one project.
type ResultCache struct {
	Computer ResultComputer
	Store    ResultStore // optional persistence across sessions
	Logger   *slog.Logger

	mu         sync.Mutex
	weeks      map[string]map[string]map[string]SimulationResult // project -> weekID -> date:hour
	activeWeek map[string]string
}

// NewResultCache creates a cache over the given computer
func NewResultCache(computer ResultComputer) *ResultCache {
	return &ResultCache{
		Computer:   computer,
		weeks:      make(map[string]map[string]map[string]SimulationResult),
		activeWeek: make(map[string]string),
	}
}

func (c *ResultCache) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func weekID(date time.Time) string {
	year, week := date.ISOWeek()
	return fmt.Sprintf("%d_%02d", year, week)
}

func entryKey(date string, hour int) string {
	return fmt.Sprintf("%s:%d", date, hour)
}

// Get returns the simulation result for (project, date, hour), computing
// and memoizing it on first request. Unknown project ids surface the
// resolver's error.
func (c *ResultCache) Get(ctx context.Context, projectID string, date time.Time, hour int) (SimulationResult, error) {
	week := weekID(date)
	dateStr := date.Format("2006-01-02")
	key := entryKey(dateStr, hour)

	c.mu.Lock()
	if result, ok := c.weeks[projectID][week][key]; ok {
		c.mu.Unlock()
		return result, nil
	}
	c.mu.Unlock()

	project, err := c.Computer.Project(projectID)
	if err != nil {
		return SimulationResult{}, err
	}

	if c.Store != nil {
		if stored, ok := c.Store.Load(projectID, dateStr, hour); ok {
			c.put(projectID, week, key, *stored)
			return *stored, nil
		}
	}

	result := c.Computer.Compute(ctx, project, date, hour)
	c.put(projectID, week, key, result)
	if c.Store != nil {
		if err := c.Store.Save(projectID, &result); err != nil {
			c.log().Warn("can't persist simulation result", "project", projectID, "err", err)
		}
	}
	return result, nil
}

func (c *ResultCache) put(projectID, week, key string, result SimulationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.weeks[projectID] == nil {
		c.weeks[projectID] = make(map[string]map[string]SimulationResult)
	}
	if c.weeks[projectID][week] == nil {
		c.weeks[projectID][week] = make(map[string]SimulationResult)
	}
	c.weeks[projectID][week][key] = result
}

// isoWeekStart returns the Monday of the given ISO week
func isoWeekStart(year, week int) time.Time {
	// January 4th is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	_, w := jan4.ISOWeek()
	monday := jan4.AddDate(0, 0, -(int(jan4.Weekday())+6)%7)
	return monday.AddDate(0, 0, (week-w)*7)
}

// PreloadWeek computes and stores every delivery-day/delivery-hour result of
// the given ISO week. Selecting a new week drops the previously active
// week's entries of this project only. Idempotent: already cached hours are
// not recomputed.
func (c *ResultCache) PreloadWeek(ctx context.Context, projectID string, year, week int) error {
	project, err := c.Computer.Project(projectID)
	if err != nil {
		return err
	}

	target := fmt.Sprintf("%d_%02d", year, week)
	c.mu.Lock()
	if previous, ok := c.activeWeek[projectID]; ok && previous != target {
		delete(c.weeks[projectID], previous)
	}
	c.activeWeek[projectID] = target
	c.mu.Unlock()

	allowed := project.DeliveryWeekdays()
	startHour, endHour := project.DeliveryHours.Hours()
	monday := isoWeekStart(year, week)
	for dayOffset := 0; dayOffset < 7; dayOffset++ {
		day := monday.AddDate(0, 0, dayOffset)
		if !allowed[day.Weekday()] {
			continue
		}
		for hour := startHour; hour <= endHour; hour++ {
			if _, err := c.Get(ctx, projectID, day, hour); err != nil {
				return err
			}
		}
	}
	return nil
}

// InvalidateProject drops every cached week of one project
func (c *ResultCache) InvalidateProject(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.weeks, projectID)
	delete(c.activeWeek, projectID)
}
