package sitetraffic

import (
	"context"
	"time"
)

// DailyRollup Aggregate of all simulated delivery-window hours of one day
type DailyRollup struct {
	Date                string  `json:"date"`
	Hours               int     `json:"hours"`
	TotalTraffic        int     `json:"total_traffic"`
	PeakTraffic         int     `json:"peak_traffic"`
	PeakHour            int     `json:"peak_hour"`
	AverageCongestion   float64 `json:"average_congestion"`
	DeliveriesCount     int     `json:"deliveries_count"`
	ConstructionTraffic int     `json:"construction_traffic"`
}

// WeeklyRollup Aggregate of all delivery days of one ISO week
type WeeklyRollup struct {
	Year                int           `json:"year"`
	Week                int           `json:"week"`
	Days                []DailyRollup `json:"days"`
	TotalTraffic        int           `json:"total_traffic"`
	DeliveriesCount     int           `json:"deliveries_count"`
	ConstructionTraffic int           `json:"construction_traffic"`
}

// RollupDay reduces the per-hour results of one delivery day. Hours outside
// the project's delivery window are not simulated and not included.
func (c *ResultCache) RollupDay(ctx context.Context, projectID string, date time.Time) (DailyRollup, error) {
	project, err := c.Computer.Project(projectID)
	if err != nil {
		return DailyRollup{}, err
	}

	rollup := DailyRollup{Date: date.Format("2006-01-02"), PeakHour: -1}
	startHour, endHour := project.DeliveryHours.Hours()
	congestionSum := 0.0
	for hour := startHour; hour <= endHour; hour++ {
		result, err := c.Get(ctx, projectID, date, hour)
		if err != nil {
			return DailyRollup{}, err
		}
		rollup.Hours++
		rollup.TotalTraffic += result.Stats.TotalTraffic
		rollup.DeliveriesCount += result.Stats.DeliveriesCount
		rollup.ConstructionTraffic += result.Stats.ConstructionTraffic
		congestionSum += result.Stats.AverageCongestion
		if result.Stats.TotalTraffic > rollup.PeakTraffic {
			rollup.PeakTraffic = result.Stats.TotalTraffic
			rollup.PeakHour = hour
		}
	}
	if rollup.Hours > 0 {
		rollup.AverageCongestion = congestionSum / float64(rollup.Hours)
	}
	return rollup, nil
}

// RollupWeek reduces one ISO week to its per-day rollups plus week totals.
// Only the project's delivery weekdays contribute.
func (c *ResultCache) RollupWeek(ctx context.Context, projectID string, year, week int) (WeeklyRollup, error) {
	project, err := c.Computer.Project(projectID)
	if err != nil {
		return WeeklyRollup{}, err
	}

	rollup := WeeklyRollup{Year: year, Week: week, Days: []DailyRollup{}}
	allowed := project.DeliveryWeekdays()
	monday := isoWeekStart(year, week)
	for dayOffset := 0; dayOffset < 7; dayOffset++ {
		day := monday.AddDate(0, 0, dayOffset)
		if !allowed[day.Weekday()] {
			continue
		}
		daily, err := c.RollupDay(ctx, projectID, day)
		if err != nil {
			return WeeklyRollup{}, err
		}
		rollup.Days = append(rollup.Days, daily)
		rollup.TotalTraffic += daily.TotalTraffic
		rollup.DeliveriesCount += daily.DeliveriesCount
		rollup.ConstructionTraffic += daily.ConstructionTraffic
	}
	return rollup, nil
}
