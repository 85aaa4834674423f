package sitetraffic

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// ExportHourToCSV writes one simulated hour to a semicolon-separated CSV
// with the segment geometry as WKT in the last column.
func ExportHourToCSV(result *SimulationResult, fname string) error {
	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"date", "hour", "segment_id", "name", "highway_type", "capacity", "traffic_volume", "congestion_level", "construction_traffic", "geom"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	for i := range result.TrafficSegments {
		seg := &result.TrafficSegments[i]
		line := RoadSegment{Coordinates: seg.Coordinates}
		err = writer.Write([]string{
			result.Date,
			fmt.Sprintf("%d", result.Hour),
			seg.SegmentID,
			seg.Name,
			seg.HighwayType,
			fmt.Sprintf("%d", seg.Capacity),
			fmt.Sprintf("%d", seg.TrafficVolume),
			fmt.Sprintf("%f", seg.CongestionLevel),
			fmt.Sprintf("%d", seg.ConstructionTraffic),
			wkt.MarshalString(line.Geometry()),
		})
		if err != nil {
			return errors.Wrap(err, "Can't write segment")
		}
	}
	return nil
}

// ExportWeekToCSV writes the per-day rollups of one ISO week plus every
// simulated hour's stats to a semicolon-separated CSV.
func (c *ResultCache) ExportWeekToCSV(ctx context.Context, projectID string, year, week int, fname string) error {
	project, err := c.Computer.Project(projectID)
	if err != nil {
		return err
	}

	file, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()
	writer.Comma = ';'

	err = writer.Write([]string{"date", "hour", "total_traffic", "average_congestion", "deliveries_count", "access_traffic", "construction_traffic", "construction_share_pct"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}

	allowed := project.DeliveryWeekdays()
	startHour, endHour := project.DeliveryHours.Hours()
	monday := isoWeekStart(year, week)
	for dayOffset := 0; dayOffset < 7; dayOffset++ {
		day := monday.AddDate(0, 0, dayOffset)
		if !allowed[day.Weekday()] {
			continue
		}
		for hour := startHour; hour <= endHour; hour++ {
			result, err := c.Get(ctx, projectID, day, hour)
			if err != nil {
				return err
			}
			err = writer.Write([]string{
				result.Date,
				fmt.Sprintf("%d", result.Hour),
				fmt.Sprintf("%d", result.Stats.TotalTraffic),
				fmt.Sprintf("%f", result.Stats.AverageCongestion),
				fmt.Sprintf("%d", result.Stats.DeliveriesCount),
				fmt.Sprintf("%d", result.Stats.AccessTraffic),
				fmt.Sprintf("%d", result.Stats.ConstructionTraffic),
				fmt.Sprintf("%f", result.Stats.ConstructionSharePct),
			})
			if err != nil {
				return errors.Wrap(err, "Can't write row")
			}
		}
	}
	return nil
}
