package sitetraffic

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Assumed station capacities used to translate counted vehicles into a
// congestion share. Primary stations sit on the main approach and weigh
// heavier in the ambient average.
const (
	primaryCounterCapacity   = 500.0
	secondaryCounterCapacity = 400.0
	primaryCounterWeight     = 1.5
)

type profileRow struct {
	weekday  string // English weekday name
	month    int
	hour     int
	vehicles float64
}

// CounterProfile Hourly vehicle counts of one counting station, bucketed by
// weekday and month
type CounterProfile struct {
	ID        string
	Direction string
	Primary   bool
	rows      []profileRow
}

// VehiclesAt returns the counted vehicles for given date and hour. Falls
// back to the month+hour mean when the exact weekday bucket is missing.
func (p *CounterProfile) VehiclesAt(date time.Time, hour int) int {
	weekday := date.Weekday().String()
	month := int(date.Month())
	for i := range p.rows {
		row := &p.rows[i]
		if row.weekday == weekday && row.month == month && row.hour == hour {
			return int(math.Round(row.vehicles))
		}
	}
	sum, n := 0.0, 0
	for i := range p.rows {
		row := &p.rows[i]
		if row.month == month && row.hour == hour {
			sum += row.vehicles
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(math.Round(sum / float64(n)))
}

// CounterSet Reference counting stations selected for a project
type CounterSet []*CounterProfile

// AmbientTraffic returns the summed counted vehicles and the weighted mean
// congestion over all stations for given date and hour
func (cs CounterSet) AmbientTraffic(date time.Time, hour int) (int, float64) {
	if len(cs) == 0 {
		return 0, 0
	}
	total := 0
	weightedSum, weightSum := 0.0, 0.0
	for _, profile := range cs {
		vehicles := profile.VehiclesAt(date, hour)
		total += vehicles

		capacity := secondaryCounterCapacity
		weight := 1.0
		if profile.Primary {
			capacity = primaryCounterCapacity
			weight = primaryCounterWeight
		}
		congestion := math.Min(1.0, float64(vehicles)/capacity)
		weightedSum += congestion * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return total, 0
	}
	return total, weightedSum / weightSum
}

// LoadCounterProfiles reads profile CSV files <dir>/<id>_<direction>.csv for
// the given station selection. Missing profile files are skipped; a project
// without loadable profiles simply runs without ambient context.
func LoadCounterProfiles(dir string, refs []CounterRef) (CounterSet, error) {
	set := CounterSet{}
	for _, ref := range refs {
		fname := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", ref.ID, ref.Direction))
		profile, err := loadCounterProfile(fname)
		if err != nil {
			if os.IsNotExist(errors.Cause(err)) {
				continue
			}
			return nil, err
		}
		profile.ID = ref.ID
		profile.Direction = ref.Direction
		profile.Primary = ref.Primary
		set = append(set, profile)
	}
	return set, nil
}

func loadCounterProfile(fname string) (*CounterProfile, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open profile file")
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse profile file")
	}
	if len(records) < 2 {
		return &CounterProfile{}, nil
	}

	colIdx := map[string]int{}
	for i, name := range records[0] {
		colIdx[strings.TrimSpace(name)] = i
	}
	for _, col := range []string{"weekday", "month", "hour", "vehicles"} {
		if _, ok := colIdx[col]; !ok {
			return nil, errors.Errorf("Profile file misses '%s' column", col)
		}
	}

	maxIdx := colIdx["weekday"]
	for _, col := range []string{"month", "hour", "vehicles"} {
		if colIdx[col] > maxIdx {
			maxIdx = colIdx[col]
		}
	}

	profile := &CounterProfile{rows: make([]profileRow, 0, len(records)-1)}
	for _, record := range records[1:] {
		if len(record) <= maxIdx {
			continue
		}
		month, err := strconv.Atoi(strings.TrimSpace(record[colIdx["month"]]))
		if err != nil {
			continue
		}
		hour, err := strconv.Atoi(strings.TrimSpace(record[colIdx["hour"]]))
		if err != nil {
			continue
		}
		vehicles, err := strconv.ParseFloat(strings.TrimSpace(record[colIdx["vehicles"]]), 64)
		if err != nil {
			continue
		}
		profile.rows = append(profile.rows, profileRow{
			weekday:  strings.TrimSpace(record[colIdx["weekday"]]),
			month:    month,
			hour:     hour,
			vehicles: vehicles,
		})
	}
	return profile, nil
}
