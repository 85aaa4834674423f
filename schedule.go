package sitetraffic

import (
	"bufio"
	"encoding/csv"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DeliveryDayAggregate Per-day delivery demand derived from the schedule file
type DeliveryDayAggregate struct {
	Date       string  `json:"date"` // YYYY-MM-DD
	Persons    float64 `json:"persons"`
	Material   float64 `json:"material"`
	Deliveries int     `json:"deliveries"`
}

// Schedule Daily aggregates of a project's construction delivery schedule
type Schedule struct {
	days map[string]*DeliveryDayAggregate
}

// DeliveriesOn returns the delivery count for given date (YYYY-MM-DD)
func (s *Schedule) DeliveriesOn(date string) int {
	if s == nil {
		return 0
	}
	if day, ok := s.days[date]; ok {
		return day.Deliveries
	}
	return 0
}

// Days returns all aggregates ordered by date
func (s *Schedule) Days() []DeliveryDayAggregate {
	if s == nil {
		return nil
	}
	out := make([]DeliveryDayAggregate, 0, len(s.days))
	for _, day := range s.days {
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

var leadingNumber = regexp.MustCompile(`^\d+`)

// coerceNumeric extracts a numeric value from a schedule cell. Values like
// "21Kran1211510" yield 21; anything without a usable number yields 0.
func coerceNumeric(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64); err == nil {
		return v
	}
	if prefix := leadingNumber.FindString(raw); prefix != "" {
		if v, err := strconv.ParseFloat(prefix, 64); err == nil {
			return v
		}
	}
	return 0
}

// rowDeliveries One delivery per started 10 material units, at least one
// delivery whenever any material arrives at all.
func rowDeliveries(material float64) int {
	if material <= 0 {
		return 0
	}
	n := int(math.Ceil(material / 10.0))
	if n < 1 {
		n = 1
	}
	return n
}

var scheduleDateLayouts = []string{"2006-01-02", "02.01.2006", "2006/01/02"}

// normalizeScheduleDate extracts YYYY-MM-DD from the start timestamp cell
func normalizeScheduleDate(raw string) (string, bool) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return "", false
	}
	for _, layout := range scheduleDateLayouts {
		if t, err := time.Parse(layout, fields[0]); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// LoadSchedule reads a delivery schedule CSV with the columns
// Anfangstermin (start timestamp), Personen and Material and aggregates it
// per start date. Bad numeric cells are coerced to 0 instead of failing the
// whole aggregation.
func LoadSchedule(fname string) (*Schedule, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open schedule file")
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	head, _ := buffered.Peek(512)

	reader := csv.NewReader(buffered)
	if strings.Count(string(head), ";") > strings.Count(string(head), ",") {
		reader.Comma = ';'
	}
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "Can't parse schedule file")
	}
	if len(records) == 0 {
		return &Schedule{days: map[string]*DeliveryDayAggregate{}}, nil
	}

	colIdx := map[string]int{}
	for i, name := range records[0] {
		colIdx[strings.TrimSpace(name)] = i
	}
	startIdx, ok := colIdx["Anfangstermin"]
	if !ok {
		return nil, errors.New("Schedule file has no 'Anfangstermin' column")
	}
	personsIdx, hasPersons := colIdx["Personen"]
	materialIdx, hasMaterial := colIdx["Material"]

	days := map[string]*DeliveryDayAggregate{}
	for _, record := range records[1:] {
		if startIdx >= len(record) {
			continue
		}
		date, ok := normalizeScheduleDate(record[startIdx])
		if !ok {
			continue
		}
		day, exists := days[date]
		if !exists {
			day = &DeliveryDayAggregate{Date: date}
			days[date] = day
		}
		if hasPersons && personsIdx < len(record) {
			day.Persons += coerceNumeric(record[personsIdx])
		}
		if hasMaterial && materialIdx < len(record) {
			material := coerceNumeric(record[materialIdx])
			day.Material += material
			day.Deliveries += rowDeliveries(material)
		}
	}
	return &Schedule{days: days}, nil
}
