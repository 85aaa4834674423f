package sitetraffic

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResultToGeoJSON(t *testing.T) {
	result := testResult("2026-03-02", 8)
	fc := ResultToGeoJSON(result)
	if len(fc.Features) != 1 {
		t.Fatalf("Expected 1 feature, got %d", len(fc.Features))
	}
	feature := fc.Features[0]
	if id, err := feature.PropertyString("segment_id"); err != nil || id != "1" {
		t.Errorf("Feature must carry the segment id, got '%s' (%v)", id, err)
	}
	if volume, err := feature.PropertyInt("traffic_volume"); err != nil || volume != 480 {
		t.Errorf("Feature must carry the traffic volume, got %d (%v)", volume, err)
	}
	if hour, err := feature.PropertyInt("hour"); err != nil || hour != 8 {
		t.Errorf("Feature must carry the simulated hour, got %d (%v)", hour, err)
	}

	data, err := ResultGeoJSONBytes(result)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"FeatureCollection"`) {
		t.Errorf("Serialized output must be a FeatureCollection")
	}
}

func TestExportHourToCSV(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "hour.csv")
	if err := ExportHourToCSV(testResult("2026-03-02", 8), fname); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.Comma = ';'
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected header plus 1 row, got %d records", len(records))
	}
	if records[0][0] != "date" || records[0][len(records[0])-1] != "geom" {
		t.Errorf("Unexpected header: %v", records[0])
	}
	row := records[1]
	if row[0] != "2026-03-02" || row[1] != "8" || row[2] != "1" {
		t.Errorf("Unexpected row: %v", row)
	}
	if !strings.HasPrefix(row[len(row)-1], "LINESTRING") {
		t.Errorf("Geometry must be WKT, got '%s'", row[len(row)-1])
	}
}

func TestExportWeekToCSV(t *testing.T) {
	computer := newCountingComputer(cacheProject())
	cache := NewResultCache(computer)

	fname := filepath.Join(t.TempDir(), "week.csv")
	if err := cache.ExportWeekToCSV(context.Background(), "p1", 2026, 10, fname); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	reader := csv.NewReader(file)
	reader.Comma = ';'
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// Header plus 2 delivery days x 3 delivery hours.
	if len(records) != 7 {
		t.Fatalf("Expected 7 records, got %d", len(records))
	}
	if records[1][0] != "2026-03-02" || records[1][1] != "7" {
		t.Errorf("First row must be Monday 07:00, got %v", records[1])
	}
}
