package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bauverkehr/sitetraffic"
	"github.com/joho/godotenv"
)

var (
	projectsDir = flag.String("projects", "data/projects", "Directory holding one <id>.json file per project")
	projectID   = flag.String("project", "", "ID of the project to simulate")
	dateStr     = flag.String("date", "", "Date to simulate (YYYY-MM-DD). Empty: today")
	hour        = flag.Int("hour", -1, "Single hour to simulate (0-23). Negative: whole ISO week of the date")
	cacheDir    = flag.String("cache", "data/cache", "Directory for the road network cache")
	pbfFile     = flag.String("pbf", "", "Optional *.osm.pbf extract used when the Overpass API is unreachable")
	profilesDir = flag.String("profiles", "data/counters", "Directory holding traffic counter profiles (<id>_<direction>.csv)")
	storeKind   = flag.String("store", "fs", "Result persistence backend. Expected values: fs / sqlite / none")
	storePath   = flag.String("storepath", "data/simulations", "Directory (fs) or database file (sqlite) for stored results")
	out         = flag.String("out", "", "Output filename. Empty: print stats to stdout only")
	outFormat   = flag.String("outf", "csv", "Format of output file. Expected values: csv / geojson (geojson needs -hour)")
	statsMode   = flag.String("stats", "auto", "Totals source. Expected values: auto / counters / segments")
	endpoint    = flag.String("overpass", sitetraffic.DefaultOverpassEndpoint, "Overpass API endpoint")
)

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func statsPolicy(mode string) (sitetraffic.StatsPolicy, error) {
	switch strings.ToLower(mode) {
	case "auto":
		return sitetraffic.StatsAuto, nil
	case "counters":
		return sitetraffic.StatsCounters, nil
	case "segments":
		return sitetraffic.StatsSegments, nil
	}
	return sitetraffic.StatsAuto, fmt.Errorf("unknown stats mode '%s'", mode)
}

func openStore(kind, path string) (sitetraffic.ResultStore, func(), error) {
	switch strings.ToLower(kind) {
	case "fs":
		return sitetraffic.NewFSResultStore(path), func() {}, nil
	case "sqlite":
		store, err := sitetraffic.NewSQLiteResultStore(path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "none":
		return nil, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend '%s'", kind)
}

func main() {
	godotenv.Load()
	flag.Parse()
	logger := newLogger()
	slog.SetDefault(logger)

	if *projectID == "" {
		fmt.Fprintln(os.Stderr, "missing -project")
		flag.Usage()
		os.Exit(2)
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if *dateStr != "" {
		parsed, err := time.Parse("2006-01-02", *dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad -date '%s': %v\n", *dateStr, err)
			os.Exit(2)
		}
		date = parsed
	}

	policy, err := statsPolicy(*statsMode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	store, closeStore, err := openStore(*storeKind, *storePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer closeStore()

	provider := sitetraffic.NewNetworkProvider(*cacheDir, sitetraffic.NewOverpassClient(*endpoint))
	provider.PBFPath = *pbfFile
	provider.Logger = logger

	service := sitetraffic.NewSimulationService(sitetraffic.NewFSProjectStore(*projectsDir), provider)
	service.Simulator.Policy = policy
	service.ProfilesDir = *profilesDir
	service.Logger = logger

	cache := sitetraffic.NewResultCache(service)
	cache.Store = store
	cache.Logger = logger

	ctx := context.Background()
	if *hour >= 0 {
		if err := runHour(ctx, cache, date); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}
	if err := runWeek(ctx, cache, date); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runHour(ctx context.Context, cache *sitetraffic.ResultCache, date time.Time) error {
	result, err := cache.Get(ctx, *projectID, date, *hour)
	if err != nil {
		return err
	}
	fmt.Printf("%s %02d:00 traffic=%d congestion=%.2f deliveries=%d construction_share=%.1f%%\n",
		result.Date, result.Hour, result.Stats.TotalTraffic, result.Stats.AverageCongestion,
		result.Stats.DeliveriesCount, result.Stats.ConstructionSharePct)

	if *out == "" {
		return nil
	}
	switch strings.ToLower(*outFormat) {
	case "geojson":
		data, err := sitetraffic.ResultGeoJSONBytes(&result)
		if err != nil {
			return err
		}
		return os.WriteFile(*out, data, 0644)
	case "csv":
		return sitetraffic.ExportHourToCSV(&result, *out)
	}
	return fmt.Errorf("unknown output format '%s'", *outFormat)
}

func runWeek(ctx context.Context, cache *sitetraffic.ResultCache, date time.Time) error {
	year, week := date.ISOWeek()
	st := time.Now()
	if err := cache.PreloadWeek(ctx, *projectID, year, week); err != nil {
		return err
	}
	slog.Debug("week preloaded", "year", year, "week", week, "took", time.Since(st))

	rollup, err := cache.RollupWeek(ctx, *projectID, year, week)
	if err != nil {
		return err
	}
	fmt.Printf("week %d/%02d: days=%d traffic=%d deliveries=%d construction=%d\n",
		year, week, len(rollup.Days), rollup.TotalTraffic, rollup.DeliveriesCount, rollup.ConstructionTraffic)
	for _, day := range rollup.Days {
		fmt.Printf("  %s: traffic=%d peak=%d@%02d:00 congestion=%.2f deliveries=%d\n",
			day.Date, day.TotalTraffic, day.PeakTraffic, day.PeakHour, day.AverageCongestion, day.DeliveriesCount)
	}

	if *out == "" {
		return nil
	}
	if strings.ToLower(*outFormat) != "csv" {
		return fmt.Errorf("week export supports csv only")
	}
	return cache.ExportWeekToCSV(ctx, *projectID, year, week, *out)
}
