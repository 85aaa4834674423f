package sitetraffic

// Hourly vehicle capacities by OSM highway tag. Values follow the common
// planning assumption of capacity per direction for a single carriageway.
var capacityByHighway = map[string]int{
	"motorway":       2000,
	"trunk":          1800,
	"primary":        1500,
	"secondary":      1000,
	"tertiary":       700,
	"motorway_link":  1000,
	"trunk_link":     900,
	"primary_link":   750,
	"secondary_link": 500,
	"tertiary_link":  350,
	"residential":    400,
	"unclassified":   300,
	"road":           300,
	"living_street":  100,
	"service":        150,
	"track":          50,
	"path":           30,
	"cycleway":       50,
	"footway":        20,
	"pedestrian":     20,
	"steps":          10,
}

// DefaultCapacity Fallback hourly capacity for unknown highway types
const DefaultCapacity = 200

// CapacityFor Returns assumed hourly vehicle capacity for given highway type
func CapacityFor(highwayType string) int {
	if capacity, ok := capacityByHighway[highwayType]; ok {
		return capacity
	}
	return DefaultCapacity
}

// utilizationWindow Min/max share of capacity a road type carries over a day
type utilizationWindow struct {
	min float64
	max float64
}

var utilizationByHighway = map[string]utilizationWindow{
	"motorway":      {0.30, 0.85},
	"trunk":         {0.30, 0.85},
	"primary":       {0.30, 0.85},
	"secondary":     {0.20, 0.70},
	"tertiary":      {0.20, 0.70},
	"residential":   {0.03, 0.25},
	"living_street": {0.01, 0.15},
	"service":       {0.02, 0.20},
	"unclassified":  {0.10, 0.40},
	"road":          {0.10, 0.40},
}

var defaultUtilization = utilizationWindow{0.05, 0.20}

func utilizationFor(highwayType string) utilizationWindow {
	if w, ok := utilizationByHighway[highwayType]; ok {
		return w
	}
	return defaultUtilization
}

// Absolute hourly flow ceilings for quiet road types. Without these the
// capacity driven estimate overstates side street traffic.
const (
	maxFlowResidential = 30.0
	maxFlowServiceLike = 15.0
)

func flowCeilingFor(highwayType string) (float64, bool) {
	switch highwayType {
	case "residential":
		return maxFlowResidential, true
	case "service", "living_street", "track", "path":
		return maxFlowServiceLike, true
	}
	return 0, false
}
