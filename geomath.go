package sitetraffic

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	earthRadius = 6370.986884258304
	pi180       = math.Pi / 180.0
	pi180Rev    = 180.0 / math.Pi
)

// degreesToRadians deg = r * pi / 180
func degreesToRadians(d float64) float64 {
	return d * pi180
}

// radiansTodegrees r = deg * 180 / pi
func radiansTodegrees(d float64) float64 {
	return d * pi180Rev
}

// greatCircleDistance returns distance between two geo-points (kilometers)
func greatCircleDistance(p, q orb.Point) float64 {
	lat1 := degreesToRadians(p.Lat())
	lon1 := degreesToRadians(p.Lon())
	lat2 := degreesToRadians(q.Lat())
	lon2 := degreesToRadians(q.Lon())
	diffLat := lat2 - lat1
	diffLon := lon2 - lon1
	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(diffLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return c * earthRadius
}

// sphericalLengthMeters returns length for given polyline (meters)
func sphericalLengthMeters(line orb.LineString) float64 {
	totalLength := 0.0
	if len(line) < 2 {
		return totalLength
	}
	for i := 1; i < len(line); i++ {
		totalLength += greatCircleDistance(line[i-1], line[i])
	}
	return totalLength * 1000.0
}

// findCentroid returns center point for given set of points
func findCentroid(line []orb.Point) orb.Point {
	totalPoints := len(line)
	if totalPoints == 0 {
		return orb.Point{}
	}
	if totalPoints == 1 {
		return line[0]
	}
	x, y, z := 0.0, 0.0, 0.0
	for i := 0; i < totalPoints; i++ {
		longitude := degreesToRadians(line[i].Lon())
		latitude := degreesToRadians(line[i].Lat())
		c1 := math.Cos(latitude)
		x += c1 * math.Cos(longitude)
		y += c1 * math.Sin(longitude)
		z += math.Sin(latitude)
	}

	x /= float64(totalPoints)
	y /= float64(totalPoints)
	z /= float64(totalPoints)

	centralLongitude := math.Atan2(y, x)
	centralSquareRoot := math.Sqrt(x*x + y*y)
	centralLatitude := math.Atan2(z, centralSquareRoot)

	return orb.Point{radiansTodegrees(centralLongitude), radiansTodegrees(centralLatitude)}
}

// euclideanDistance returns distance between two points (assuming they are Euclidean: Lon == X, Lat == Y)
func euclideanDistance(p, q orb.Point) float64 {
	xdistance := p.Lon() - q.Lon()
	ydistance := p.Lat() - q.Lat()
	return math.Sqrt(xdistance*xdistance + ydistance*ydistance)
}

// pointToSegmentDistance returns distance (degrees) from point p to segment [a;b]
// Note: Euclidean space
func pointToSegmentDistance(p, a, b orb.Point) float64 {
	abX := b.Lon() - a.Lon()
	abY := b.Lat() - a.Lat()
	lenSq := abX*abX + abY*abY
	if lenSq == 0 {
		return euclideanDistance(p, a)
	}
	t := ((p.Lon()-a.Lon())*abX + (p.Lat()-a.Lat())*abY) / lenSq
	t = math.Max(0, math.Min(1, t))
	closest := orb.Point{a.Lon() + t*abX, a.Lat() + t*abY}
	return euclideanDistance(p, closest)
}

// lineToLineDistance returns minimal distance (degrees) between two polylines
// Note: Euclidean space. Vertex-to-segment checks both ways; crossing lines with
// no vertex near the other line are rare at road segment granularity.
func lineToLineDistance(l1, l2 orb.LineString) float64 {
	minDist := math.Inf(1)
	for i := range l1 {
		for j := 1; j < len(l2); j++ {
			if d := pointToSegmentDistance(l1[i], l2[j-1], l2[j]); d < minDist {
				minDist = d
			}
		}
	}
	for i := range l2 {
		for j := 1; j < len(l1); j++ {
			if d := pointToSegmentDistance(l2[i], l1[j-1], l1[j]); d < minDist {
				minDist = d
			}
		}
	}
	if len(l1) == 1 && len(l2) == 1 {
		return euclideanDistance(l1[0], l2[0])
	}
	return minDist
}
