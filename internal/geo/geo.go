// Package geo implements the proximity engine: great-circle distance, radius
// filtering with deterministic ordering, and the capped radius expansion
// schedule. Everything here is pure and safe under arbitrary concurrency.
package geo

import (
	"math"
	"sort"
)

// EarthRadiusMiles is the spherical Earth radius used for all distances.
const EarthRadiusMiles = 3959.0

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Site is a rankable location. Sites without a Point are excluded from
// distance-based results but preserved when no origin is available.
type Site struct {
	ID    string
	Name  string
	City  string
	Point *Point
}

// Ranked is a Site annotated with its distance from the origin.
// Distance is -1 when no origin was available.
type Ranked struct {
	Site
	DistanceMiles float64
}

// DistanceMiles returns the haversine great-circle distance between two
// coordinates. Symmetric; zero (within float tolerance) for identical points.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push a fractionally past 1 for near-antipodal pairs,
	// which would make Sqrt(1-a) NaN.
	if a > 1 {
		a = 1
	}
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// Distance returns the haversine distance between two points.
func Distance(a, b Point) float64 {
	return DistanceMiles(a.Lat, a.Lon, b.Lat, b.Lon)
}

// FilterByRadius returns the sites within radiusMiles of origin, sorted
// ascending by distance with ties broken by name then ID for determinism.
// Sites without coordinates are never assigned a distance; they are dropped
// from distance-based results.
//
// When origin is nil the engine must not guess: every site is returned in
// input order with DistanceMiles = -1 and sorted = false, so callers can
// surface "showing all stores" instead of an error.
func FilterByRadius(origin *Point, sites []Site, radiusMiles float64) (results []Ranked, sorted bool) {
	if origin == nil {
		results = make([]Ranked, 0, len(sites))
		for _, s := range sites {
			results = append(results, Ranked{Site: s, DistanceMiles: -1})
		}
		return results, false
	}

	for _, s := range sites {
		if s.Point == nil {
			continue
		}
		d := Distance(*origin, *s.Point)
		if d <= radiusMiles {
			results = append(results, Ranked{Site: s, DistanceMiles: d})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceMiles != results[j].DistanceMiles {
			return results[i].DistanceMiles < results[j].DistanceMiles
		}
		if results[i].Name != results[j].Name {
			return results[i].Name < results[j].Name
		}
		return results[i].ID < results[j].ID
	})
	return results, true
}

// ExpandSchedule returns the capped radius sequence for a base radius:
// base, 2x, 4x. The schedule bounds retries that the UI used to drive with
// repeated "expand search" clicks.
func ExpandSchedule(base float64) []float64 {
	return []float64{base, base * 2, base * 4}
}

// NearbyResult is the outcome of a schedule-driven nearby query.
type NearbyResult struct {
	Results []Ranked
	// RadiusUsed is the radius that produced Results; the last schedule
	// entry when nothing was found.
	RadiusUsed float64
	// Expanded reports whether any radius beyond the base was tried.
	Expanded bool
	// Sorted is false when no origin was available and Results is the full
	// unsorted site list.
	Sorted bool
}

// NearbyWithFallback filters at each radius in the expansion schedule until at
// least one site is found or the schedule is exhausted. With a nil origin it
// degrades to the full unsorted list, same as FilterByRadius.
func NearbyWithFallback(origin *Point, sites []Site, baseRadiusMiles float64) NearbyResult {
	if origin == nil {
		results, _ := FilterByRadius(nil, sites, 0)
		return NearbyResult{Results: results, Sorted: false}
	}

	schedule := ExpandSchedule(baseRadiusMiles)
	var out NearbyResult
	for i, radius := range schedule {
		results, _ := FilterByRadius(origin, sites, radius)
		out = NearbyResult{
			Results:    results,
			RadiusUsed: radius,
			Expanded:   i > 0,
			Sorted:     true,
		}
		if len(results) > 0 {
			break
		}
	}
	return out
}
