// Package geo provides the coordinate and distance primitives shared by
// the dataset tables and the plugins that query them.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used for haversine
// distance; matches the constant used throughout OSRM-style routing
// engines.
const earthRadiusMeters = 6372797.560856

// Point is a WGS84 coordinate, longitude/latitude order to match the
// dataset's on-disk node table and GeoJSON-style consumers.
type Point struct {
	Lon float64
	Lat float64
}

// LineString is an ordered polyline, e.g. an edge's geometry.
type LineString []Point

// BoundingBox is an axis-aligned lon/lat box, used for tile queries and
// the spatial index.
type BoundingBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Contains reports whether p falls within the box (inclusive).
func (b BoundingBox) Contains(p Point) bool {
	return p.Lon >= b.MinLon && p.Lon <= b.MaxLon && p.Lat >= b.MinLat && p.Lat <= b.MaxLat
}

// Intersects reports whether two boxes overlap.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinLon <= o.MaxLon && b.MaxLon >= o.MinLon &&
		b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat
}

// Expand returns the smallest box containing both b and p.
func (b BoundingBox) Expand(p Point) BoundingBox {
	return BoundingBox{
		MinLon: math.Min(b.MinLon, p.Lon),
		MinLat: math.Min(b.MinLat, p.Lat),
		MaxLon: math.Max(b.MaxLon, p.Lon),
		MaxLat: math.Max(b.MaxLat, p.Lat),
	}
}

// BoxOf builds the bounding box of a non-empty line string.
func BoxOf(ls LineString) BoundingBox {
	box := BoundingBox{MinLon: ls[0].Lon, MinLat: ls[0].Lat, MaxLon: ls[0].Lon, MaxLat: ls[0].Lat}
	for _, p := range ls[1:] {
		box = box.Expand(p)
	}
	return box
}

// HaversineMeters returns the great-circle distance between a and b in
// meters.
func HaversineMeters(a, b Point) float64 {
	lat1 := deg2rad(a.Lat)
	lat2 := deg2rad(b.Lat)
	dLat := lat2 - lat1
	dLon := deg2rad(b.Lon - a.Lon)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }

// Length returns the sum of great-circle distances between consecutive
// points of ls, in meters. Zero for an empty or single-point string.
func (ls LineString) Length() float64 {
	var total float64
	for i := 1; i < len(ls); i++ {
		total += HaversineMeters(ls[i-1], ls[i])
	}
	return total
}

// ClosestPointOnSegment projects p onto the segment [a,b] and returns
// the projected point plus the haversine distance from p to it. The
// projection is computed in an equirectangular approximation, which is
// accurate enough for edge-snapping at road-network segment lengths.
func ClosestPointOnSegment(p, a, b Point) (Point, float64) {
	// Equirectangular projection centered near a, good enough for the
	// short segment lengths found in a road network.
	cosLat := math.Cos(deg2rad(a.Lat))
	ax, ay := a.Lon*cosLat, a.Lat
	bx, by := b.Lon*cosLat, b.Lat
	px, py := p.Lon*cosLat, p.Lat

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy

	var t float64
	if lenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}

	proj := Point{Lon: a.Lon + t*(b.Lon-a.Lon), Lat: a.Lat + t*(b.Lat-a.Lat)}
	return proj, HaversineMeters(p, proj)
}
