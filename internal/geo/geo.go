// Package geo implements the great-circle radius filter used by nearby search.
package geo

import (
	"math"
	"sort"

	"github.com/SaeedRasheed12/rent-app/internal/models"
)

const (
	EarthRadiusKm = 6371.0
	// NearbyRadiusKm is the fixed search radius for nearby listings.
	NearbyRadiusKm = 15.0
)

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// ValidPoint reports whether lat/lon are within their coordinate ranges.
func ValidPoint(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}

// Within keeps the listings with coordinates no farther than radiusKm from
// (lat, lon) and sorts them by distance rounded to one decimal. Equal
// distances keep their input order.
func Within(listings []models.Listing, lat, lon, radiusKm float64) []models.NearbyListing {
	out := []models.NearbyListing{}
	for _, l := range listings {
		if l.Latitude == nil || l.Longitude == nil {
			continue
		}
		d := Haversine(lat, lon, *l.Latitude, *l.Longitude)
		if d > radiusKm {
			continue
		}
		out = append(out, models.NearbyListing{Listing: l, Distance: math.Round(d*10) / 10})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}
