package geo

import (
	"fmt"
	"sort"
	"strings"
)

const (
	unnamedPlaceLabel  = "Unnamed pharmacy"
	addressUnavailable = "Address unavailable"
	mapLinkBase        = "https://www.google.com/maps/search/?api=1&query="
)

// RankedPlace is a place with its distance from the search origin and its
// rendered display line.
type RankedPlace struct {
	DistanceKm float64
	Line       string
}

type candidate struct {
	place    Place
	coord    Coordinate
	distance float64
}

// Rank orders places by distance from origin and keeps the first limit.
// Places without a resolvable coordinate are dropped; equal distances keep
// the index's original order.
func Rank(origin Coordinate, places []Place, limit int) []RankedPlace {
	candidates := make([]candidate, 0, len(places))
	for _, p := range places {
		coord, ok := p.Coordinate()
		if !ok {
			continue
		}
		candidates = append(candidates, candidate{place: p, coord: coord, distance: Haversine(origin, coord)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if limit >= 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ranked := make([]RankedPlace, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, RankedPlace{DistanceKm: c.distance, Line: renderLine(c)})
	}
	return ranked
}

func renderLine(c candidate) string {
	name := c.place.Name()
	if name == "" {
		name = unnamedPlaceLabel
	}
	address := strings.Join(c.place.AddressParts(), ", ")
	if address == "" {
		address = addressUnavailable
	}
	return fmt.Sprintf("%s - %s - %.1f km - %s", name, address, c.distance, MapLink(c.coord))
}

// MapLink builds a map search URL for a coordinate.
func MapLink(c Coordinate) string {
	return mapLinkBase + fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// FormatRanked renders a numbered reply for postalCode, or the fixed
// "nothing within radius" message when ranked is empty.
func FormatRanked(postalCode string, ranked []RankedPlace, radiusMeters int) string {
	if len(ranked) == 0 {
		return fmt.Sprintf("I couldn't find any pharmacies within %s of %s. Try a nearby ZIP code.", formatRadius(radiusMeters), postalCode)
	}

	var b strings.Builder
	if len(ranked) == 1 {
		fmt.Fprintf(&b, "Here is the closest pharmacy to %s:", postalCode)
	} else {
		fmt.Fprintf(&b, "Here are the %d closest pharmacies to %s:", len(ranked), postalCode)
	}
	for i, r := range ranked {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r.Line)
	}
	return b.String()
}

func formatRadius(meters int) string {
	if meters%1000 == 0 {
		return fmt.Sprintf("%d km", meters/1000)
	}
	return fmt.Sprintf("%.1f km", float64(meters)/1000)
}
