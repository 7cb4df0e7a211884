package geo

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func node(name string, lat, lon float64) Place {
	return Place{Type: "node", Lat: ptr(lat), Lon: ptr(lon), Tags: map[string]string{"name": name}}
}

func TestRank_SortedAndLimited(t *testing.T) {
	origin := Coordinate{Lat: 33.7, Lon: -117.76}
	places := []Place{
		node("Far", 33.80, -117.76),
		node("Near", 33.701, -117.76),
		{Type: "way", Center: &Coordinate{Lat: 33.72, Lon: -117.76}, Tags: map[string]string{"name": "Mid"}},
		{Type: "relation", Tags: map[string]string{"name": "Unresolvable"}},
		node("Farthest", 34.2, -117.76),
	}

	for limit := 0; limit <= 6; limit++ {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			ranked := Rank(origin, places, limit)
			want := limit
			if want > 4 {
				want = 4
			}
			require.Len(t, ranked, want)
			for i := 1; i < len(ranked); i++ {
				assert.LessOrEqual(t, ranked[i-1].DistanceKm, ranked[i].DistanceKm)
			}
		})
	}

	ranked := Rank(origin, places, 3)
	assert.True(t, strings.HasPrefix(ranked[0].Line, "Near - "))
	assert.True(t, strings.HasPrefix(ranked[1].Line, "Mid - "))
	assert.True(t, strings.HasPrefix(ranked[2].Line, "Far - "))
}

func TestRank_StableTies(t *testing.T) {
	origin := Coordinate{Lat: 0, Lon: 0}
	places := []Place{
		node("First", 0.01, 0),
		node("Second", 0.01, 0),
		node("Third", 0.01, 0),
	}
	ranked := Rank(origin, places, 10)
	require.Len(t, ranked, 3)
	assert.True(t, strings.HasPrefix(ranked[0].Line, "First"))
	assert.True(t, strings.HasPrefix(ranked[1].Line, "Second"))
	assert.True(t, strings.HasPrefix(ranked[2].Line, "Third"))
}

func TestRank_RenderDefaults(t *testing.T) {
	origin := Coordinate{Lat: 0, Lon: 0}
	places := []Place{{Type: "node", Lat: ptr(0), Lon: ptr(0)}}
	ranked := Rank(origin, places, 1)
	require.Len(t, ranked, 1)
	assert.Equal(t,
		"Unnamed pharmacy - Address unavailable - 0.0 km - https://www.google.com/maps/search/?api=1&query=0.000000,0.000000",
		ranked[0].Line)
}

func TestRank_RenderAddress(t *testing.T) {
	origin := Coordinate{Lat: 0, Lon: 0}
	p := node("CVS", 0.1, 0)
	p.Tags["addr:housenumber"] = "1"
	p.Tags["addr:street"] = "Main St"
	p.Tags["addr:city"] = "Irvine"
	ranked := Rank(origin, []Place{p}, 1)
	require.Len(t, ranked, 1)
	assert.Contains(t, ranked[0].Line, "CVS - 1 Main St, Irvine - 11.1 km - ")
}

func TestFormatRanked(t *testing.T) {
	ranked := []RankedPlace{{DistanceKm: 0.5, Line: "A"}, {DistanceKm: 1.2, Line: "B"}}
	got := FormatRanked("92620", ranked, 5000)
	assert.Equal(t, "Here are the 2 closest pharmacies to 92620:\n1. A\n2. B", got)

	single := FormatRanked("92620", ranked[:1], 5000)
	assert.Equal(t, "Here is the closest pharmacy to 92620:\n1. A", single)

	assert.Equal(t,
		"I couldn't find any pharmacies within 5 km of 10001. Try a nearby ZIP code.",
		FormatRanked("10001", nil, 5000))
	assert.Contains(t, FormatRanked("10001", nil, 2500), "within 2.5 km")
}
