package conversation

import (
	"context"
	"errors"
	"sync"

	"github.com/yaseenp24/Healthcare-Agent/internal/geo"
	"github.com/yaseenp24/Healthcare-Agent/internal/search"
)

type fakeGeocoder struct {
	coords map[string]geo.Coordinate
	err    error
	calls  []string
}

func (f *fakeGeocoder) Geocode(_ context.Context, postalCode string) (geo.Coordinate, error) {
	f.calls = append(f.calls, postalCode)
	if f.err != nil {
		return geo.Coordinate{}, f.err
	}
	c, ok := f.coords[postalCode]
	if !ok {
		return geo.Coordinate{}, geo.ErrNoMatch
	}
	return c, nil
}

type fakePlaces struct {
	places []geo.Place
	err    error
	radius int
	calls  int
}

func (f *fakePlaces) FindNearby(context.Context, geo.Coordinate) ([]geo.Place, error) {
	f.calls++
	return f.places, f.err
}

func (f *fakePlaces) RadiusMeters() int {
	if f.radius == 0 {
		return 5000
	}
	return f.radius
}

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []LLMRequest
}

func (f *fakeLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.reply}, nil
}

func (f *fakeLLM) last() LLMRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeSearcher struct {
	results []search.Result
	err     error
	queries []string
	counts  []int
}

func (f *fakeSearcher) Search(_ context.Context, query string, n int) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	f.counts = append(f.counts, n)
	return f.results, f.err
}

type stubAnswerer struct {
	answer *Answer
	err    error
	calls  int
}

func (s *stubAnswerer) Answer(context.Context, string) (*Answer, error) {
	s.calls++
	return s.answer, s.err
}

var errUpstreamDown = errors.New("upstream unavailable")

func ptr[T any](v T) *T {
	return &v
}

// placeAt builds a node with a name and street address.
func placeAt(name string, lat, lon float64) geo.Place {
	return geo.Place{
		Type: "node",
		Lat:  ptr(lat),
		Lon:  ptr(lon),
		Tags: map[string]string{"name": name, "addr:street": "Main St", "addr:city": "Irvine"},
	}
}
