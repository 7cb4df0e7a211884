package conversation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaseenp24/Healthcare-Agent/internal/geo"
	"github.com/yaseenp24/Healthcare-Agent/internal/intent"
	"github.com/yaseenp24/Healthcare-Agent/internal/search"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

var irvine = geo.Coordinate{Lat: 33.6846, Lon: -117.8265}

type routerFixture struct {
	geocoder *fakeGeocoder
	places   *fakePlaces
	llm      *fakeLLM
	answerer *stubAnswerer
	router   *Router
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		geocoder: &fakeGeocoder{coords: map[string]geo.Coordinate{
			"92620": irvine,
			"10001": {Lat: 40.7506, Lon: -73.9972},
		}},
		places: &fakePlaces{places: []geo.Place{
			placeAt("Far Pharmacy", 33.7200, -117.8265),
			placeAt("Near Pharmacy", 33.6850, -117.8265),
			placeAt("Mid Pharmacy", 33.7000, -117.8265),
			placeAt("Farther Pharmacy", 33.7400, -117.8265),
		}},
		llm:      &fakeLLM{reply: "Happy to help!"},
		answerer: &stubAnswerer{},
	}
	f.router = NewRouter(
		Locator{Geocoder: f.geocoder, Places: f.places},
		f.llm,
		logging.Discard(),
		WithHealthAnswerer(f.answerer),
	)
	return f
}

func listedLines(reply string) []string {
	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		if len(line) > 2 && line[0] >= '1' && line[0] <= '9' && strings.Contains(line, ". ") {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestRouter_OneShotPharmacySearch(t *testing.T) {
	f := newRouterFixture(t)

	res, err := f.router.HandleMessage(context.Background(), SessionState{}, "3 pharmacies 92620")
	require.NoError(t, err)

	assert.Equal(t, RoutePharmacy, res.Route)
	assert.Equal(t, ModeNone, res.State.Mode)
	assert.Nil(t, res.State.PendingResultLimit)
	assert.Equal(t, []string{"92620"}, f.geocoder.calls)

	lines := listedLines(res.Reply)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Near Pharmacy")
	assert.Contains(t, lines[1], "Mid Pharmacy")
	assert.Contains(t, lines[2], "Far Pharmacy")
	assert.True(t, strings.HasPrefix(res.Reply, "Here are the 3 closest pharmacies to 92620:"))

	require.Len(t, res.State.Transcript, 2)
	assert.Equal(t, Turn{Role: ChatRoleUser, Text: "3 pharmacies 92620"}, res.State.Transcript[0])
	assert.Equal(t, ChatRoleAssistant, res.State.Transcript[1].Role)
}

func TestRouter_OneShotDefaultsToTenResults(t *testing.T) {
	f := newRouterFixture(t)
	for i := 0; i < 12; i++ {
		f.places.places = append(f.places.places, placeAt("Extra", 33.69+float64(i)/1000, -117.83))
	}

	res, err := f.router.HandleMessage(context.Background(), SessionState{}, "nearest pharmacy to 92620")
	require.NoError(t, err)
	assert.Len(t, listedLines(res.Reply), intent.DefaultResultCount)
}

func TestRouter_PromptThenPostalCode(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	res, err := f.router.HandleMessage(ctx, SessionState{}, "pharmacy")
	require.NoError(t, err)
	assert.Equal(t, RoutePharmacyPrompt, res.Route)
	assert.Equal(t, replyAskPostalCode, res.Reply)
	assert.True(t, res.State.Awaiting())
	require.NotNil(t, res.State.PendingResultLimit)
	assert.Equal(t, 10, *res.State.PendingResultLimit)
	assert.Empty(t, res.State.Transcript, "prompt turns are not logged")

	res, err = f.router.HandleMessage(ctx, res.State, "10001")
	require.NoError(t, err)
	assert.Equal(t, RoutePostalCode, res.Route)
	assert.Equal(t, ModeNone, res.State.Mode)
	assert.Nil(t, res.State.PendingResultLimit)
	assert.True(t, strings.HasPrefix(res.Reply, "Here are the 4 closest pharmacies to 10001:"))
	require.Len(t, res.State.Transcript, 2)
	assert.Equal(t, "10001", res.State.Transcript[0].Text)
}

func TestRouter_PendingLimitIsUsed(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	res, err := f.router.HandleMessage(ctx, SessionState{}, "show me 2 nearby drugstores")
	require.NoError(t, err)
	require.NotNil(t, res.State.PendingResultLimit)
	assert.Equal(t, 2, *res.State.PendingResultLimit)

	res, err = f.router.HandleMessage(ctx, res.State, "it's 92620")
	require.NoError(t, err)
	assert.Len(t, listedLines(res.Reply), 2)
}

func TestRouter_AwaitingIgnoresMessagesWithoutPostalCode(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	state := SessionState{}
	state.awaitPostalCode(5)
	state.Transcript = []Turn{{Role: ChatRoleUser, Text: "hi"}, {Role: ChatRoleAssistant, Text: "hello"}}

	for _, msg := range []string{"I don't know it", "what about ibuprofen side effects"} {
		res, err := f.router.HandleMessage(ctx, state, msg)
		require.NoError(t, err)
		assert.Equal(t, replyRepromptZip, res.Reply)
		assert.True(t, res.State.Awaiting())
		require.NotNil(t, res.State.PendingResultLimit)
		assert.Equal(t, 5, *res.State.PendingResultLimit)
		assert.Len(t, res.State.Transcript, 2)
		state = res.State
	}

	assert.Empty(t, f.geocoder.calls)
	assert.Zero(t, f.answerer.calls)
	assert.Empty(t, f.llm.requests)
}

func TestRouter_AwaitingUnknownPostalCodeClearsState(t *testing.T) {
	f := newRouterFixture(t)

	state := SessionState{}
	state.awaitPostalCode(3)

	res, err := f.router.HandleMessage(context.Background(), state, "99999")
	require.NoError(t, err)
	assert.Equal(t, replyPostalNotFound("99999"), res.Reply)
	assert.Equal(t, ModeNone, res.State.Mode)
	assert.Nil(t, res.State.PendingResultLimit)
	assert.Empty(t, res.State.Transcript)
	assert.Zero(t, f.places.calls)
}

func TestRouter_GeocoderFailureIsNotAnError(t *testing.T) {
	f := newRouterFixture(t)
	f.geocoder.err = errUpstreamDown

	res, err := f.router.HandleMessage(context.Background(), SessionState{}, "pharmacies near 92620")
	require.NoError(t, err)
	assert.Equal(t, replyPostalNotFound("92620"), res.Reply)
	assert.Empty(t, res.State.Transcript)
}

func TestRouter_PlaceSearchFailureReportsNoResults(t *testing.T) {
	f := newRouterFixture(t)
	f.places.err = errUpstreamDown

	res, err := f.router.HandleMessage(context.Background(), SessionState{}, "pharmacy 92620")
	require.NoError(t, err)
	assert.Equal(t, "I couldn't find any pharmacies within 5 km of 92620. Try a nearby ZIP code.", res.Reply)
	assert.Len(t, res.State.Transcript, 2)
}

func TestRouter_PharmacyTakesPrecedenceOverHealth(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	res, err := f.router.HandleMessage(ctx, SessionState{}, "which pharmacy has ibuprofen for my fever")
	require.NoError(t, err)
	assert.Equal(t, RoutePharmacyPrompt, res.Route)
	assert.Zero(t, f.answerer.calls)

	res, err = f.router.HandleMessage(ctx, SessionState{}, "pharmacy with flu vaccines near 92620")
	require.NoError(t, err)
	assert.Equal(t, RoutePharmacy, res.Route)
	assert.Zero(t, f.answerer.calls)
}

func TestRouter_HealthDeclineIsLogged(t *testing.T) {
	f := newRouterFixture(t)

	res, err := f.router.HandleMessage(context.Background(), SessionState{}, "what helps with a migraine")
	require.NoError(t, err)
	assert.Equal(t, RouteHealth, res.Route)
	assert.Equal(t, replyHealthDecline, res.Reply)
	require.Len(t, res.State.Transcript, 2)
	assert.Equal(t, replyHealthDecline, res.State.Transcript[1].Text)
	require.NotNil(t, res.Health)
	assert.False(t, res.Health.Answered)
	assert.Equal(t, []string{"migraine"}, res.Health.Terms)
}

func TestRouter_HealthAnswer(t *testing.T) {
	f := newRouterFixture(t)
	f.answerer.answer = &Answer{
		Text:    "Ibuprofen is an NSAID [1].",
		Sources: []search.Result{{Title: "Ibuprofen", URL: "https://medlineplus.gov/ibuprofen"}},
	}

	res, err := f.router.HandleMessage(context.Background(), SessionState{}, "is ibuprofen safe")
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofen is an NSAID [1].", res.Reply)
	require.NotNil(t, res.Health)
	assert.True(t, res.Health.Answered)
	assert.Equal(t, []string{"https://medlineplus.gov/ibuprofen"}, res.Health.SourceURLs)
	assert.Len(t, res.State.Transcript, 2)
}

func TestRouter_WithoutAnswererDeclines(t *testing.T) {
	f := newRouterFixture(t)
	router := NewRouter(Locator{Geocoder: f.geocoder, Places: f.places}, f.llm, logging.Discard())

	res, err := router.HandleMessage(context.Background(), SessionState{}, "asthma inhaler question")
	require.NoError(t, err)
	assert.Equal(t, replyHealthDecline, res.Reply)
}

func TestRouter_HealthUpstreamFailurePropagates(t *testing.T) {
	f := newRouterFixture(t)
	f.answerer.err = &UpstreamError{Service: "llm", Err: errUpstreamDown}

	prior := SessionState{Transcript: []Turn{{Role: ChatRoleUser, Text: "hi"}}}
	res, err := f.router.HandleMessage(context.Background(), prior, "dose of amoxicillin")
	require.Error(t, err)
	assert.True(t, IsUpstream(err))
	assert.Equal(t, prior, res.State)
}

func TestRouter_GeneralChatSendsRecentContext(t *testing.T) {
	f := newRouterFixture(t)

	state := SessionState{}
	policy := DefaultHistoryPolicy()
	for i := 0; i < 3; i++ {
		state.Transcript = policy.Append(state.Transcript, "question", "answer")
	}

	res, err := f.router.HandleMessage(context.Background(), state, "tell me a joke")
	require.NoError(t, err)
	assert.Equal(t, RouteGeneral, res.Route)
	assert.Equal(t, "Happy to help!", res.Reply)
	assert.Len(t, res.State.Transcript, 8)

	req := f.llm.last()
	require.Len(t, req.Messages, DefaultContextTurns+1)
	assert.Equal(t, ChatMessage{Role: ChatRoleUser, Content: "tell me a joke"}, req.Messages[len(req.Messages)-1])
	assert.Equal(t, []string{generalSystemPrompt}, req.System)
}

func TestRouter_GeneralChatFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "transport error", err: errUpstreamDown},
		{name: "blank generation", reply: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture(t)
			f.llm.reply = tt.reply
			f.llm.err = tt.err

			_, err := f.router.HandleMessage(context.Background(), SessionState{}, "hello there")
			require.Error(t, err)
			assert.True(t, IsUpstream(err))
		})
	}
}

func TestRouter_EmptyMessage(t *testing.T) {
	f := newRouterFixture(t)

	_, err := f.router.HandleMessage(context.Background(), SessionState{}, "   \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, f.llm.requests)
}

func TestRouter_DoesNotAliasCallerState(t *testing.T) {
	f := newRouterFixture(t)

	transcript := make([]Turn, 0, 16)
	transcript = append(transcript, Turn{Role: ChatRoleUser, Text: "hi"}, Turn{Role: ChatRoleAssistant, Text: "hey"})
	state := SessionState{Transcript: transcript}

	_, err := f.router.HandleMessage(context.Background(), state, "hello again")
	require.NoError(t, err)
	assert.Len(t, state.Transcript, 2)
	assert.Equal(t, "hey", transcript[1].Text)
}

func TestRouter_ResetSession(t *testing.T) {
	f := newRouterFixture(t)

	state := SessionState{Transcript: []Turn{{Role: ChatRoleUser, Text: "hi"}}}
	state.awaitPostalCode(4)

	assert.Equal(t, SessionState{}, f.router.ResetSession(state))
}

func TestRouter_GeneralChatUsesConfiguredModel(t *testing.T) {
	llm := &fakeLLM{reply: "Sure."}
	r := NewRouter(Locator{Geocoder: &fakeGeocoder{}, Places: &fakePlaces{}}, llm, logging.Discard(), WithModel("gemini-1.5-pro"))

	_, err := r.HandleMessage(context.Background(), SessionState{}, "hi")
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", llm.last().Model)
}
