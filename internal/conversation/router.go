package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yaseenp24/Healthcare-Agent/internal/geo"
	"github.com/yaseenp24/Healthcare-Agent/internal/intent"
	"github.com/yaseenp24/Healthcare-Agent/internal/observability/metrics"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

// Route names the branch that handled a message.
type Route string

const (
	RoutePostalCode     Route = "postal_code"
	RoutePharmacy       Route = "pharmacy"
	RoutePharmacyPrompt Route = "pharmacy_prompt"
	RouteHealth         Route = "health"
	RouteGeneral        Route = "general"
)

// ErrEmptyGeneration is wrapped in an UpstreamError when the general chat
// model returns no text.
var ErrEmptyGeneration = errors.New("conversation: model returned an empty reply")

// Geocoder resolves a postal code to a coordinate.
type Geocoder interface {
	Geocode(ctx context.Context, postalCode string) (geo.Coordinate, error)
}

// PlaceFinder lists pharmacies around a coordinate.
type PlaceFinder interface {
	FindNearby(ctx context.Context, center geo.Coordinate) ([]geo.Place, error)
	RadiusMeters() int
}

// HealthAnswerer produces grounded health answers; nil means decline.
type HealthAnswerer interface {
	Answer(ctx context.Context, question string) (*Answer, error)
}

// HealthOutcome describes how a health-intent message was handled.
type HealthOutcome struct {
	Answered   bool
	Terms      []string
	SourceURLs []string
}

// Result is the outcome of one routed message.
type Result struct {
	State  SessionState
	Reply  string
	Route  Route
	Health *HealthOutcome
}

// Router is the intent state machine. It holds no per-session data.
type Router struct {
	locator  Locator
	answerer HealthAnswerer
	llm      LLMClient
	model    string
	history  HistoryPolicy
	logger   *logging.Logger
	metrics  *metrics.ChatMetrics
	tracer   trace.Tracer
}

// Locator groups the two location adapters.
type Locator struct {
	Geocoder Geocoder
	Places   PlaceFinder
}

// RouterOption customizes a Router.
type RouterOption func(*Router)

// WithHealthAnswerer enables grounded answers for health questions. Without
// one every health question is declined.
func WithHealthAnswerer(a HealthAnswerer) RouterOption {
	return func(r *Router) {
		r.answerer = a
	}
}

// WithModel sets the model id for general chat completions.
func WithModel(model string) RouterOption {
	return func(r *Router) {
		r.model = model
	}
}

// WithHistoryPolicy overrides the transcript bounds.
func WithHistoryPolicy(p HistoryPolicy) RouterOption {
	return func(r *Router) {
		r.history = p
	}
}

// WithMetrics records route and adapter metrics.
func WithMetrics(m *metrics.ChatMetrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter wires the router to its collaborators.
func NewRouter(locations Locator, llm LLMClient, logger *logging.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Router{
		locator:  locations,
		llm:      llm,
		history:  DefaultHistoryPolicy(),
		logger:   logger,
		tracer:   otel.Tracer("healthagent.internal.conversation.router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// HandleMessage routes text against state and returns the updated state and
// reply. Branches are evaluated in a fixed order: a pending ZIP request,
// one-shot pharmacy search, pharmacy prompt, health question, general chat.
// Only language model failures are returned as errors.
func (r *Router) HandleMessage(ctx context.Context, state SessionState, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{State: state}, ErrEmptyMessage
	}

	ctx, span := r.tracer.Start(ctx, "conversation.handle_message")
	defer span.End()

	res, err := r.route(ctx, state.clone(), text)
	span.SetAttributes(attribute.String("conversation.route", string(res.Route)))
	if err != nil {
		span.RecordError(err)
		return Result{State: state, Route: res.Route}, err
	}
	r.metrics.ObserveRoute(string(res.Route))
	return res, nil
}

// ResetSession clears mode, pending limit and transcript.
func (r *Router) ResetSession(SessionState) SessionState {
	return SessionState{}
}

func (r *Router) route(ctx context.Context, state SessionState, text string) (Result, error) {
	if state.Awaiting() {
		return r.handlePendingPostalCode(ctx, state, text), nil
	}

	locationIntent := intent.HasLocationIntent(text)
	if locationIntent {
		if code, ok := intent.ExtractPostalCode(text); ok {
			limit := intent.ExtractRequestedCount(text, intent.DefaultResultCount)
			return r.handleNearby(ctx, state, text, code, limit, RoutePharmacy), nil
		}
		state.awaitPostalCode(intent.ExtractRequestedCount(text, intent.DefaultResultCount))
		return Result{State: state, Reply: replyAskPostalCode, Route: RoutePharmacyPrompt}, nil
	}

	if intent.HasHealthIntent(text) {
		return r.handleHealth(ctx, state, text)
	}
	return r.handleGeneral(ctx, state, text)
}

func (r *Router) handlePendingPostalCode(ctx context.Context, state SessionState, text string) Result {
	code, ok := intent.ExtractPostalCode(text)
	if !ok {
		return Result{State: state, Reply: replyRepromptZip, Route: RoutePostalCode}
	}
	limit := intent.DefaultResultCount
	if state.PendingResultLimit != nil {
		limit = intent.ClampCount(*state.PendingResultLimit)
	}
	state.clearPending()
	return r.handleNearby(ctx, state, text, code, limit, RoutePostalCode)
}

// handleNearby geocodes code and lists the closest places. A geocoding miss
// leaves history untouched.
func (r *Router) handleNearby(ctx context.Context, state SessionState, text, code string, limit int, route Route) Result {
	center, ok := r.geocode(ctx, code)
	if !ok {
		return Result{State: state, Reply: replyPostalNotFound(code), Route: route}
	}

	places := r.findNearby(ctx, center)
	ranked := geo.Rank(center, places, limit)
	reply := geo.FormatRanked(code, ranked, r.radiusMeters())

	r.logger.Info("pharmacy search",
		"postal_code", code,
		"candidates", len(places),
		"returned", len(ranked),
		"limit", limit,
	)
	state.Transcript = r.history.Append(state.Transcript, text, reply)
	return Result{State: state, Reply: reply, Route: route}
}

func (r *Router) geocode(ctx context.Context, code string) (geo.Coordinate, bool) {
	if r.locator.Geocoder == nil {
		return geo.Coordinate{}, false
	}
	start := time.Now()
	center, err := r.locator.Geocoder.Geocode(ctx, code)
	r.metrics.ObserveUpstreamLatency("geocoder", time.Since(start).Seconds())
	if err != nil {
		cause := geo.FailureCause(err)
		r.logger.Warn("geocoding failed", "postal_code", code, "cause", cause, "error", err)
		r.metrics.ObserveAdapterFailure("geocoder", cause)
		return geo.Coordinate{}, false
	}
	return center, true
}

func (r *Router) findNearby(ctx context.Context, center geo.Coordinate) []geo.Place {
	if r.locator.Places == nil {
		return nil
	}
	start := time.Now()
	places, err := r.locator.Places.FindNearby(ctx, center)
	r.metrics.ObserveUpstreamLatency("places", time.Since(start).Seconds())
	if err != nil {
		cause := geo.FailureCause(err)
		r.logger.Warn("place search failed", "center", center.String(), "cause", cause, "error", err)
		r.metrics.ObserveAdapterFailure("places", cause)
		return nil
	}
	return places
}

func (r *Router) radiusMeters() int {
	if r.locator.Places == nil {
		return 0
	}
	return r.locator.Places.RadiusMeters()
}

func (r *Router) handleHealth(ctx context.Context, state SessionState, text string) (Result, error) {
	outcome := &HealthOutcome{Terms: intent.MatchedHealthTerms(text)}

	var answer *Answer
	if r.answerer != nil {
		var err error
		answer, err = r.answerer.Answer(ctx, text)
		if err != nil {
			r.logger.Error("health answer failed", "error", err)
			return Result{Route: RouteHealth}, err
		}
	}

	reply := replyHealthDecline
	if answer != nil {
		reply = answer.Text
		outcome.Answered = true
		for _, src := range answer.Sources {
			outcome.SourceURLs = append(outcome.SourceURLs, src.URL)
		}
	}
	state.Transcript = r.history.Append(state.Transcript, text, reply)
	return Result{State: state, Reply: reply, Route: RouteHealth, Health: outcome}, nil
}

func (r *Router) handleGeneral(ctx context.Context, state SessionState, text string) (Result, error) {
	if r.llm == nil {
		return Result{Route: RouteGeneral}, &UpstreamError{Service: "llm", Err: errors.New("no language model configured")}
	}

	messages := turnsToMessages(Recent(state.Transcript, DefaultContextTurns))
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: text})

	start := time.Now()
	resp, err := r.llm.Complete(ctx, LLMRequest{
		Model:       r.model,
		System:      []string{generalSystemPrompt},
		Messages:    messages,
		MaxTokens:   512,
		Temperature: 0.7,
	})
	r.metrics.ObserveUpstreamLatency("llm", time.Since(start).Seconds())
	if err != nil {
		r.logger.Error("general chat completion failed", "error", err)
		return Result{Route: RouteGeneral}, &UpstreamError{Service: "llm", Err: err}
	}

	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		return Result{Route: RouteGeneral}, &UpstreamError{Service: "llm", Err: ErrEmptyGeneration}
	}
	state.Transcript = r.history.Append(state.Transcript, text, reply)
	return Result{State: state, Reply: reply, Route: RouteGeneral}, nil
}
