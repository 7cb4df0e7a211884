package conversation

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yaseenp24/Healthcare-Agent/internal/compliance"
	"github.com/yaseenp24/Healthcare-Agent/internal/observability/metrics"
	"github.com/yaseenp24/Healthcare-Agent/internal/search"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

const (
	// answerSourceCount is how many search results a health question asks for.
	answerSourceCount = 5

	healthSystemPrompt = "You answer health and medication questions cautiously and for education only. " +
		"Use ONLY the numbered sources provided. Cite every claim with its source number in square brackets, like [1]. " +
		"If the sources do not contain enough information to answer safely, say you cannot answer and recommend a professional. " +
		"Never diagnose or recommend a dose for a specific person. " +
		"End your answer with this exact sentence: " + compliance.HealthDisclaimer
)

var citationPattern = regexp.MustCompile(`\[(\d{1,2})\]`)

// Searcher is the web search contract the answerer needs.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]search.Result, error)
}

// Answer is a grounded reply plus the sources it was built from.
type Answer struct {
	Text    string
	Sources []search.Result
}

// GroundedAnswerer answers health questions only from allowlisted search
// results.
type GroundedAnswerer struct {
	searcher Searcher
	policy   search.DomainPolicy
	llm      LLMClient
	model    string
	logger   *logging.Logger
	metrics  *metrics.ChatMetrics
}

// AnswererOption customizes a GroundedAnswerer.
type AnswererOption func(*GroundedAnswerer)

// WithAnswererModel overrides the model id sent with each completion.
func WithAnswererModel(model string) AnswererOption {
	return func(a *GroundedAnswerer) {
		a.model = model
	}
}

// WithAnswererMetrics records search failures and model latency.
func WithAnswererMetrics(m *metrics.ChatMetrics) AnswererOption {
	return func(a *GroundedAnswerer) {
		a.metrics = m
	}
}

func NewGroundedAnswerer(searcher Searcher, policy search.DomainPolicy, llm LLMClient, logger *logging.Logger, opts ...AnswererOption) *GroundedAnswerer {
	if logger == nil {
		logger = logging.Default()
	}
	a := &GroundedAnswerer{
		searcher: searcher,
		policy:   policy,
		llm:      llm,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer returns nil when there is nothing to ground an answer on or the model
// produced an unusable answer. Model transport failures are returned as
// *UpstreamError.
func (a *GroundedAnswerer) Answer(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if a == nil || a.searcher == nil || a.llm == nil || question == "" {
		return nil, nil
	}

	results, err := a.searcher.Search(ctx, question, answerSourceCount)
	if err != nil {
		a.logger.Warn("health search failed", "error", err)
		a.metrics.ObserveAdapterFailure("search", "transport")
		return nil, nil
	}
	sources := a.policy.Filter(results)
	if len(sources) == 0 {
		a.logger.Info("no allowlisted sources for health question", "results", len(results))
		return nil, nil
	}

	start := time.Now()
	resp, err := a.llm.Complete(ctx, LLMRequest{
		Model:       a.model,
		System:      []string{healthSystemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: buildGroundedPrompt(question, sources)}},
		MaxTokens:   700,
		Temperature: 0.2,
	})
	a.metrics.ObserveUpstreamLatency("llm", time.Since(start).Seconds())
	if err != nil {
		return nil, &UpstreamError{Service: "llm", Err: err}
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		a.logger.Warn("health answer was empty")
		return nil, nil
	}
	if !hasValidCitation(text, len(sources)) {
		a.logger.Warn("health answer cited no provided source", "sources", len(sources))
		return nil, nil
	}
	return &Answer{Text: compliance.AppendDisclaimer(text), Sources: sources}, nil
}

func buildGroundedPrompt(question string, sources []search.Result) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nSources:\n")
	for i, s := range sources {
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n", i+1, strings.TrimSpace(s.Title), strings.TrimSpace(s.URL))
		if snippet := strings.TrimSpace(s.Snippet); snippet != "" {
			fmt.Fprintf(&b, "Snippet: %s\n", snippet)
		}
		b.WriteString("\n")
	}
	b.WriteString("Answer the question using only these sources and cite them by number.")
	return b.String()
}

// hasValidCitation reports whether text cites at least one source index in
// [1, n].
func hasValidCitation(text string, n int) bool {
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		idx, err := strconv.Atoi(m[1])
		if err == nil && idx >= 1 && idx <= n {
			return true
		}
	}
	return false
}
