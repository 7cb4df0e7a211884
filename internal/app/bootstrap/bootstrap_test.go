package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"

	appconfig "github.com/yaseenp24/Healthcare-Agent/internal/config"
	"github.com/yaseenp24/Healthcare-Agent/internal/conversation"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

type stubLLM struct {
	reply       string
	hadDeadline bool
}

func (s *stubLLM) Complete(ctx context.Context, _ conversation.LLMRequest) (conversation.LLMResponse, error) {
	_, s.hadDeadline = ctx.Deadline()
	return conversation.LLMResponse{Text: s.reply}, nil
}

func testConfig() *appconfig.Config {
	return &appconfig.Config{
		LLMProvider:     appconfig.ProviderOpenAI,
		OpenAIAPIKey:    "test-key",
		SessionBackend:  appconfig.SessionBackendMemory,
		SessionTTL:      time.Hour,
		POIRadiusMeters: 5000,
	}
}

func TestBuildRequiresConfig(t *testing.T) {
	if _, err := Build(context.Background(), nil, nil, Deps{}); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestBuildWiresChatService(t *testing.T) {
	llm := &stubLLM{reply: "Hello there"}
	app, err := Build(context.Background(), testConfig(), logging.Discard(), Deps{
		LLM:        llm,
		Registerer: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer app.Close()

	reply, err := app.Service.Chat(context.Background(), "s1", "tell me a joke")
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if reply != "Hello there" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(app.HealthChecks()) != 0 {
		t.Fatalf("expected no health checks without redis or database")
	}
}

func TestBuildRedisBackendRegistersHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.SessionBackend = appconfig.SessionBackendRedis
	cfg.RedisAddr = mr.Addr()

	app, err := Build(context.Background(), cfg, logging.Discard(), Deps{
		LLM:        &stubLLM{reply: "ok"},
		Registerer: prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer app.Close()

	check, ok := app.HealthChecks()["redis"]
	if !ok {
		t.Fatalf("expected redis health check")
	}
	if err := check(context.Background()); err != nil {
		t.Fatalf("redis check failed: %v", err)
	}

	if _, err := app.Service.Chat(context.Background(), "s1", "hello"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	if keys := mr.Keys(); len(keys) != 1 {
		t.Fatalf("expected one stored session, got %v", keys)
	}
}

func TestBuildRedisClient(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true); client != nil {
		t.Fatalf("expected nil client without address")
	}

	cfg := &appconfig.Config{RedisAddr: "127.0.0.1:1"}
	if client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
	client := BuildRedisClient(context.Background(), cfg, logging.Discard(), false)
	if client == nil {
		t.Fatalf("expected unverified client")
	}
	_ = client.Close()
}

func TestBuildSessionStore(t *testing.T) {
	cfg := testConfig()
	store, err := BuildSessionStore(context.Background(), cfg, nil, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := store.(*conversation.MemorySessionStore); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	cfg.SessionBackend = appconfig.SessionBackendRedis
	if _, err := BuildSessionStore(context.Background(), cfg, nil, logging.Discard()); err == nil {
		t.Fatalf("expected error for redis backend without client")
	}

	cfg.SessionBackend = "etcd"
	if _, err := BuildSessionStore(context.Background(), cfg, nil, logging.Discard()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestBuildLLMClientWrapsFallbackAndTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.LLMFallbackProvider = appconfig.ProviderBedrock
	cfg.BedrockModelID = "anthropic.claude-3-haiku"
	cfg.AWSAccessKeyID = "AKIDEXAMPLE"
	cfg.AWSSecretAccessKey = "secret"
	cfg.AWSRegion = "us-east-1"
	cfg.LLMTimeout = time.Second

	client, cleanup, err := BuildLLMClient(context.Background(), cfg, nil, logging.Discard())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	timed, ok := client.(*timeoutLLMClient)
	if !ok {
		t.Fatalf("expected timeout wrapper, got %T", client)
	}
	if _, ok := timed.next.(*conversation.FallbackLLMClient); !ok {
		t.Fatalf("expected fallback client, got %T", timed.next)
	}
}

func TestBuildLLMClientUnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.LLMProvider = "llama"
	if _, _, err := BuildLLMClient(context.Background(), cfg, nil, nil); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestTimeoutLLMClientSetsDeadline(t *testing.T) {
	next := &stubLLM{reply: "ok"}
	client := &timeoutLLMClient{next: next, timeout: time.Second}
	if _, err := client.Complete(context.Background(), conversation.LLMRequest{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !next.hadDeadline {
		t.Fatalf("expected completion context to carry a deadline")
	}
}

func TestBuildAuditDBDisabledWithoutURL(t *testing.T) {
	db, err := BuildAuditDB(context.Background(), testConfig(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if db != nil {
		t.Fatalf("expected nil db")
	}
	if BuildAuditService(nil) != nil {
		t.Fatalf("expected nil audit service")
	}
}
