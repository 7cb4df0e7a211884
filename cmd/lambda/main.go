package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/yaseenp24/Healthcare-Agent/internal/api/router"
	"github.com/yaseenp24/Healthcare-Agent/internal/app/bootstrap"
	appconfig "github.com/yaseenp24/Healthcare-Agent/internal/config"
	"github.com/yaseenp24/Healthcare-Agent/internal/conversation"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

// sessionHeader lets non-browser callers carry the session id without cookies.
const sessionHeader = "x-session-id"

func main() {
	cfg := appconfig.Load()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	logger := logging.NewWithWriter(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if cfg.SessionBackend == appconfig.SessionBackendMemory {
		logger.Warn("memory sessions do not survive across lambda instances; use redis or dynamodb")
	}

	app, err := bootstrap.Build(context.Background(), cfg, logger, bootstrap.Deps{})
	if err != nil {
		panic(err)
	}

	h := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(app.Service, logger, true),
		HealthChecks:        app.HealthChecks(),
	})
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, h, evt)
	})
}

// handle serves an API Gateway HTTP API event through the chat router.
func handle(ctx context.Context, h http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	switch path {
	case "/health", "/api/chat", "/api/reset":
	default:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	target := path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		target += "?" + qs
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = ip + ":0"
	}
	for _, c := range evt.Cookies {
		req.Header.Add("Cookie", c)
	}
	if id := strings.TrimSpace(headerValue(evt.Headers, sessionHeader)); id != "" {
		req.AddCookie(&http.Cookie{Name: conversation.SessionCookieName, Value: id})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: rec.Code,
		Body:       rec.Body.String(),
		Headers:    map[string]string{},
	}
	for k, values := range rec.Header() {
		if strings.EqualFold(k, "Set-Cookie") {
			out.Cookies = append(out.Cookies, values...)
			continue
		}
		out.Headers[strings.ToLower(k)] = strings.Join(values, ", ")
	}
	return out, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(evt.Body)
	if err != nil {
		return nil, err
	}
	return decoded, nil
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
