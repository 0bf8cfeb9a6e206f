package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/grievai-platform/cmd/mainconfig"
	"github.com/wolfman30/grievai-platform/internal/app/bootstrap"
	"github.com/wolfman30/grievai-platform/internal/classification"
	appconfig "github.com/wolfman30/grievai-platform/internal/config"
	httpmiddleware "github.com/wolfman30/grievai-platform/internal/http/middleware"
	"github.com/wolfman30/grievai-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	gateway, closeGateway, err := bootstrap.BuildGateway(context.Background(), cfg, mainconfig.LoadAWSConfig, logger)
	if err != nil {
		logger.Error("failed to build llm gateway", "error", err)
		os.Exit(1)
	}
	defer closeGateway()

	svc := classification.NewService(gateway, logger, classification.WithTimeout(cfg.LLMTimeout))
	handler := newHandler(cfg, svc, logger)
	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, handler, evt)
	})
}

// newHandler is the analyze endpoint as served behind API Gateway.
func newHandler(cfg *appconfig.Config, analyzer classification.Analyzer, logger *logging.Logger) http.Handler {
	var auth func(http.Handler) http.Handler
	if cfg.AuthRequired {
		auth = httpmiddleware.RequireAuth(cfg.AuthJWTSecret)
	} else {
		auth = httpmiddleware.AllowAnonymous()
	}
	analyze := auth(http.HandlerFunc(classification.NewHandler(analyzer, logger).Analyze))
	return httpmiddleware.CORS(cfg.CORSAllowedOrigins)(analyze)
}

func handle(ctx context.Context, handler http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	}
	if method != http.MethodPost && method != http.MethodOptions {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}
	req, err := http.NewRequestWithContext(ctx, method, "/analyze", bytes.NewReader(body))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	// Every OPTIONS is answered as a preflight and never reaches auth.
	if method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") == "" {
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	}

	rw := newResponseBuffer()
	handler.ServeHTTP(rw, req)

	out := events.APIGatewayV2HTTPResponse{
		StatusCode: rw.status,
		Body:       rw.body.String(),
		Headers:    map[string]string{},
	}
	for k := range rw.header {
		out.Headers[strings.ToLower(k)] = rw.header.Get(k)
	}
	return out, nil
}

// responseBuffer collects a handler's response for the Lambda reply.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: http.Header{}, status: http.StatusOK}
}

func (r *responseBuffer) Header() http.Header { return r.header }

func (r *responseBuffer) Write(p []byte) (int, error) { return r.body.Write(p) }

func (r *responseBuffer) WriteHeader(status int) { r.status = status }

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
