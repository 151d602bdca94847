package goSession

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestIDHeader is set on gateway requests that do not carry one.
const RequestIDHeader = "X-Request-ID"

// Gateway sends authenticated requests on behalf of a [Controller].
//
// Every request carries exactly one "Authorization: Bearer" header built from the
// stored access token. A 401 response triggers one refresh, shared with any concurrent
// 401s, and one retry with the rotated token.
type Gateway struct {
	c      *Controller
	client *http.Client
	tracer trace.Tracer
}

// Gateway returns a Gateway sending through client, or the controller's HTTP client
// when client is nil.
func (c *Controller) Gateway(client *http.Client) *Gateway {
	if client == nil {
		client = c.httpClient
	}
	return &Gateway{c: c, client: client, tracer: c.tracer}
}

// Request builds a request with ctx and sends it through [Gateway.Do].
func (g *Gateway) Request(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return g.Do(req)
}

// Do sends req with the current access token.
//
// Errors: ErrSessionNotReady before bootstrap, ErrUnauthenticated with no stored
// token, ErrNetwork on transport failure (including a refresh that got no response),
// ErrSessionExpired when refresh failed or the retried request was also rejected. In
// the last two cases the session has been torn down. Any non-401 response, including
// the retry's, is returned to the caller, who must close its body.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	ctx, span := g.tracer.Start(req.Context(), "goSession.gateway.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.URL.Path),
		),
	)
	defer span.End()

	resp, retried, err := g.do(ctx, req)
	span.SetAttributes(attribute.Bool("gosession.retried", retried))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, nil
}

func (g *Gateway) do(ctx context.Context, req *http.Request) (*http.Response, bool, error) {
	token, err := g.c.AccessToken(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := bufferBody(req); err != nil {
		return nil, false, err
	}
	requestID := req.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	resp, err := g.send(ctx, req, token, requestID)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, false, nil
	}

	g.c.metrics.Inc(MetricGatewayUnauthorized)
	discard(resp)

	next, err := g.c.refreshShared(ctx, token)
	if err != nil {
		return nil, false, err
	}

	g.c.metrics.Inc(MetricGatewayRetry)
	resp, err = g.send(ctx, req, next, requestID)
	if err != nil {
		return nil, true, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		g.c.metrics.Inc(MetricGatewayUnauthorized)
		discard(resp)
		g.c.expireSession(ctx, next)
		return nil, true, fmt.Errorf("%w: retried request rejected", ErrSessionExpired)
	}
	return resp, true, nil
}

func (g *Gateway) send(ctx context.Context, req *http.Request, token, requestID string) (*http.Response, error) {
	out := req.Clone(ctx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+token)
	out.Header.Set(RequestIDHeader, requestID)

	g.c.metrics.Inc(MetricGatewayRequest)
	resp, err := g.client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	return resp, nil
}

// bufferBody makes req replayable. Requests built by http.NewRequest from a bytes or
// strings reader already are.
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return err
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.ContentLength = int64(len(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
