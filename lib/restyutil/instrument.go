package restyutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/semconv/v1.13.0/httpconv"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentOutput receives one plain text dump per http exchange.
type InstrumentOutput interface {
	Write(name string, contents string)
}

type instrumenter struct {
	output InstrumentOutput
	tracer trace.Tracer
	seq    *atomic.Uint64
}

type dumpNameKey struct{}

// InstrumentClient wraps every request made by client in a span.
// A nil tracer defaults to otel.Tracer("resty"). When output is not nil
// and debug logging is on, each exchange is also dumped to output.
func InstrumentClient(client *resty.Client, tracer trace.Tracer, output InstrumentOutput) {
	if tracer == nil {
		tracer = otel.Tracer("resty")
	}
	i := instrumenter{output: output, tracer: tracer, seq: &atomic.Uint64{}}
	client.OnBeforeRequest(i.onBeforeRequest)
	client.OnAfterResponse(i.onAfterResponse)
	client.OnError(i.onError)
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

// dumpName derives a sortable, filesystem safe name from the request,
// eg. "0003-GET-GetCoursesByUcore-QUAN-General".
func dumpName(seq uint64, method, rawURL string) string {
	path := rawURL
	parsed, err := url.Parse(rawURL)
	if err == nil {
		path = parsed.Path
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) > 3 {
		segments = segments[len(segments)-3:]
	}
	slug := unsafeNameChars.ReplaceAllString(strings.Join(segments, "-"), "_")
	if slug == "" {
		slug = "root"
	}
	return fmt.Sprintf("%04d-%s-%s", seq, method, slug)
}

func (i instrumenter) onBeforeRequest(_ *resty.Client, req *resty.Request) error {
	ctx, _ := i.tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))

	if i.output != nil && slog.Default().Enabled(ctx, slog.LevelDebug) {
		name := dumpName(i.seq.Add(1), req.Method, req.URL)
		slog.DebugContext(ctx, "start request", "method", req.Method, "url", req.URL, "dump", name)
		ctx = context.WithValue(ctx, dumpNameKey{}, name)
	}

	req.SetContext(ctx)
	return nil
}

func (i instrumenter) onAfterResponse(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	// RawRequest is only populated after the request was sent
	if res.Request.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(res.Request.RawRequest)...)
	}
	if res.RawResponse != nil {
		span.SetAttributes(httpconv.ClientResponse(res.RawResponse)...)
	}
	span.SetAttributes(attribute.Int64("http.response_size", res.Size()))
	if res.IsError() {
		span.SetStatus(codes.Error, res.Status())
	}

	name, ok := ctx.Value(dumpNameKey{}).(string)
	if ok {
		i.output.Write(name, formatExchange(res))
		slog.DebugContext(ctx, "request finished", "status", res.StatusCode(), "dump", name)
	}
	return nil
}

func (i instrumenter) onError(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	span.RecordError(err)
	span.SetStatus(codes.Error, "request failed")
	if req.RawRequest != nil {
		span.SetAttributes(httpconv.ClientRequest(req.RawRequest)...)
	}

	slog.WarnContext(ctx, "request failed", "method", req.Method, "url", req.URL, "err", err)
}
