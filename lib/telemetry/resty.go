package telemetry

import (
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var restyMeter = otel.Meter("resty")

// InstrumentResty attaches a span to every request made by the client and
// tracks how many of its requests are in flight at once. The in-flight
// gauge is labeled with the tracer name so concurrent crawls against the
// stats API show up as one series.
func InstrumentResty(client *resty.Client, tracerName string) {
	tracer := otel.Tracer(tracerName)
	inflight, _ := restyMeter.Int64UpDownCounter("requests_in_flight")
	clientAttr := metric.WithAttributes(attribute.String("client", tracerName))

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), req.Method)
		req.SetContext(ctx)
		inflight.Add(ctx, 1, clientAttr)
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		ctx := res.Request.Context()
		span := trace.SpanFromContext(ctx)
		defer span.End()
		inflight.Add(ctx, -1, clientAttr)

		span.SetName(fmt.Sprintf("http %s", res.Request.Method))
		span.SetAttributes(
			attribute.String("url", res.Request.URL),
			attribute.Int("status_code", res.StatusCode()),
			attribute.String("duration", res.Time().String()),
		)
		if res.IsError() {
			span.SetStatus(codes.Error, res.Status())
		}
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		ctx := req.Context()
		span := trace.SpanFromContext(ctx)
		defer span.End()
		inflight.Add(ctx, -1, clientAttr)

		span.SetName(fmt.Sprintf("http %s", req.Method))
		span.SetAttributes(attribute.String("url", req.URL))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	})
}
