package nhl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nhlcrawl-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/nhl")

const (
	SchemaHost    = "https://statsapi.web.nhl.com"
	versionPrefix = "api/v1"

	// DateFormat is the wire format for schedule date parameters.
	DateFormat = "2006-01-02"

	defaultTimeout = time.Second * 60
)

type ClientOptions struct {
	// BaseUrl overrides the public stats API, mainly for tests and
	// local mirrors.
	BaseUrl string
	Timeout time.Duration
}

// Client is a read-only client for the NHL stats API.
type Client struct {
	http *resty.Client
}

func NewClient(opts ClientOptions) *Client {
	base := opts.BaseUrl
	if base == "" {
		base = fmt.Sprintf("%s/%s", SchemaHost, versionPrefix)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	client := resty.New()
	client.SetBaseURL(base)
	client.SetTimeout(timeout)
	telemetry.InstrumentResty(client, "lib/nhl/http")

	return &Client{http: client}
}

// Schedule fetches the games scheduled within the given range.
func (c *Client) Schedule(ctx context.Context, r DateRange) (Schedule, error) {
	ctx, span := tracer.Start(ctx, "client:Schedule")
	defer span.End()

	span.SetAttributes(
		attribute.String("start_date", r.Start.Format(DateFormat)),
		attribute.String("end_date", r.End.Format(DateFormat)),
	)

	var schedule Schedule
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("startDate", r.Start.Format(DateFormat)).
		SetQueryParam("endDate", r.End.Format(DateFormat)).
		SetResult(&schedule)

	slog.InfoContext(ctx, "sending get request", "url", c.http.BaseURL+"/schedule")

	res, err := req.Get("/schedule")
	if err := fetchErr(res, err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Schedule{}, err
	}
	return schedule, nil
}

// Boxscore fetches the raw nested per-team, per-player statistics for one
// game. The structure is returned unmodified, downstream consumers must
// tolerate missing optional fields.
func (c *Client) Boxscore(ctx context.Context, gameID int64) (BoxScore, error) {
	ctx, span := tracer.Start(ctx, "client:Boxscore")
	defer span.End()

	span.SetAttributes(attribute.Int64("game_id", gameID))

	path := fmt.Sprintf("/game/%d/boxscore", gameID)

	var box BoxScore
	req := c.http.R().
		SetContext(ctx).
		SetResult(&box)

	slog.InfoContext(ctx, "sending get request", "url", c.http.BaseURL+path)

	res, err := req.Get(path)
	if err := fetchErr(res, err); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return BoxScore{}, err
	}
	return box, nil
}

func fetchErr(res *resty.Response, err error) error {
	if err != nil {
		var endpoint string
		if res != nil && res.Request != nil {
			endpoint = res.Request.URL
		}
		return &RemoteFetchError{Endpoint: endpoint, Err: err}
	}
	if res.IsError() {
		return &RemoteFetchError{
			Endpoint:   res.Request.URL,
			StatusCode: res.StatusCode(),
		}
	}
	return nil
}
