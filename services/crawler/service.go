package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"nhlcrawl-backend/lib/nhl"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/crawler")
var meter = otel.Meter("services/crawler")
var gamesCrawled, _ = meter.Int64Counter("games_crawled")
var gamesFailed, _ = meter.Int64Counter("games_failed")

// API is the slice of the NHL stats client the crawler consumes.
type API interface {
	Schedule(ctx context.Context, r nhl.DateRange) (nhl.Schedule, error)
	Boxscore(ctx context.Context, gameID int64) (nhl.BoxScore, error)
}

type Options struct {
	// SkipFailedGames makes a per-game failure log-and-continue instead
	// of aborting the whole run. Off by default: a run either writes one
	// file per scheduled game or terminates on the first failure.
	SkipFailedGames bool
	// Workers bounds concurrent game fetches. Zero or one keeps the
	// crawl strictly sequential.
	Workers int
	// PartitionByDate prefixes storage keys with the schedule date.
	PartitionByDate bool
}

type Service struct {
	api     API
	storage Storage
	opts    Options
}

func NewService(api API, storage Storage, opts Options) Service {
	return Service{api: api, storage: storage, opts: opts}
}

type GameFailure struct {
	GameID int64
	Date   string
	Err    error
}

type DateSummary struct {
	Date         string
	GamesWritten int
}

// Summary reports what a crawl run accomplished.
type Summary struct {
	Dates       []DateSummary
	RowsWritten int
	Failures    []GameFailure
}

// Crawl fetches the schedule for the range and processes every listed game:
// box score, stats table, CSV, object-store write. Dates and games keep
// schedule order.
func (s Service) Crawl(ctx context.Context, dates nhl.DateRange) (Summary, error) {
	ctx, span := tracer.Start(ctx, "Crawl")
	defer span.End()

	rangeLabel := fmt.Sprintf(
		"%s..%s",
		dates.Start.Format(nhl.DateFormat),
		dates.End.Format(nhl.DateFormat),
	)
	span.SetAttributes(attribute.String("range", rangeLabel))

	schedule, err := s.api.Schedule(ctx, dates)
	if err != nil {
		err = &CrawlError{Phase: "schedule", Date: rangeLabel, Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Summary{}, err
	}

	var summary Summary
	for _, day := range schedule.Dates {
		slog.InfoContext(ctx, "fetching games", "date", day.Date, "games", len(day.Games))

		if err := ctx.Err(); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return summary, err
		}

		if err := s.crawlDate(ctx, day, &summary); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return summary, err
		}
	}

	return summary, nil
}

func (s Service) crawlDate(ctx context.Context, day nhl.ScheduleDate, summary *Summary) error {
	if s.opts.Workers > 1 {
		return s.crawlDateParallel(ctx, day, summary)
	}

	written := 0
	for _, game := range day.Games {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, err := s.crawlGame(ctx, day.Date, game.GamePk)
		if err != nil {
			if !s.recordFailure(ctx, summary, day.Date, game.GamePk, err) {
				return err
			}
			continue
		}

		gamesCrawled.Add(ctx, 1)
		written++
		summary.RowsWritten += rows
	}

	summary.Dates = append(summary.Dates, DateSummary{Date: day.Date, GamesWritten: written})
	return nil
}

// crawlDateParallel fans the date's games out to a bounded pool. Games are
// independent, only the summary is shared.
func (s Service) crawlDateParallel(ctx context.Context, day nhl.ScheduleDate, summary *Summary) error {
	sem := make(chan struct{}, s.opts.Workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errlist []error

	written := 0
	rows := 0
	for _, game := range day.Games {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(gameID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			n, err := s.crawlGame(ctx, day.Date, gameID)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !s.recordFailure(ctx, summary, day.Date, gameID, err) {
					errlist = append(errlist, err)
				}
				return
			}
			gamesCrawled.Add(ctx, 1)
			written++
			rows += n
		}(game.GamePk)
	}
	wg.Wait()

	summary.Dates = append(summary.Dates, DateSummary{Date: day.Date, GamesWritten: written})
	summary.RowsWritten += rows

	if err := ctx.Err(); err != nil {
		errlist = append(errlist, err)
	}
	return errors.Join(errlist...)
}

// recordFailure logs a failed game and reports whether the crawl should
// keep going.
func (s Service) recordFailure(ctx context.Context, summary *Summary, date string, gameID int64, err error) bool {
	gamesFailed.Add(ctx, 1)
	slog.ErrorContext(ctx, "game crawl failed", "game_id", gameID, "date", date, "err", err)

	if !s.opts.SkipFailedGames {
		return false
	}
	summary.Failures = append(summary.Failures, GameFailure{GameID: gameID, Date: date, Err: err})
	return true
}

// crawlGame runs the per-game pipeline: box score, stats table, CSV bytes,
// keyed store. Every failure identifies its phase and the game it belongs to.
func (s Service) crawlGame(ctx context.Context, date string, gameID int64) (int, error) {
	ctx, span := tracer.Start(ctx, "crawlGame")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("game_id", gameID),
		attribute.String("date", date),
	)

	fail := func(phase string, err error) (int, error) {
		wrapped := &CrawlError{Phase: phase, GameID: gameID, Date: date, Err: err}
		span.RecordError(wrapped)
		span.SetStatus(codes.Error, wrapped.Error())
		return 0, wrapped
	}

	box, err := s.api.Boxscore(ctx, gameID)
	if err != nil {
		return fail("boxscore", err)
	}

	table, err := BuildGameStats(box)
	if err != nil {
		return fail("stats", err)
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		return fail("serialize", err)
	}

	key := StorageKey{GameID: gameID}
	if s.opts.PartitionByDate {
		key.Date = date
	}
	if err := s.storage.StoreGame(ctx, key, buf.Bytes()); err != nil {
		return fail("store", err)
	}

	return len(table.Rows), nil
}
