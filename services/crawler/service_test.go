package crawler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nhlcrawl-backend/lib/nhl"
	"nhlcrawl-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	schedule    nhl.Schedule
	scheduleErr error
	boxscores   map[int64]nhl.BoxScore
	boxscoreErr map[int64]error
}

func (f *fakeAPI) Schedule(_ context.Context, _ nhl.DateRange) (nhl.Schedule, error) {
	if f.scheduleErr != nil {
		return nhl.Schedule{}, f.scheduleErr
	}
	return f.schedule, nil
}

func (f *fakeAPI) Boxscore(_ context.Context, gameID int64) (nhl.BoxScore, error) {
	if err := f.boxscoreErr[gameID]; err != nil {
		return nhl.BoxScore{}, err
	}
	return f.boxscores[gameID], nil
}

func testRange(t *testing.T) nhl.DateRange {
	t.Helper()
	dates, err := nhl.ParseDateRange("2020-08-04", "2020-08-05")
	require.NoError(t, err)
	return dates
}

// one date, two games, each game 1 home skater + 1 home goalie + 1 away skater
func twoGameFixture() *fakeAPI {
	box := boxWith(
		map[string]map[string]any{
			"ID1": skater(1, "Home Skater"),
			"ID2": goalie(2, "Home Goalie"),
		},
		map[string]map[string]any{
			"ID3": skater(3, "Away Skater"),
		},
	)
	return &fakeAPI{
		schedule: nhl.Schedule{Dates: []nhl.ScheduleDate{
			{
				Date:  "2020-08-04",
				Games: []nhl.Game{{GamePk: 2019030041}, {GamePk: 2019030042}},
			},
		}},
		boxscores: map[int64]nhl.BoxScore{
			2019030041: box,
			2019030042: box,
		},
		boxscoreErr: map[int64]error{},
	}
}

func TestCrawlTwoGames(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	store := newMemStore()
	svc := NewService(twoGameFixture(), NewStorage(store, "output"), Options{})

	summary, err := svc.Crawl(context.Background(), testRange(t))
	require.NoError(t, err)

	require.Len(t, store.objects, 2)
	require.Contains(t, store.objects, "output/2019030041.csv")
	require.Contains(t, store.objects, "output/2019030042.csv")

	for _, key := range []string{"output/2019030041.csv", "output/2019030042.csv"} {
		lines := strings.Split(strings.TrimRight(string(store.objects[key]), "\n"), "\n")
		// header + one home skater + one away skater, no goalie
		require.Len(t, lines, 3)
		require.NotContains(t, string(store.objects[key]), "Goalie")
	}

	require.Equal(t, []DateSummary{{Date: "2020-08-04", GamesWritten: 2}}, summary.Dates)
	require.Equal(t, 4, summary.RowsWritten)
	require.Empty(t, summary.Failures)
}

func TestCrawlIdempotent(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	first := newMemStore()
	svc := NewService(twoGameFixture(), NewStorage(first, "output"), Options{})
	_, err := svc.Crawl(context.Background(), testRange(t))
	require.NoError(t, err)

	second := newMemStore()
	svc = NewService(twoGameFixture(), NewStorage(second, "output"), Options{})
	_, err = svc.Crawl(context.Background(), testRange(t))
	require.NoError(t, err)

	require.Equal(t, first.objects, second.objects)
}

func TestCrawlAllGoalieGame(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	api := twoGameFixture()
	api.schedule.Dates[0].Games = api.schedule.Dates[0].Games[:1]
	api.boxscores[2019030041] = boxWith(
		map[string]map[string]any{"ID1": goalie(1, "Home Goalie")},
		map[string]map[string]any{"ID2": goalie(2, "Away Goalie")},
	)

	store := newMemStore()
	svc := NewService(api, NewStorage(store, "output"), Options{})

	summary, err := svc.Crawl(context.Background(), testRange(t))
	require.NoError(t, err)

	// the game still produces an object, holding only the empty header line
	require.Equal(t, []byte("\n"), store.objects["output/2019030041.csv"])
	require.Equal(t, []DateSummary{{Date: "2020-08-04", GamesWritten: 1}}, summary.Dates)
	require.Equal(t, 0, summary.RowsWritten)
}

func TestCrawlScheduleFailure(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	cause := &nhl.RemoteFetchError{Endpoint: "/schedule", StatusCode: 502}
	api := &fakeAPI{scheduleErr: cause}
	svc := NewService(api, NewStorage(newMemStore(), "output"), Options{})

	_, err := svc.Crawl(context.Background(), testRange(t))
	require.Error(t, err)

	var crawlErr *CrawlError
	require.ErrorAs(t, err, &crawlErr)
	require.Equal(t, "schedule", crawlErr.Phase)
	require.Equal(t, "2020-08-04..2020-08-05", crawlErr.Date)
	require.ErrorIs(t, err, cause)
}

func TestCrawlAbortsOnGameFailureByDefault(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	api := twoGameFixture()
	cause := &nhl.RemoteFetchError{Endpoint: "/game/2019030041/boxscore", StatusCode: 500}
	api.boxscoreErr[2019030041] = cause

	store := newMemStore()
	svc := NewService(api, NewStorage(store, "output"), Options{})

	_, err := svc.Crawl(context.Background(), testRange(t))
	require.Error(t, err)

	var crawlErr *CrawlError
	require.ErrorAs(t, err, &crawlErr)
	require.Equal(t, "boxscore", crawlErr.Phase)
	require.Equal(t, int64(2019030041), crawlErr.GameID)
	require.Equal(t, "2020-08-04", crawlErr.Date)
	require.ErrorIs(t, err, cause)

	// the failing game aborted the run before the second was attempted
	require.Empty(t, store.objects)
}

func TestCrawlSkipFailedGames(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	api := twoGameFixture()
	api.boxscoreErr[2019030041] = &nhl.RemoteFetchError{Endpoint: "/game/2019030041/boxscore", StatusCode: 500}

	store := newMemStore()
	svc := NewService(api, NewStorage(store, "output"), Options{SkipFailedGames: true})

	summary, err := svc.Crawl(context.Background(), testRange(t))
	require.NoError(t, err)

	require.Len(t, store.objects, 1)
	require.Contains(t, store.objects, "output/2019030042.csv")

	require.Len(t, summary.Failures, 1)
	require.Equal(t, int64(2019030041), summary.Failures[0].GameID)
	require.Equal(t, "2020-08-04", summary.Failures[0].Date)
	require.Equal(t, []DateSummary{{Date: "2020-08-04", GamesWritten: 1}}, summary.Dates)
}

func TestCrawlMalformedBoxScore(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	api := twoGameFixture()
	api.boxscores[2019030041] = nhl.BoxScore{}

	svc := NewService(api, NewStorage(newMemStore(), "output"), Options{})

	_, err := svc.Crawl(context.Background(), testRange(t))
	require.Error(t, err)

	var crawlErr *CrawlError
	require.ErrorAs(t, err, &crawlErr)
	require.Equal(t, "stats", crawlErr.Phase)

	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
}

func TestCrawlStorageFailurePropagates(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	store := newMemStore()
	store.putErr = errors.New("quota exceeded")

	svc := NewService(twoGameFixture(), NewStorage(store, "output"), Options{})

	_, err := svc.Crawl(context.Background(), testRange(t))
	require.Error(t, err)

	var crawlErr *CrawlError
	require.ErrorAs(t, err, &crawlErr)
	require.Equal(t, "store", crawlErr.Phase)

	var writeErr *StorageWriteError
	require.ErrorAs(t, err, &writeErr)
	require.Equal(t, "2019030041.csv", writeErr.Key)
}

func TestCrawlPartitionByDate(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	store := newMemStore()
	svc := NewService(twoGameFixture(), NewStorage(store, "output"), Options{PartitionByDate: true})

	_, err := svc.Crawl(context.Background(), testRange(t))
	require.NoError(t, err)

	require.Contains(t, store.objects, "output/dt=2020-08-04/2019030041.csv")
	require.Contains(t, store.objects, "output/dt=2020-08-04/2019030042.csv")
}

func TestCrawlParallelWorkers(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	store := newMemStore()
	svc := NewService(twoGameFixture(), NewStorage(store, "output"), Options{Workers: 4})

	summary, err := svc.Crawl(context.Background(), testRange(t))
	require.NoError(t, err)

	require.Len(t, store.objects, 2)
	require.Equal(t, 4, summary.RowsWritten)
}

func TestCrawlCancelledContext(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:crawler")
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewService(twoGameFixture(), NewStorage(newMemStore(), "output"), Options{})
	_, err := svc.Crawl(ctx, testRange(t))
	require.ErrorIs(t, err, context.Canceled)
}
