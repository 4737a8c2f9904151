package crawler

import "fmt"

// MalformedResponseError reports a box score missing a structural key the
// stats builder cannot work without.
type MalformedResponseError struct {
	Missing string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed box score: missing %q", e.Missing)
}

// StorageWriteError reports a failed object-store write. The underlying
// cause is retained, never swallowed.
type StorageWriteError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("store key=%s bucket=%s: %v", e.Key, e.Bucket, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// CrawlError identifies which phase of the crawl failed and, for per-game
// phases, the game and date it failed on. For the schedule phase Date holds
// the requested range.
type CrawlError struct {
	Phase  string
	GameID int64
	Date   string
	Err    error
}

func (e *CrawlError) Error() string {
	if e.GameID != 0 {
		return fmt.Sprintf("crawl phase=%s game=%d date=%s: %v", e.Phase, e.GameID, e.Date, e.Err)
	}
	return fmt.Sprintf("crawl phase=%s range=%s: %v", e.Phase, e.Date, e.Err)
}

func (e *CrawlError) Unwrap() error { return e.Err }
