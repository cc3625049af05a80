package repository

import "errors"

var (
	// ErrEntryNotFound is returned by Tier.Lookup on a cache miss.
	ErrEntryNotFound = errors.New("cache entry not found")

	// ErrEntryTooLarge is returned when an entry exceeds a tier's entire
	// budget and cannot be stored. Advisory: callers treat the store as
	// skipped, not as a request failure.
	ErrEntryTooLarge = errors.New("cache entry exceeds tier budget")

	// ErrTierUnavailable indicates the backing store could not be reached.
	// Always non-fatal: reads degrade to a miss, writes to best-effort skipped.
	ErrTierUnavailable = errors.New("cache tier unavailable")

	// ErrBucketNotFound is returned when the configured object storage bucket
	// does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrVideoUnavailable is returned by the resolver when the video cannot
	// be resolved to a playable stream (removed, private, geo-blocked).
	ErrVideoUnavailable = errors.New("video unavailable")

	// ErrQualityUnavailable is returned when the resolved video carries no
	// stream matching the requested quality level.
	ErrQualityUnavailable = errors.New("no stream available for requested quality")

	// ErrExtractionFailed is returned when the frame extractor could not
	// produce image bytes from a resolved stream.
	ErrExtractionFailed = errors.New("frame extraction failed")
)
