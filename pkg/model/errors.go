package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrStorageUnavailable is raised when the durable store cannot be read or
	// written. The journal recovers from it locally and only logs it.
	ErrStorageUnavailable = goerr.New("storage unavailable")

	// ErrInvalidRecord rejects an insertion without a usable summary
	ErrInvalidRecord = goerr.New("invalid record")

	ErrGenerationFailed    = goerr.New("generation failed")
	ErrSummarizationFailed = goerr.New("summarization failed")

	ErrNotReady       = goerr.New("journal is not ready")
	ErrRecordNotFound = goerr.New("record not found")

	// ErrNoSeed means there is no symbolic seed to evolve yet
	ErrNoSeed = goerr.New("no seed is held")
)
