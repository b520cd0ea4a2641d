package models

import "errors"

var (
	// ErrStorage reports that the local medium is unavailable or rejected a read, write or delete.
	ErrStorage = errors.New("storage failure")
	// ErrConfigurationMissing reports that the sink URL is unset or still holds a placeholder.
	ErrConfigurationMissing = errors.New("sink configuration missing")
	// ErrTransmission reports a network or protocol failure while pushing rows to the sink.
	ErrTransmission = errors.New("transmission failure")
	// ErrInvalidMeasurement reports a non-positive or non-numeric measurement.
	ErrInvalidMeasurement = errors.New("invalid measurement")
	// ErrSyncInProgress reports that another sync attempt is still running.
	ErrSyncInProgress = errors.New("sync already in progress")
)
