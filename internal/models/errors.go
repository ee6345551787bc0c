package models

import (
	"errors"
	"fmt"
	"strings"
)

// Custom errors
var (
	ErrNotFound            = errors.New("record not found")
	ErrDuplicateKey        = errors.New("duplicate key violation")
	ErrInvalidID           = errors.New("invalid ID format")
	ErrDataUnavailable     = errors.New("no session data available")
	ErrInsufficientData    = errors.New("insufficient training data")
	ErrUpstreamUnavailable = errors.New("upstream storage unavailable")
)

// SchemaMismatchError is returned when a persisted model's feature schema
// does not match the schema the caller expects. It is fatal at model load.
type SchemaMismatchError struct {
	Expected []string
	Got      []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("model feature schema mismatch: expected [%s], got [%s]",
		strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
}

// DataQualityError describes a single row excluded from a dataset. Rows with
// quality problems are dropped and counted, never imputed.
type DataQualityError struct {
	DriverAbbr string
	Field      string
	Reason     string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("data quality: driver %s, field %s: %s", e.DriverAbbr, e.Field, e.Reason)
}
