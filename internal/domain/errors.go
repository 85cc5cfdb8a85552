package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("document not found")
	ErrProvisioning    = errors.New("collection provisioning failed")
	ErrIngestion       = errors.New("ingestion failed")
	ErrQuery           = errors.New("query failed")
	ErrMalformedResult = errors.New("malformed query result")
	ErrInvalidResponse = errors.New("invalid synthesizer response")
)

// ConfigError lists every required setting that is absent.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required settings: %s", strings.Join(e.Missing, ", "))
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// QueryError carries the messages from a store response envelope that
// reported errors instead of data.
type QueryError struct {
	Messages []string
}

func (e *QueryError) Error() string {
	return "query failed: " + strings.Join(e.Messages, "; ")
}

func (e *QueryError) Unwrap() error { return ErrQuery }

// MalformedResultError is returned when a record misses a required field.
// Keys holds the fields the record did carry, sorted.
type MalformedResultError struct {
	Index int
	Field string
	Keys  []string
}

func (e *MalformedResultError) Error() string {
	return fmt.Sprintf("record %d: %s not found in result, got keys: [%s]",
		e.Index, e.Field, strings.Join(e.Keys, ", "))
}

func (e *MalformedResultError) Unwrap() error { return ErrMalformedResult }
