package domain

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ReasonParseError is the failure reason when the page is not in the expected shape.
	ReasonParseError = "Error occurred while parsing data."
	// ReasonNotFound is the failure reason when the page carries no status banner.
	ReasonNotFound = "Data Not Found."
)

var (
	// ErrUnknownCarrier is returned when the carrier is not in the registry.
	ErrUnknownCarrier = errors.New("unknown carrier")
	// ErrInvalidRequest is returned when carrier or waybill is missing.
	ErrInvalidRequest = errors.New("carrier and waybill are required")
)

// RetrievalError reports a failure while driving the aggregator page.
type RetrievalError struct {
	// Stage names the step that failed (launch, navigate, select, ...).
	Stage string
	// Err is the underlying cause.
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed at %s: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// TrackingRequest is a single carrier + waybill lookup.
type TrackingRequest struct {
	Carrier string `json:"carrier"`
	Waybill string `json:"waybill"`
}

// NewTrackingRequest trims and validates the request fields.
func NewTrackingRequest(carrier, waybill string) (TrackingRequest, error) {
	req := TrackingRequest{
		Carrier: strings.TrimSpace(carrier),
		Waybill: strings.TrimSpace(waybill),
	}
	if req.Carrier == "" || req.Waybill == "" {
		return TrackingRequest{}, ErrInvalidRequest
	}
	return req, nil
}

// HistoryTable is the tracking history as rows of cell text, header row first.
type HistoryTable [][]string

// Outcome is either a successful history table or a failure reason.
type Outcome struct {
	// Success is true when History is populated.
	Success bool `json:"success"`
	// History is set on success.
	History HistoryTable `json:"history,omitempty"`
	// Reason is set on failure.
	Reason string `json:"reason,omitempty"`
}

// Succeeded returns a successful Outcome.
func Succeeded(history HistoryTable) Outcome {
	return Outcome{Success: true, History: history}
}

// Failed returns a failed Outcome.
func Failed(reason string) Outcome {
	return Outcome{Reason: reason}
}

// LookupResult is what command adapters receive for a lookup.
type LookupResult struct {
	// Success mirrors Outcome.Success.
	Success bool `json:"success"`
	// Text is the reply body; MarkdownV2-escaped on success, plain text on failure.
	Text string `json:"text"`
	// Outcome is the structured result Text was rendered from.
	Outcome Outcome `json:"outcome"`
}
