package ports

import (
	"context"

	"resi-tracker/internal/features/tracking/domain"
)

// PageFetcher drives the aggregator site and returns the rendered result page.
type PageFetcher interface {
	// FetchTrackingPage selects the carrier via trigger, submits the waybill and returns the
	// page markup once results are rendered. Failures are *domain.RetrievalError.
	FetchTrackingPage(ctx context.Context, waybill string, trigger domain.Trigger) (string, error)
}

// PageParser turns the rendered result page into a tracking outcome.
type PageParser interface {
	// Parse never fails; unexpected markup becomes a failed Outcome.
	Parse(markup string) domain.Outcome
}
