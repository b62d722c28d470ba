package marketplace

import (
	"context"
	"fmt"

	"ticket-settlement-lab/internal/bridge"
	"ticket-settlement-lab/internal/callenc"
)

// CallHandler is the marketplace's cross-module entry point. It decodes a
// versioned create_listing payload and runs the normal create path, which
// re-validates every precondition independently of the caller.
type CallHandler struct {
	svc *Service
}

// NewCallHandler wraps a marketplace service for cross-module dispatch.
func NewCallHandler(svc *Service) *CallHandler {
	return &CallHandler{svc: svc}
}

// Compile-time check that the handler satisfies the bridge's dispatcher.
var _ bridge.Dispatcher = (*CallHandler)(nil)

func (h *CallHandler) Dispatch(ctx context.Context, data []byte) error {
	call, err := callenc.DecodeCreateListing(data)
	if err != nil {
		return fmt.Errorf("decode create_listing call: %w", err)
	}

	_, err = h.svc.CreateListing(ctx, CreateListingInput{
		Seller:        call.Seller,
		EventID:       call.EventID,
		AssetID:       call.AssetID,
		Price:         call.Price,
		OriginalPrice: call.OriginalPrice,
		ExpiresAt:     call.ExpiresAt,
	})
	return err
}
