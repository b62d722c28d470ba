package registry

import (
	"ticket-settlement-lab/internal/domain"
)

// validateString enforces length and printable-ASCII charset.
func validateString(s string, maxLen int) error {
	if len(s) > maxLen {
		return domain.ErrInvalidInput
	}
	for _, c := range s {
		if (c < 0x21 || c > 0x7E) && c != ' ' {
			return domain.ErrInvalidInput
		}
	}
	return nil
}

func validateEventTimes(startTime, endTime, now int64) error {
	// Start must be at least the minimum lead time in the future.
	if startTime <= now+domain.MinEventLeadTime {
		return domain.ErrInvalidTiming
	}
	if endTime <= startTime {
		return domain.ErrInvalidTiming
	}
	if endTime-startTime > domain.MaxEventDuration {
		return domain.ErrInvalidTiming
	}
	return nil
}

func validatePriceBounds(price uint64) error {
	if price < domain.MinTicketPrice || price > domain.MaxTicketPrice {
		return domain.ErrInvalidInput
	}
	return nil
}

func validateCapacity(capacity uint32) error {
	if capacity == 0 || capacity > domain.MaxEventCapacity {
		return domain.ErrInvalidInput
	}
	return nil
}

func validateRefundWindow(window int64) error {
	if window < 0 || window > domain.MaxRefundWindow {
		return domain.ErrInvalidTiming
	}
	return nil
}
