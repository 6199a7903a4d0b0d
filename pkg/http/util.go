package http

import (
	"time"

	xutil "SetupScan/pkg/util"
)

// ParseTimeRange parses optional from/to bounds. Empty bounds stay zero.
func ParseTimeRange(from, to string) (time.Time, time.Time, error) {
	var lo, hi time.Time
	if from != "" {
		t, ok := xutil.ParseTime(from)
		if !ok {
			return lo, hi, BadRequestErrorf("invalid from %q", from).WithField("from")
		}
		lo = t
	}
	if to != "" {
		t, ok := xutil.ParseTime(to)
		if !ok {
			return lo, hi, BadRequestErrorf("invalid to %q", to).WithField("to")
		}
		hi = t
	}
	if !lo.IsZero() && !hi.IsZero() && lo.After(hi) {
		return lo, hi, BadRequestError("from must not be after to").WithField("from")
	}
	return lo, hi, nil
}
