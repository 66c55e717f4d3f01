package location

import (
	"context"

	"plantpantry/internal/geo"
)

type reportedPositionKey struct{}

type reportedPosition struct {
	point *geo.Point
	err   error
}

// WithReportedPosition stashes a client-reported device position in the
// context for ContextLocator to pick up.
func WithReportedPosition(ctx context.Context, p geo.Point) context.Context {
	return context.WithValue(ctx, reportedPositionKey{}, reportedPosition{point: &p})
}

// WithReportedFailure stashes a client-reported geolocation failure.
func WithReportedFailure(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, reportedPositionKey{}, reportedPosition{err: err})
}

// FailureByCode maps the client-reported failure code to the matching
// resolver error. Unknown codes read as position unavailable.
func FailureByCode(code string) error {
	switch code {
	case "permission_denied":
		return ErrPermissionDenied
	case "timeout":
		return ErrTimeout
	case "unsupported":
		return ErrUnsupported
	default:
		return ErrPositionUnavailable
	}
}

// ContextLocator reads the device position the client reported with the
// request. The browser runs the actual geolocation API and posts the
// outcome; the server never talks to device hardware itself.
type ContextLocator struct{}

// CurrentPosition returns the reported position or the reported failure.
// A request that reported nothing reads as position unavailable.
func (ContextLocator) CurrentPosition(ctx context.Context) (geo.Point, error) {
	rep, ok := ctx.Value(reportedPositionKey{}).(reportedPosition)
	if !ok {
		return geo.Point{}, ErrPositionUnavailable
	}
	if rep.err != nil {
		return geo.Point{}, rep.err
	}
	return *rep.point, nil
}
