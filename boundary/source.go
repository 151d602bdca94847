package boundary

import (
	"context"
	"errors"

	goSession "github.com/MrEthical07/goSession"
)

// ErrSourceClosed is returned by Wait when the source stops publishing before the
// status is resolved.
var ErrSourceClosed = errors.New("status source closed")

// Source exposes session status without the ability to change it.
type Source interface {
	Status() goSession.Status
	Subscribe() (<-chan goSession.Status, func())
}

var _ Source = (*goSession.Controller)(nil)

// Wait blocks until src reports a status other than Unknown and returns it. It returns
// ctx.Err() if ctx ends first, and ErrSourceClosed if the subscription is closed while
// the status is still Unknown.
func Wait(ctx context.Context, src Source) (goSession.Status, error) {
	if status := src.Status(); status != goSession.StatusUnknown {
		return status, nil
	}

	updates, cancel := src.Subscribe()
	defer cancel()

	for {
		select {
		case status, ok := <-updates:
			if !ok {
				if status := src.Status(); status != goSession.StatusUnknown {
					return status, nil
				}
				return goSession.StatusUnknown, ErrSourceClosed
			}
			if status != goSession.StatusUnknown {
				return status, nil
			}
		case <-ctx.Done():
			return goSession.StatusUnknown, ctx.Err()
		}
	}
}
