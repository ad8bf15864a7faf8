package hw

import (
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/moffa90/go-fsbl/bootimage"
	"github.com/moffa90/go-fsbl/status"
)

// DefaultPowerRetries bounds the number of acknowledge polls of a power-up request.
const DefaultPowerRetries = 10000

var errPowerPending = errors.New("power-up request pending")

// PowerUpIsland requests the power islands in mask and polls until the PMU
// clears the request, giving up after retries polls.
func PowerUpIsland(r Registers, mask uint32, retries uint64) error {
	r.Write32(ReqPwrUpIntEn, mask)
	r.Write32(ReqPwrUpTrigger, mask)

	op := func() error {
		if r.Read32(ReqPwrUpStatus)&mask != 0 {
			return errPowerPending
		}
		return nil
	}
	return backoff.Retry(op, backoff.WithMaxRetries(&backoff.ZeroBackOff{}, retries))
}

// PowerUpError indicates a core whose power islands never came up.
type PowerUpError struct {
	Core bootimage.Core
	Mask uint32
	Err  error
}

func (e *PowerUpError) Error() string {
	return fmt.Sprintf("power up %s (islands 0x%X): %v", e.Core, e.Mask, e.Err)
}

func (e *PowerUpError) Unwrap() error { return e.Err }

// StatusCode returns the power-up code specific to the core.
func (e *PowerUpError) StatusCode() status.Code {
	switch e.Core {
	case bootimage.CoreA53_0:
		return status.PowerUpA530
	case bootimage.CoreA53_1:
		return status.PowerUpA531
	case bootimage.CoreA53_2:
		return status.PowerUpA532
	case bootimage.CoreA53_3:
		return status.PowerUpA533
	case bootimage.CoreR5_0:
		return status.PowerUpR50
	case bootimage.CoreR5_1:
		return status.PowerUpR51
	case bootimage.CoreR5Lockstep:
		return status.PowerUpR5Lockstep
	default:
		return status.PowerUpCore
	}
}
