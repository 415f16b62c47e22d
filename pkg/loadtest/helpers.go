package loadtest

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	uuid "github.com/satori/go.uuid"
)

// newRand creates an independent source of randomness for one component of
// the simulation. Each goroutine owns its own source since *rand.Rand is not
// safe for concurrent use. The stream distinguishes components sharing the
// same seed.
func newRand(seed int64, stream int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(stream)*7919))
}

func resolveSeed(seed int64) int64 {
	if seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

func makeRunID() string {
	return strings.ReplaceAll(uuid.NewV4().String(), "-", "")
}

// sleepContext blocks for the given duration, returning early with the
// context's error if it's cancelled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	tmr := time.NewTimer(d)
	defer tmr.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-tmr.C:
		return nil
	}
}

// runRecovered calls fn. A panic in fn is turned into an ErrUnexpected error
// and handed to onPanic, so that it can be reported from the top level like
// any other failure instead of crashing the process.
func runRecovered(fn func(), onPanic func(err error)) {
	defer func() {
		if r := recover(); r != nil {
			onPanic(NewError(ErrUnexpected, nil, fmt.Sprintf("%v", r)))
		}
	}()
	fn()
}
