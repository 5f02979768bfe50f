package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

const BatchIDKey ctxKey = "batch_id"

// Time logs the duration and outcome of a named operation when the returned
// function is deferred. The error pointer lets the deferred call observe the
// operation's final error.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	batchID, _ := ctx.Value(BatchIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("batch=%s op=%s dur=%dms err=%v", batchID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("batch=%s op=%s dur=%dms", batchID, name, dur.Milliseconds())
	}
}
