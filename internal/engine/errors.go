package engine

import (
	"context"
	"errors"
	"net"

	"google.golang.org/api/googleapi"
)

// Kind classifies a remote failure for retry and abort decisions.
type Kind int

const (
	// KindTransient covers rate-limit responses, timeouts and 5xx-class
	// failures. Retried with backoff.
	KindTransient Kind = iota
	// KindUnauthorized means the credential was rejected or lacks scope.
	// Fatal for the run; the engine cannot self-recover.
	KindUnauthorized
	// KindQueryInvalid means the server rejected the search expression.
	// Fatal for the run.
	KindQueryInvalid
	// KindNotFound means the item is already gone. Success-adjacent for
	// deletions.
	KindNotFound
	// KindCancelled means the caller's context ended the operation.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindUnauthorized:
		return "unauthorized"
	case KindQueryInvalid:
		return "query-invalid"
	case KindNotFound:
		return "not-found"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Fatal reports whether a failure of this kind must abort the whole run.
func (k Kind) Fatal() bool {
	return k == KindUnauthorized || k == KindQueryInvalid
}

// Retryable reports whether the same call may be attempted again.
func (k Kind) Retryable() bool {
	return k == KindTransient
}

// quota-class reasons Gmail attaches to 403 responses that actually mean
// "slow down", not "forbidden".
var quotaReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
}

// Classify maps an error from the Gmail API surface onto the Kind taxonomy.
// Anything unrecognized is treated as transient: retrying an unknown failure
// is cheap, while aborting on one loses the rest of the run.
func Classify(err error) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401:
			return KindUnauthorized
		case gerr.Code == 403:
			for _, item := range gerr.Errors {
				if quotaReasons[item.Reason] {
					return KindTransient
				}
			}
			return KindUnauthorized
		case gerr.Code == 400:
			return KindQueryInvalid
		case gerr.Code == 404:
			return KindNotFound
		case gerr.Code == 429 || gerr.Code >= 500:
			return KindTransient
		}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return KindTransient
	}
	return KindTransient
}
