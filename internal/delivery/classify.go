package delivery

import (
	"fmt"
	"net/http"

	"monitorss/internal/outcomes"
)

// Result is what the pipeline does with a job after a dispatch.
type Result int

const (
	ResultDelivered Result = iota
	// ResultRateLimited drops the job for this cycle without an outcome.
	ResultRateLimited
	// ResultBacklogged puts the job back on the destination's backlog.
	ResultBacklogged
	ResultRejected
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultDelivered:
		return "delivered"
	case ResultRateLimited:
		return "rate_limited"
	case ResultBacklogged:
		return "backlogged"
	case ResultRejected:
		return "rejected"
	case ResultFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Classification is the interpretation of one Response.
type Classification struct {
	Result    Result
	Status    outcomes.Status
	ErrorCode outcomes.ErrorCode
	Comment   string
	// Event is empty when no destination event should be published.
	Event EventType
}

// Terminal reports whether the job is finished and an outcome is due.
func (c Classification) Terminal() bool {
	return c.Result == ResultDelivered || c.Result == ResultRejected || c.Result == ResultFailed
}

// Classify maps a response to a Classification. attempts counts dispatches of
// the job so far, including this one. Server errors are backlogged until
// attempts reaches maxAttempts.
func Classify(resp Response, attempts, maxAttempts int) Classification {
	if resp.Err != nil && resp.StatusCode == 0 {
		return Classification{Result: ResultBacklogged}
	}

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return Classification{Result: ResultDelivered, Status: outcomes.StatusSent}
	case code == http.StatusBadRequest:
		return Classification{
			Result:    ResultRejected,
			Status:    outcomes.StatusRejected,
			ErrorCode: outcomes.ErrorCodeThirdPartyBadRequest,
			Comment:   resp.Body,
			Event:     EventBadFormat,
		}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Classification{
			Result:    ResultRejected,
			Status:    outcomes.StatusRejected,
			ErrorCode: outcomes.ErrorCodeThirdPartyForbidden,
			Event:     EventMissingPermissions,
		}
	case code == http.StatusNotFound:
		return Classification{
			Result:    ResultRejected,
			Status:    outcomes.StatusRejected,
			ErrorCode: outcomes.ErrorCodeThirdPartyNotFound,
			Event:     EventNotFound,
		}
	case code == http.StatusTooManyRequests:
		return Classification{Result: ResultRateLimited, Status: outcomes.StatusRateLimited}
	case code >= 500:
		if maxAttempts > 0 && attempts < maxAttempts {
			return Classification{Result: ResultBacklogged}
		}
		return Classification{
			Result:    ResultFailed,
			Status:    outcomes.StatusFailed,
			ErrorCode: outcomes.ErrorCodeThirdPartyInternal,
			Comment:   resp.Body,
		}
	default:
		return Classification{
			Result:    ResultFailed,
			Status:    outcomes.StatusFailed,
			ErrorCode: outcomes.ErrorCodeInternal,
			Comment:   fmt.Sprintf("unhandled status code %d: %s", code, resp.Body),
		}
	}
}
