package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/kaminuma/lifelog-insight-service/internal/models"
)

// statusClass maps one HTTP status to a domain error. Both backend adapters
// classify through the same table so failure behavior is identical regardless
// of which strategy is active.
type statusClass struct {
	Kind    models.ErrorKind
	Message string
}

var statusClasses = map[int]statusClass{
	http.StatusUnauthorized: {models.ErrKindInvalidCredentials,
		"the credentials were rejected, please check your API key or sign in again"},
	http.StatusTooManyRequests: {models.ErrKindRateLimitExceeded,
		"the AI service is receiving too many requests, please try again later"},
	http.StatusBadRequest: {models.ErrKindRequest,
		"the analysis request was rejected by the AI service"},
	http.StatusForbidden: {models.ErrKindRequest,
		"access to the AI service was denied for this account"},
	http.StatusNotFound: {models.ErrKindRequest,
		"the AI service endpoint was not found, the app may need an update"},
}

// insufficiencyHints are provider error fragments that indicate the request
// carried too little data rather than being malformed.
var insufficiencyHints = []string{
	"insufficient",
	"not enough data",
	"no data",
	"empty",
}

// ClassifyStatus maps a non-2xx HTTP status (plus the response body text) to
// a DomainError. Returns nil for 2xx statuses.
func ClassifyStatus(status int, body string) *models.DomainError {
	if status >= 200 && status < 300 {
		return nil
	}

	if class, ok := statusClasses[status]; ok {
		message := class.Message
		if status == http.StatusBadRequest && hintsInsufficiency(body) {
			return models.NewDomainError(models.ErrKindRequest,
				"there is not enough data in the selected period for an analysis")
		}
		return models.NewDomainError(class.Kind, message)
	}

	if status >= 500 {
		return models.NewDomainError(models.ErrKindNetwork,
			"the AI service had a temporary problem, please try again in a moment")
	}

	return models.NewDomainError(models.ErrKindUnknown,
		"the AI service returned an unexpected response")
}

func hintsInsufficiency(body string) bool {
	lower := strings.ToLower(body)
	for _, hint := range insufficiencyHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// ClassifyError maps a transport-level failure to a DomainError. DomainErrors
// already in the chain pass through unchanged.
func ClassifyError(err error) *models.DomainError {
	if derr, ok := models.AsDomainError(err); ok {
		return derr
	}

	if errors.Is(err, context.Canceled) {
		return models.WrapDomainError(models.ErrKindRequest, "the analysis was cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.WrapDomainError(models.ErrKindNetwork,
			"the connection to the AI service timed out, please check your network", err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return models.WrapDomainError(models.ErrKindNetwork,
			"the AI service could not be reached, please check your network", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.WrapDomainError(models.ErrKindNetwork,
			"the connection to the AI service timed out, please check your network", err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return models.WrapDomainError(models.ErrKindNetwork,
			"the AI service could not be reached, please check your network", err)
	}

	return models.WrapDomainError(models.ErrKindUnknown, err.Error(), err)
}
