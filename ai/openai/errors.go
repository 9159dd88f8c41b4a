package openai

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"

	"github.com/poiesic/knowledge/ai"
	"github.com/poiesic/knowledge/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

	// transport failures are reported by the client as plain strings
	transportPattern = regexp.MustCompile(`(?i)request timeout|network error|connection refused|connection reset|EOF`)
)

// classifier returns an ai.Classifier for calls made under ctx.
// Once ctx itself is done no further attempts are useful.
func classifier(ctx context.Context) ai.Classifier {
	return func(err error) ai.Classification {
		if ctx.Err() != nil {
			return ai.Canceled
		}
		return classify(err)
	}
}

// classify decides whether a failed embedding call may succeed if retried.
func classify(err error) ai.Classification {
	switch {
	case err == nil:
		return ai.Transient
	case errors.Is(err, core.ErrDimensionMismatch),
		errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, errCountMismatch),
		errors.Is(err, openai.ErrUnexpectedResponseLength):
		return ai.Permanent
	case errors.Is(err, context.Canceled):
		return ai.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		// the per-call timeout fired while the caller is still waiting
		return ai.Transient
	}

	if code, ok := statusCode(err); ok {
		return classifyStatus(code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || transportPattern.MatchString(err.Error()) {
		return ai.Transient
	}

	var llmErr *llms.Error
	if errors.As(openai.MapError(err), &llmErr) {
		return classifyCode(llmErr.Code)
	}
	return ai.Transient
}

// classifyStatus maps an HTTP status code returned by the service.
func classifyStatus(code int) ai.Classification {
	switch {
	case code == 408, code == 425, code == 429, code >= 500:
		return ai.Transient
	case code >= 400:
		return ai.Permanent
	}
	return ai.Transient
}

// classifyCode maps langchaingo's normalized error codes.
func classifyCode(code llms.ErrorCode) ai.Classification {
	switch code {
	case llms.ErrCodeRateLimit,
		llms.ErrCodeTimeout,
		llms.ErrCodeProviderUnavailable,
		llms.ErrCodeUnknown:
		return ai.Transient
	case llms.ErrCodeCanceled:
		return ai.Canceled
	}
	// authentication, invalid request, quota, token limit, content filter,
	// missing model, not implemented
	return ai.Permanent
}

func statusCode(err error) (int, bool) {
	m := statusCodePattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, false
	}
	return code, true
}
