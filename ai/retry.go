// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
var ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

// Classification describes how a failed attempt should be treated.
type Classification int

const (
	// Transient failures may succeed on a later attempt.
	Transient Classification = iota
	// Permanent failures are surfaced immediately.
	Permanent
	// Canceled means the caller gave up; no further attempts are made.
	Canceled
)

func (c Classification) String() string {
	switch c {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	case Canceled:
		return "canceled"
	}
	return "unknown"
}

// Classifier maps an attempt's error to a Classification.
type Classifier func(err error) Classification

// RetryClassified retries an operation with exponential backoff, doubling
// baseDelay after each attempt, and consults classify after every failure. A Permanent or Canceled classification stops retrying at
// once. A nil classify treats every failure as Transient.
//
// It returns the number of attempts made and the last error. When ctx ends
// while waiting, the returned error matches ctx.Err() and wraps the last
// attempt's error.
func RetryClassified(ctx context.Context, operation func() error, classify Classifier, maxAttempts int, baseDelay time.Duration) (int, error) {
	if maxAttempts <= 0 {
		return 0, ErrInvalidMaxAttempts
	}
	if classify == nil {
		classify = func(error) Classification { return Transient }
	}

	var lastErr error
	attempt := 0
	for attempt < maxAttempts {
		// Check context before attempting
		if err := ctx.Err(); err != nil {
			return attempt, joinCtxErr(err, lastErr)
		}

		attempt++
		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return attempt, nil
		}

		class := classify(lastErr)
		if class != Transient {
			slog.Debug("operation failed, not retrying", "attempt", attempt, "class", class, "err", lastErr)
			return attempt, lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "err", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		// Calculate exponential backoff: baseDelay * 2^(attempt-1)
		delay := baseDelay
		for i := 1; i < attempt; i++ {
			delay *= 2
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, joinCtxErr(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	return attempt, lastErr
}

func joinCtxErr(ctxErr, lastErr error) error {
	if lastErr == nil {
		return ctxErr
	}
	return errors.Join(ctxErr, lastErr)
}
