package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/askdb/askdb/pkg/models"
	"github.com/sethvargo/go-retry"
)

// ExecuteWithRetry wraps Execute with exponential backoff: the delay doubles
// on every failed attempt, starting from retryDelay. Guard rejections are
// not retried. After exhausting maxRetries additional attempts it returns a
// terminal engine error summarizing the last failure.
func ExecuteWithRetry(
	ctx context.Context,
	e QueryEngine,
	sql string,
	params []any,
	timeout time.Duration,
	maxRetries uint64,
	retryDelay time.Duration,
) (*models.QueryResult, error) {
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	var result *models.QueryResult

	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryDelay))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, execErr := e.Execute(ctx, sql, params, timeout)
		if execErr != nil {
			if IsStatementBlocked(execErr) {
				return execErr
			}

			return retry.RetryableError(execErr)
		}

		result = r

		return nil
	})
	if err != nil {
		if IsStatementBlocked(err) {
			return nil, err
		}

		return nil, NewError("execute_with_retry", "query",
			fmt.Errorf("giving up after %d retries: %w", maxRetries, err))
	}

	return result, nil
}
