/*
 * Copyright © 2025 The dynormo Authors, All rights reserved.
 */

package ddb

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/MaxiMittel/dynormo/schema"
	"github.com/MaxiMittel/dynormo/storagemodels"
)

// Stream delivers every item matching q on a channel, page by page. The
// channel is closed when the results are exhausted, the context is canceled
// or a page fails and the error handler (if any) declines to continue.
// Pages are not retried unless storagemodels.WithMaxRetries is given.
func (e *Entity) Stream(ctx context.Context, q storagemodels.Query, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[schema.Item] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if q.Limit == 0 {
		q.Limit = options.PageSize
	}

	resultCh := make(chan storagemodels.StreamResult[schema.Item], max(options.BufferSize, 0))
	go e.streamWorker(ctx, q, options, resultCh)
	return resultCh
}

func (e *Entity) streamWorker(
	ctx context.Context,
	q storagemodels.Query,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[schema.Item],
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	var errs []error
	startTime := time.Now()

	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		progress := storagemodels.StreamProgress{
			ItemsProcessed: itemIndex,
			PagesProcessed: pageNumber,
			LastKey:        lastKey,
			Errors:         errs,
			StartTime:      startTime,
		}
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	send := func(r storagemodels.StreamResult[schema.Item]) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- r:
			return true
		}
	}

	for {
		if ctx.Err() != nil {
			return
		}

		items, lastKey, err := e.pageWithRetry(ctx, q, options)
		if err != nil {
			if options.ErrorHandler == nil || !options.ErrorHandler(err) {
				send(storagemodels.StreamResult[schema.Item]{
					Error: fmt.Errorf("stream page failed: %w", err),
					Meta: storagemodels.StreamMeta{
						Index:      itemIndex,
						PageNumber: pageNumber,
						Timestamp:  time.Now(),
					},
				})
				return
			}
			// Without a cursor past the failed page there is nothing left to read.
			errs = append(errs, err)
			reportProgress(q.StartKey)
			return
		}

		pageNumber++
		for _, item := range items {
			result := e.processItem(item, itemIndex, pageNumber)
			itemIndex++
			if result.Error != nil {
				errs = append(errs, result.Error)
			}
			if !send(result) {
				return
			}
		}

		reportProgress(lastKey)
		if lastKey == nil {
			return
		}
		q.StartKey = lastKey
	}
}

// pageWithRetry fetches one page, retrying transient errors up to MaxRetries times.
func (e *Entity) pageWithRetry(
	ctx context.Context,
	q storagemodels.Query,
	options storagemodels.StreamOptions,
) ([]map[string]types.AttributeValue, map[string]types.AttributeValue, error) {
	var lastErr error
	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		items, lastKey, err := e.page(ctx, q, opStream)
		if err == nil {
			return items, lastKey, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return nil, nil, err
		}

		if attempt < options.MaxRetries {
			backoff := time.Duration(attempt+1) * options.RetryBackoff
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	if options.MaxRetries == 0 {
		return nil, nil, lastErr
	}
	return nil, nil, fmt.Errorf("page failed after %d retries: %w", options.MaxRetries, lastErr)
}

func (e *Entity) processItem(item map[string]types.AttributeValue, index int64, pageNumber int) storagemodels.StreamResult[schema.Item] {
	meta := storagemodels.StreamMeta{
		Index:      index,
		PageNumber: pageNumber,
		Timestamp:  time.Now(),
	}
	decoded, err := decode(e.schema.Attributes, item)
	if err != nil {
		return storagemodels.StreamResult[schema.Item]{
			Error: err,
			Raw:   maps.Clone(item),
			Meta:  meta,
		}
	}
	return storagemodels.StreamResult[schema.Item]{
		Item: decoded,
		Raw:  maps.Clone(item),
		Meta: meta,
	}
}
