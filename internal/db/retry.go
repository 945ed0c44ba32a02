package db

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Operation is a function that performs a store write and reports failure.
type Operation func() error

const defaultMaxRetries = 3

// Try executes op, retrying duplicate-key failures up to the default retry
// budget. Used around inserts whose IDs are regenerated per attempt.
func Try(op Operation) error {
	return WithRetries(op, defaultMaxRetries)
}

// WithRetries executes op with incremental backoff between attempts. Only
// duplicate-key errors are retried; anything else returns immediately.
func WithRetries(op Operation, maxRetries int) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !IsDuplicateKeyError(err) {
			return err
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsDuplicateKeyError checks for MongoDB duplicate key errors (code 11000)
// in both single and bulk write failures.
func IsDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
