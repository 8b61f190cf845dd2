package faceauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	biometric_types "faceguard.io/infrastructure/biometric/types"
)

// ValidationError reports an input the caller can fix before retrying.
type ValidationError struct {
	Reason string
}

func (validationErr *ValidationError) Error() string {
	return validationErr.Reason
}

// QualityError reports an image that passed validation but failed the
// quality gate. Issues carries the individual gate findings.
type QualityError struct {
	Issues []string
}

func (qualityErr *QualityError) Error() string {
	return fmt.Sprintf("image quality check failed: %s", strings.Join(qualityErr.Issues, "; "))
}

// LivenessFailureError reports a completed liveness check whose score fell
// below the configured threshold.
type LivenessFailureError struct {
	Score     float64
	Threshold float64
}

func (livenessErr *LivenessFailureError) Error() string {
	return fmt.Sprintf("liveness check failed with score %.2f below threshold %.2f", livenessErr.Score, livenessErr.Threshold)
}

type TemplateNotFoundError struct {
	TemplateID string
	UserID     string
}

func (notFoundErr *TemplateNotFoundError) Error() string {
	if notFoundErr.TemplateID != "" {
		return fmt.Sprintf("face template %s not found", notFoundErr.TemplateID)
	}
	return fmt.Sprintf("no face templates found for user %s", notFoundErr.UserID)
}

// StorageError wraps a datastore or object store failure.
type StorageError struct {
	Operation string
	Err       error
}

func (storageErr *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed: %v", storageErr.Operation, storageErr.Err)
}

func (storageErr *StorageError) Unwrap() error {
	return storageErr.Err
}

// IsRetryable reports whether an operation that produced err may be retried.
// Only transient provider failures and timeouts qualify; validation, quality
// and storage errors never do.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var providerErr *biometric_types.ProviderError
	if errors.As(err, &providerErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
