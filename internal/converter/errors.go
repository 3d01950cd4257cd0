package converter

import (
	"errors"
	"fmt"
)

var (
	// ErrConversionUnauthorized indicates the provider rejected the Company
	// token (401/403). The cached Location token, if any, is left untouched.
	ErrConversionUnauthorized = errors.New("converter: provider rejected company token")

	// ErrStaleCompanyToken indicates the installation's Company token is
	// already expired; the caller should wait for (or trigger) a refresh
	// before converting.
	ErrStaleCompanyToken = errors.New("converter: company token expired")
)

// ConversionError wraps a non-2xx conversion response that is neither a
// success nor an authorization failure.
type ConversionError struct {
	StatusCode int
	Body       string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converter: conversion failed with status %d: %s", e.StatusCode, e.Body)
}
