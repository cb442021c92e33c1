// Copyright 2026 The Handscan Project Contributors.
// SPDX-License-Identifier: Apache-2.0
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

package r200

import (
	"errors"
	"fmt"
	"io"
	"syscall"
)

// Error categories for error handling and retry logic
var (
	// Transport errors - potentially retryable
	ErrTransportTimeout = errors.New("transport timeout")
	ErrTransportWrite   = errors.New("transport write failed")
	ErrTransportRead    = errors.New("transport read failed")
	ErrTransportClosed  = errors.New("transport is closed")

	// Protocol errors
	ErrFrameMalformed   = errors.New("frame malformed")
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// Tag operation errors - surfaced from reader error frames
	ErrTagWriteFailed = errors.New("tag write failed")
	ErrNoTagInField   = errors.New("no tag in field")

	// Data errors - not retryable
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDataTooLarge     = errors.New("data too large")
)

// ErrorType represents the category of error for retry logic
type ErrorType int

const (
	// ErrorTypeTransient indicates a potentially retryable error
	ErrorTypeTransient ErrorType = iota
	// ErrorTypePermanent indicates a non-retryable error
	ErrorTypePermanent
	// ErrorTypeTimeout indicates a timeout error (special handling)
	ErrorTypeTimeout
)

// TransportError wraps transport-level errors with additional context
type TransportError struct {
	Err       error     // Underlying error
	Op        string    // Operation that failed
	Port      string    // Port or device identifier
	Type      ErrorType // Error category
	Retryable bool      // Whether the error is retryable
}

func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with consistent formatting
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a timeout error for transport operations
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTransportTimeout, ErrorTypeTimeout)
}

// ReaderError wraps an error frame reported by the R200 module.
// The reader answers a failed poll or write with a 0xFF frame carrying a
// status code; these are advisory, not exhaustive.
type ReaderError struct {
	Command string
	Code    byte
}

func (e *ReaderError) Error() string {
	return fmt.Sprintf("%s error 0x%02X (%s)", e.Command, e.Code, readerErrorCodeMeaning(e.Code))
}

// Known R200 status codes from the error frame payload.
const (
	// CodeTagUnreachable means the tag is out of range or gone.
	CodeTagUnreachable byte = 0x10
	// CodeNoTagInPoll means a single poll found nothing in the field.
	CodeNoTagInPoll byte = 0x15
	// CodeAccessDenied means the access password is wrong or the bank is locked.
	CodeAccessDenied byte = 0x16
)

// readerErrorCodeMeaning returns a human-readable meaning for R200 status codes
func readerErrorCodeMeaning(code byte) string {
	switch code {
	case CodeTagUnreachable:
		return "tag unreachable"
	case CodeNoTagInPoll:
		return "no tag detected during poll"
	case CodeAccessDenied:
		return "access denied, wrong or locked password"
	default:
		return "unknown error"
	}
}

// IsNoTag returns true if the error means no tag was in the field. A poll
// that finds nothing is an expected outcome, not a failure to retry.
func (e *ReaderError) IsNoTag() bool {
	return e.Code == CodeNoTagInPoll || e.Code == CodeTagUnreachable
}

// IsAccessDenied returns true if the reader rejected the access password.
func (e *ReaderError) IsAccessDenied() bool {
	return e.Code == CodeAccessDenied
}

// IsRetryable returns true if the error is potentially retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}

	var re *ReaderError
	if errors.As(err, &re) {
		// The tag may simply not be coupled yet; another attempt with the
		// tag closer to the antenna can succeed. A wrong password will
		// stay wrong.
		return !re.IsAccessDenied()
	}

	switch {
	case errors.Is(err, ErrTransportTimeout),
		errors.Is(err, ErrTransportRead),
		errors.Is(err, ErrTransportWrite),
		errors.Is(err, ErrChecksumMismatch):
		return true
	default:
		return false
	}
}

// IsFatal returns true if the error indicates the device/connection is gone
// and the calling task should stop entirely. This is distinct from
// IsRetryable which indicates whether a single operation can be retried.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var te *TransportError
	if errors.As(err, &te) {
		return te.Type == ErrorTypePermanent
	}

	if isDeviceGoneError(err) {
		return true
	}

	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}

// isDeviceGoneError checks for OS-level errors indicating device
// disconnection. These occur when a USB serial adapter is unplugged
// during I/O operations.
func isDeviceGoneError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		//nolint:exhaustive // Only checking specific device-gone errors, not all errno values
		switch errno {
		case syscall.EIO, syscall.ENXIO, syscall.ENODEV:
			return true
		}
	}
	return false
}
