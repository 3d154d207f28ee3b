package errors

import (
	"errors"
	"fmt"
)

var (
	ErrMissingImage    = errors.New("missing image")
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrDecodeFailure   = errors.New("image decode failure")
	ErrInvalidDataset  = errors.New("invalid dataset")
	ErrNoAnnotations   = errors.New("dataset has no annotations")
	ErrSinkUnavailable = errors.New("result sink unavailable")
)

// Process exit codes. Every failure is non-zero; the distinct values only
// help scripts tell failure kinds apart.
const (
	ExitOK        = 0
	ExitInternal  = 1
	ExitUsage     = 2
	ExitDataset   = 3
	ExitMissing   = 4
	ExitGeometry  = 5
	ExitDecode    = 6
	ExitSink      = 7
	ExitNoSamples = 8
)

type AppError struct {
	Err      error
	Message  string
	ExitCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  message,
		ExitCode: exitCodeFor(sentinel),
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:      sentinel,
		Message:  fmt.Sprintf(format, args...),
		ExitCode: exitCodeFor(sentinel),
	}
}

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}
	return exitCodeFor(err)
}

// Kind returns a short label for err, used as a metric label.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMissingImage):
		return "missing_image"
	case errors.Is(err, ErrInvalidGeometry):
		return "invalid_geometry"
	case errors.Is(err, ErrDecodeFailure):
		return "decode_failure"
	case errors.Is(err, ErrInvalidDataset):
		return "invalid_dataset"
	case errors.Is(err, ErrSinkUnavailable):
		return "sink_unavailable"
	default:
		return "internal"
	}
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidDataset):
		return ExitDataset
	case errors.Is(err, ErrMissingImage):
		return ExitMissing
	case errors.Is(err, ErrInvalidGeometry):
		return ExitGeometry
	case errors.Is(err, ErrDecodeFailure):
		return ExitDecode
	case errors.Is(err, ErrSinkUnavailable):
		return ExitSink
	case errors.Is(err, ErrNoAnnotations):
		return ExitNoSamples
	default:
		return ExitInternal
	}
}
