package cleaner

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/fenilsonani/storage-sweep/internal/security"
)

// ErrorReason categorizes why a file could not be moved
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileInUse
	ErrorFileNotFound
	ErrorIsDirectory
	ErrorInvalidPath
	ErrorTargetOccupied
	ErrorUnknown
)

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "Permission denied"
	case ErrorFileInUse:
		return "File is in use"
	case ErrorFileNotFound:
		return "File not found"
	case ErrorIsDirectory:
		return "Not a regular file"
	case ErrorInvalidPath:
		return "Invalid or protected path"
	case ErrorTargetOccupied:
		return "Original location is occupied"
	case ErrorUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// DeletionError is the per-file failure recorded in a batch result
type DeletionError struct {
	Path      string
	Reason    ErrorReason
	Original  error
	Retryable bool
}

// Error implements the error interface
func (e *DeletionError) Error() string {
	return fmt.Sprintf("%s: %s (%v)", e.Path, e.Reason, e.Original)
}

// Unwrap returns the underlying error
func (e *DeletionError) Unwrap() error {
	return e.Original
}

// UserMessage returns a user-friendly error message
func (e *DeletionError) UserMessage() string {
	switch e.Reason {
	case ErrorPermissionDenied:
		return fmt.Sprintf("Permission denied: %s", e.Path)
	case ErrorFileInUse:
		return fmt.Sprintf("File is being used: %s (close the application and try again)", e.Path)
	case ErrorFileNotFound:
		return fmt.Sprintf("Already gone: %s", e.Path)
	case ErrorIsDirectory:
		return fmt.Sprintf("Not a regular file: %s", e.Path)
	case ErrorInvalidPath:
		return fmt.Sprintf("Invalid or protected path: %s", e.Path)
	case ErrorTargetOccupied:
		return fmt.Sprintf("Not restored, something else now lives at %s", e.Path)
	default:
		return fmt.Sprintf("Error moving %s: %v", e.Path, e.Original)
	}
}

// CategorizeError analyzes an error and returns a categorized DeletionError
func CategorizeError(path string, err error) *DeletionError {
	if err == nil {
		return nil
	}

	delErr := &DeletionError{
		Path:     path,
		Original: err,
		Reason:   ErrorUnknown,
	}

	if errors.Is(err, security.ErrProtectedPath) {
		delErr.Reason = ErrorInvalidPath
		return delErr
	}

	if errors.Is(err, errNotRegular) {
		delErr.Reason = ErrorIsDirectory
		return delErr
	}

	if os.IsNotExist(err) || errors.Is(err, os.ErrNotExist) {
		delErr.Reason = ErrorFileNotFound
		return delErr
	}

	if os.IsPermission(err) || errors.Is(err, os.ErrPermission) {
		delErr.Reason = ErrorPermissionDenied
		return delErr
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EACCES, syscall.EPERM:
			delErr.Reason = ErrorPermissionDenied
		case syscall.EBUSY, syscall.ETXTBSY:
			delErr.Reason = ErrorFileInUse
			delErr.Retryable = true
		case syscall.ENOENT:
			delErr.Reason = ErrorFileNotFound
		case syscall.EISDIR:
			delErr.Reason = ErrorIsDirectory
		case syscall.EEXIST:
			delErr.Reason = ErrorTargetOccupied
		}
		return delErr
	}

	if errors.Is(err, os.ErrExist) {
		delErr.Reason = ErrorTargetOccupied
	}
	return delErr
}

// GroupErrors groups deletion errors by reason
func GroupErrors(errs []*DeletionError) map[ErrorReason][]*DeletionError {
	grouped := make(map[ErrorReason][]*DeletionError)
	for _, err := range errs {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

// FormatErrorSummary creates a user-friendly summary of errors
func FormatErrorSummary(errs []*DeletionError) string {
	if len(errs) == 0 {
		return ""
	}

	grouped := GroupErrors(errs)
	var b strings.Builder
	b.WriteString("Issues encountered:\n")

	for _, reason := range []ErrorReason{
		ErrorPermissionDenied,
		ErrorFileInUse,
		ErrorFileNotFound,
		ErrorIsDirectory,
		ErrorInvalidPath,
		ErrorTargetOccupied,
		ErrorUnknown,
	} {
		if group, ok := grouped[reason]; ok {
			fmt.Fprintf(&b, "  - %s: %d files\n", reason, len(group))
		}
	}

	return b.String()
}
