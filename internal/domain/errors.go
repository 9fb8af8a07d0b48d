package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that map to an HTTP status code. Implementing
// it lets the handler layer translate new error types without editing a
// central switch.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors for the tree operation failure kinds, used with
// errors.Is(). Each is a local, synchronous failure of a single operation;
// none are retried internally and none leave the forest in an inconsistent
// state.
var (
	// ErrItemNotFound: the id does not resolve to an item (update, move).
	ErrItemNotFound = errors.New("item not found")
	// ErrParentNotFound: add's parentId does not resolve to any item.
	ErrParentNotFound = errors.New("parent not found")
	// ErrNotAFolder: add's parentId resolves to a non-folder item.
	ErrNotAFolder = errors.New("parent is not a folder")
	// ErrTargetNotFolder: move's newParentId does not resolve to an
	// existing folder.
	ErrTargetNotFolder = errors.New("move target is not a folder")
	// ErrCyclicMove: moving an item into itself or its own subtree.
	ErrCyclicMove = errors.New("cannot move an item into its own subtree")

	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Code returns the machine-readable error code carried in problem+json
// responses, so the remote client can map responses back to sentinels.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return "item_not_found"
	case errors.Is(err, ErrParentNotFound):
		return "parent_not_found"
	case errors.Is(err, ErrNotAFolder):
		return "not_a_folder"
	case errors.Is(err, ErrTargetNotFolder):
		return "target_not_folder"
	case errors.Is(err, ErrCyclicMove):
		return "cyclic_move"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	}
	return ""
}

// FromCode maps a problem+json error code back to its sentinel. Returns
// nil for unknown codes.
func FromCode(code string) error {
	switch code {
	case "item_not_found":
		return ErrItemNotFound
	case "parent_not_found":
		return ErrParentNotFound
	case "not_a_folder":
		return ErrNotAFolder
	case "target_not_folder":
		return ErrTargetNotFolder
	case "cyclic_move":
		return ErrCyclicMove
	case "validation":
		return ErrValidation
	case "unauthorized":
		return ErrUnauthorized
	}
	return nil
}

// StatusCode maps an error to its HTTP status. Errors implementing
// HTTPError take precedence over the sentinel mapping.
func StatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrParentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotAFolder), errors.Is(err, ErrTargetNotFolder), errors.Is(err, ErrCyclicMove):
		return http.StatusConflict
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// ValidationError carries a field-level validation message.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string   { return e.Message }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// Is allows errors.Is() to match against ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
