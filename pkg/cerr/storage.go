package cerr

import (
	"errors"
	"fmt"

	"github.com/kazz187/taskdesk/pkg/storage"
)

// wrapStorage classifies a storage failure on target. Missing documents
// become NotFound and rejected paths InvalidArgument; anything else is an
// Internal error whose cause is kept for the log only.
func wrapStorage(op, target string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	case errors.Is(err, storage.ErrInvalidPath):
		return NewError(InvalidArgument, fmt.Sprintf("invalid %s path", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to %s %s: %w", op, target, err))
}

func WrapStorageReadError(target string, err error) error {
	return wrapStorage("read", target, err)
}

// WrapStorageWriteError never reports NotFound; a write creates the document.
func WrapStorageWriteError(target string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewError(Internal, "server error", fmt.Errorf("failed to write %s: %w", target, err))
	}
	return wrapStorage("write", target, err)
}

func WrapStorageDeleteError(target string, err error) error {
	return wrapStorage("delete", target, err)
}
