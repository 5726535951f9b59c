package relations

import "github.com/vidhub/backend/internal/apperrors"

var (
	// ErrAlreadyExists is returned by Store.Insert when the edge is already present.
	ErrAlreadyExists = apperrors.New(apperrors.CodeConflict, "relationship already exists")
	// ErrNotFound is returned by Store.Remove when there is no edge to delete.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "relationship not found")
	// ErrSelfReferenceForbidden rejects a principal subscribing to its own channel.
	ErrSelfReferenceForbidden = apperrors.New(apperrors.CodeConflict, "cannot subscribe to your own channel")
)
