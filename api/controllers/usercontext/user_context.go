package usercontext

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/gigdesk-backend/api/middleware"
	pkgerrors "github.com/angelmondragon/gigdesk-backend/pkg/errors"
)

// ResolveUserID returns the authenticated subject.
func ResolveUserID(r *http.Request) (uuid.UUID, error) {
	id, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context required")
	}
	return id, nil
}

// ResolveActingUser returns the authenticated subject and rejects a body
// user_id that names somebody else. An empty claimed id is accepted.
func ResolveActingUser(r *http.Request, claimed string) (uuid.UUID, error) {
	userID, err := ResolveUserID(r)
	if err != nil {
		return uuid.Nil, err
	}
	claimed = strings.TrimSpace(claimed)
	if claimed == "" {
		return userID, nil
	}
	other, err := uuid.Parse(claimed)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "user_id must be a uuid").WithDetails(map[string]string{"user_id": "must be a valid uuid"})
	}
	if other != userID {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "user_id does not match the authenticated user")
	}
	return userID, nil
}
