package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/response"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/gate"
	"github.com/ramonehamilton/mtg-binder/internal/catalog/scryfall"
	"github.com/ramonehamilton/mtg-binder/internal/importer"
	"github.com/ramonehamilton/mtg-binder/internal/storage"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// UserHeader carries the caller's user ID. Authentication happens upstream.
const UserHeader = "X-User-ID"

type ctxKey int

const userIDKey ctxKey = iota

// errBadRequest marks malformed input that never reached a service.
var errBadRequest = errors.New("bad request")

func badRequestf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// RequireUser rejects requests without a valid X-User-ID header.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := headerUserID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, fmt.Errorf("missing or invalid %s header", UserHeader))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// WithUserID stores the caller's user ID in ctx.
func WithUserID(ctx context.Context, id int) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the caller set by RequireUser, or 0.
func UserID(ctx context.Context) int {
	id, _ := ctx.Value(userIDKey).(int)
	return id
}

func headerUserID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.Header.Get(UserHeader))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pathInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, badRequestf("invalid %s %q", name, raw)
	}
	return v, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequestf("invalid request body: %v", err)
	}
	return nil
}

// writeError maps service errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var verr *repository.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Invalid(w, verr.Field, err)
	case errors.Is(err, errBadRequest),
		errors.Is(err, importer.ErrEmptyInput),
		errors.Is(err, importer.ErrUnknownKind):
		response.BadRequest(w, err)
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, importer.ErrJobNotFound),
		scryfall.IsNotFound(err):
		response.NotFound(w, err)
	case errors.Is(err, storage.ErrForbidden):
		response.Forbidden(w, err)
	case errors.Is(err, importer.ErrJobFinished):
		response.Conflict(w, err)
	case gate.IsTimeout(err):
		response.ServiceUnavailable(w, err)
	default:
		log.Printf("API error: %v", err)
		response.InternalError(w, err)
	}
}
