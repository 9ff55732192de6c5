package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/backer/pkg/apierrors"
)

// ParseJSON decodes the request body into dest. Unknown fields are rejected.
func ParseJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return apierrors.BadRequest("Invalid JSON body: %v", err)
	}
	return nil
}

// ParsePathUUID extracts and parses a UUID path parameter
func ParsePathUUID(r *http.Request, key string) (uuid.UUID, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return uuid.Nil, apierrors.BadRequest("missing path parameter: %s", key)
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, apierrors.BadRequest("invalid UUID for path parameter %s: %s", key, str)
	}
	return id, nil
}

// ParseQueryUUID parses an optional UUID query parameter
func ParseQueryUUID(r *http.Request, key string) (*uuid.UUID, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return nil, nil
	}
	id, err := uuid.Parse(str)
	if err != nil {
		return nil, apierrors.BadRequest("invalid UUID for query param %s: %s", key, str)
	}
	return &id, nil
}

// RequireQueryUUID parses a required UUID query parameter
func RequireQueryUUID(r *http.Request, key string) (uuid.UUID, error) {
	id, err := ParseQueryUUID(r, key)
	if err != nil {
		return uuid.Nil, err
	}
	if id == nil {
		return uuid.Nil, apierrors.BadRequest("%s is required", key)
	}
	return *id, nil
}

// ParseQueryInt extracts and parses an integer query parameter
func ParseQueryInt(r *http.Request, key string, defaultVal int) (int, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return 0, apierrors.BadRequest("invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryString extracts a string query parameter
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// RequireQueryString extracts a required string query parameter
func RequireQueryString(r *http.Request, key string) (string, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return "", apierrors.BadRequest("%s is required", key)
	}
	return val, nil
}

// ParseQueryBool extracts and parses a boolean query parameter
func ParseQueryBool(r *http.Request, key string, defaultVal bool) (bool, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseBool(str)
	if err != nil {
		return false, apierrors.BadRequest("invalid boolean for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseOptionalQueryBool parses a boolean query parameter that may be absent
func ParseOptionalQueryBool(r *http.Request, key string) (*bool, error) {
	if r.URL.Query().Get(key) == "" {
		return nil, nil
	}
	val, err := ParseQueryBool(r, key, false)
	if err != nil {
		return nil, err
	}
	return &val, nil
}
