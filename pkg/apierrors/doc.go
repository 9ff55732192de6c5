// Package apierrors defines the request-terminal error taxonomy shared by the
// resolver, the search and aggregation services and the HTTP layer.
//
// # Overview
//
// Services return *Error values for conditions the client caused or must be
// told about. Anything else (driver errors, network failures) is returned
// wrapped with fmt.Errorf and surfaces as a 500 at the HTTP boundary.
//
//	if org == nil {
//		return nil, apierrors.NotFound("Organization not found")
//	}
//
// The HTTP layer maps kinds to status codes:
//
//	not_found    -> 404
//	bad_request  -> 400
//	forbidden    -> 403
//	unauthorized -> 401
//	unavailable  -> 503
package apierrors
