/*
auth.go - Caller identity for HTTP requests

PURPOSE:
  The engine treats "prove control of principal P" as an opaque capability.
  Over HTTP this is satisfied by the X-Caller header: middleware stores the
  header value in the request context and HeaderAuthorizer compares it to
  the principal an operation requires.

SECURITY NOTE:
  A header is identification, not authentication. This is the development
  stand-in for a real identity system (mTLS, signed tokens); the engine
  only sees the Authorizer interface either way.
*/
package api

import (
	"context"
	"net/http"

	"github.com/warp/stream-engine/stream"
)

// CallerHeader carries the acting principal on every mutating request.
const CallerHeader = "X-Caller"

type callerKey struct{}

// WithCaller returns a context carrying the acting principal.
func WithCaller(ctx context.Context, caller stream.AccountID) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// CallerFrom extracts the acting principal, if any.
func CallerFrom(ctx context.Context) (stream.AccountID, bool) {
	caller, ok := ctx.Value(callerKey{}).(stream.AccountID)
	return caller, ok && caller != ""
}

// CallerMiddleware copies the X-Caller header into the request context.
func CallerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if caller := r.Header.Get(CallerHeader); caller != "" {
			r = r.WithContext(WithCaller(r.Context(), stream.AccountID(caller)))
		}
		next.ServeHTTP(w, r)
	})
}

// HeaderAuthorizer implements stream.Authorizer against the context caller.
type HeaderAuthorizer struct{}

func (HeaderAuthorizer) Require(ctx context.Context, principal stream.AccountID) error {
	caller, ok := CallerFrom(ctx)
	if !ok || caller != principal {
		return stream.ErrUnauthorized
	}
	return nil
}
