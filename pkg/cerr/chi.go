package cerr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type responseReceiverKey struct{}

type responseReceiver struct {
	response any
	status   int
	err      error
}

func contextWithResponseReceiver(ctx context.Context, err *responseReceiver) context.Context {
	return context.WithValue(ctx, responseReceiverKey{}, err)
}

func responseReceiverFromContext(ctx context.Context) *responseReceiver {
	if err, ok := ctx.Value(responseReceiverKey{}).(*responseReceiver); ok {
		return err
	}
	return nil
}

func SetJSONResponse(ctx context.Context, response any) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.response = response
	}
}

// SetJSONResponseWithStatus is SetJSONResponse with a non-200 success status (e.g. 201).
func SetJSONResponseWithStatus(ctx context.Context, status int, response any) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.response = response
		rr.status = status
	}
}

func SetJSONError(ctx context.Context, err error) {
	if rr := responseReceiverFromContext(ctx); rr != nil {
		rr.err = err
	}
}

func SetNewJSONError(ctx context.Context, code Code, msg string, err error) {
	SetJSONError(ctx, NewError(code, msg, err))
}

// NewConvertErrorChiMiddleware collects what handlers set with SetJSONResponse /
// SetJSONError and writes it once the handler returns. Handlers that write to the
// ResponseWriter themselves (streams, downloads) must not set either.
func NewConvertErrorChiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rr := &responseReceiver{}
			ctx := contextWithResponseReceiver(r.Context(), rr)
			next.ServeHTTP(rw, r.WithContext(ctx))
			if rr.response == nil && rr.err == nil {
				return
			}
			ExtractToHTTPResponse(ctx, rw, rr)
		})
	}
}

// maxJSONBody bounds request bodies decoded by DecodeJSONRequest.
const maxJSONBody = 1 << 20

// DecodeJSONRequest decodes the request body into v, reporting malformed input
// as InvalidArgument.
func DecodeJSONRequest(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return NewError(InvalidArgument, "invalid request body", fmt.Errorf("failed to decode request: %w", err))
	}
	return nil
}
