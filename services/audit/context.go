package audit

import (
	"context"

	"github.com/upb/patient-service/models"
)

type requestMetaKey struct{}

// WithRequestMeta returns a context carrying the originating request's metadata.
func WithRequestMeta(ctx context.Context, meta models.RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the request metadata stored in ctx, if any.
func RequestMetaFrom(ctx context.Context) models.RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(models.RequestMeta)
	return meta
}
