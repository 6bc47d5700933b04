package router

import (
	"context"

	"github.com/serezk4/collectiond/internal/model"
	"github.com/serezk4/collectiond/internal/wire/payload"
)

// RoutePayload decodes a raw payload into a Request, routes it, and
// re-encodes the Response. A payload that fails the C2 schema check never
// reaches Route — it is converted directly into a uniform "malformed
// request" response; the connection stays open.
func (r *Router) RoutePayload(ctx context.Context, raw []byte) []byte {
	req, err := payload.DecodeRequest(raw)
	if err != nil {
		r.log.Warn(ctx, "malformed request payload", "error", err)
		return payload.EncodeResponse(model.Response{Message: "malformed request"})
	}

	resp := r.Route(ctx, req)
	return payload.EncodeResponse(resp)
}
