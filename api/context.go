package api

import (
	"context"
	"net"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/authgate"
)

func requestContext(r *http.Request) context.Context {
	ctx := r.Context()
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ctx = authgate.WithClientIP(ctx, host)
	}
	if id := chimw.GetReqID(ctx); id != "" {
		ctx = authgate.WithRequestID(ctx, id)
	}
	return ctx
}
