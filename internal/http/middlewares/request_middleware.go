package middlewares

import (
	"log/slog"
	"time"

	"github.com/geocoder89/applyhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(requestIDHeader, id)
		ctx.Set(CtxRequestID, id)
		ctx.Request = ctx.Request.WithContext(observability.WithRequestID(ctx.Request.Context(), id))

		ctx.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		method := ctx.Request.Method

		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = ctx.Request.URL.Path // 404s have no template
		}

		attrs := []any{
			slog.String("method", method),
			slog.String("route", route),
			slog.Int("status", ctx.Writer.Status()),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		}

		if jobID, ok := ctx.Get(CtxJobID); ok {
			if s, ok := jobID.(string); ok && s != "" {
				attrs = append(attrs, slog.String("job_id", s))
			}
		}

		if p, ok := PrincipalFromContext(ctx); ok {
			attrs = append(attrs, slog.String("user_id", p.UserID))
		}

		level := slog.LevelInfo
		if ctx.Writer.Status() >= 500 {
			level = slog.LevelError
		}

		// request_id comes from the context via the trace handler
		log.Log(ctx.Request.Context(), level, "http_request", attrs...)
	}
}
