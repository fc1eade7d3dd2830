package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go-storefront/internal/pkg/apperror"
	"go-storefront/internal/shared/idempotency"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	IdempotencyHeader     = "Idempotency-Key"
	ContextIdempotencyKey = "idempotency_key"
)

var ErrRequestInProgress = apperror.New(
	apperror.CodeOperationPending,
	"A request with this idempotency key is still running",
	http.StatusConflict,
)

type recordedResponse struct {
	Status   int    `json:"status"`
	Location string `json:"location,omitempty"`
	Body     []byte `json:"body"`
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the first successful response for a repeated
// Idempotency-Key and rejects a repeat while the first is still running.
// A missing header gets a fresh key so handlers can always forward one.
// Failed responses are not recorded, so the client may retry with the
// same key.
func Idempotency(store idempotency.Store, scope string, logger ...*zap.Logger) gin.HandlerFunc {
	l := zap.L().Named("idempotency")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("idempotency")
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			key = uuid.NewString()
		}
		userScope := scope + ":" + c.GetString(ContextUserID)

		if raw, ok, err := store.Recall(ctx, userScope, key); err != nil {
			l.Warn("idempotency recall failed", zap.Error(err))
		} else if ok {
			var rec recordedResponse
			if err := json.Unmarshal(raw, &rec); err == nil {
				c.Header("Idempotent-Replayed", "true")
				if rec.Location != "" {
					c.Header("Location", rec.Location)
				}
				c.Data(rec.Status, "application/json; charset=utf-8", rec.Body)
				c.Abort()
				return
			}
		}

		locked, err := store.TryLock(ctx, userScope, key)
		if err != nil {
			// store down: let the request through without replay protection
			l.Warn("idempotency lock failed", zap.Error(err))
		} else if !locked {
			abort(c, ErrRequestInProgress)
			return
		} else {
			defer func() {
				if err := store.Unlock(ctx, userScope, key); err != nil {
					l.Warn("idempotency unlock failed", zap.Error(err))
				}
			}()
		}

		c.Set(ContextIdempotencyKey, key)
		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		status := w.Status()
		if status < 200 || status >= 400 {
			return
		}
		raw, err := json.Marshal(recordedResponse{
			Status:   status,
			Location: w.Header().Get("Location"),
			Body:     w.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := store.Remember(ctx, userScope, key, raw); err != nil {
			l.Warn("idempotency remember failed", zap.Error(err))
		}
	}
}
