package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-warranty-cards/internal/redisx"
	"github.com/ariefcatur/go-warranty-cards/internal/warranty"
)

type Issuer interface {
	IssueForOrder(ctx context.Context, orderID string) (warranty.Result, error)
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// HooksHandler is the synchronous completion trigger for platforms that
// call out over HTTP instead of Kafka.
type HooksHandler struct {
	Issuer Issuer
	Idem   IdempotencyStore // optional
	Token  string           // empty disables the check
	Log    *zap.Logger
}

type orderCompletedReq struct {
	OrderID string `json:"order_id"`
}

func (h *HooksHandler) Register(r chi.Router) {
	r.Post("/hooks/order-completed", h.orderCompleted)
}

func (h *HooksHandler) orderCompleted(w http.ResponseWriter, r *http.Request) {
	if h.Token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Hook-Token")), []byte(h.Token)) != 1 {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid hook token")
		return
	}
	var req orderCompletedReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "missing_fields", "order_id is required")
		return
	}

	ctx := r.Context()
	var idemKey string
	if k := r.Header.Get("Idempotency-Key"); k != "" && h.Idem != nil {
		idemKey = redisx.HookKey(k)
		if prev, ok, err := h.Idem.Get(ctx, idemKey); err != nil {
			h.Log.Warn("idempotency lookup", zap.Error(err))
		} else if ok {
			w.Header().Set("Idempotent-Replayed", "true")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(prev))
			return
		}
	}

	res, err := h.Issuer.IssueForOrder(ctx, req.OrderID)
	if err != nil {
		h.Log.Error("issue cards", zap.String("order_id", req.OrderID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "could not issue warranty cards")
		return
	}
	if res.Created == nil {
		res.Created = []int64{}
	}
	body, err := json.Marshal(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	if idemKey != "" {
		if err := h.Idem.Set(ctx, idemKey, string(body), redisx.TTLIdempotency); err != nil {
			h.Log.Warn("idempotency store", zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
