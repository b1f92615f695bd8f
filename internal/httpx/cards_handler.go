package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-warranty-cards/internal/auth"
	"github.com/ariefcatur/go-warranty-cards/internal/orders"
	"github.com/ariefcatur/go-warranty-cards/internal/pdf"
	"github.com/ariefcatur/go-warranty-cards/internal/render"
	"github.com/ariefcatur/go-warranty-cards/internal/warranty"
)

var pdfExports = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "warranty_pdf_exports_total",
	Help: "PDF export requests by outcome.",
}, []string{"outcome"})

type CardReader interface {
	Get(ctx context.Context, id int64) (*warranty.Card, error)
	ListByOrder(ctx context.Context, orderID string) ([]*warranty.Card, error)
	Enabled(ctx context.Context) bool
}

type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*orders.Order, error)
}

type CardsHandler struct {
	Cards    CardReader
	Orders   OrderReader // nil skips ownership checks
	Renderer *render.Renderer
	PDF      pdf.Renderer
	Log      *zap.Logger
}

const (
	msgInvalidCard = "Невалидна гаранционна карта."
	msgForbidden   = "Нямате право да сваляте тази гаранционна карта."
	msgNoRenderer  = "PDF renderer not found. Install Chrome or Chromium, or set CHROME_BIN, to enable PDF downloads."
)

var errForbidden = errors.New("forbidden")

func (h *CardsHandler) Register(r chi.Router) {
	r.Get("/", h.export)
	r.Get("/warranty-card/{id}", h.page)
	r.Get("/warranty-card/{id}/pdf", h.pdfByPath)
	r.Get("/account/orders/{id}/actions", h.accountActions)
}

func (h *CardsHandler) page(w http.ResponseWriter, r *http.Request) {
	card, ok := h.loadCard(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	frag, err := h.Renderer.Card(r.Context(), card, render.Interactive)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, err := h.Renderer.Page(card.Title, frag)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, page)
}

// export serves /?export=1&card_id=N, the link printed on every card.
func (h *CardsHandler) export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("export") != "1" || q.Get("card_id") == "" {
		h.message(w, r, http.StatusNotFound, "Not found", "Page not found.", "")
		return
	}
	h.servePDF(w, r, q.Get("card_id"))
}

func (h *CardsHandler) pdfByPath(w http.ResponseWriter, r *http.Request) {
	h.servePDF(w, r, chi.URLParam(r, "id"))
}

func (h *CardsHandler) servePDF(w http.ResponseWriter, r *http.Request, rawID string) {
	ctx := r.Context()
	card, ok := h.loadCard(w, r, rawID)
	if !ok {
		pdfExports.WithLabelValues("not_found").Inc()
		return
	}
	if err := h.authorize(ctx, card.OrderID); err != nil {
		if errors.Is(err, errForbidden) {
			pdfExports.WithLabelValues("forbidden").Inc()
			h.message(w, r, http.StatusForbidden, "Forbidden", msgForbidden, "")
			return
		}
		h.fail(w, r, err)
		return
	}

	frag, err := h.Renderer.Card(ctx, card, render.Export)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	doc, err := h.Renderer.Document(frag)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if h.PDF == nil || !h.PDF.Available() {
		h.unavailable(w, r, doc)
		return
	}
	out, err := h.PDF.Render(ctx, doc)
	if errors.Is(err, pdf.ErrUnavailable) {
		h.unavailable(w, r, doc)
		return
	}
	if err != nil {
		pdfExports.WithLabelValues("error").Inc()
		h.fail(w, r, err)
		return
	}

	pdfExports.WithLabelValues("ok").Inc()
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="warranty-%d.pdf"`, card.ID))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (h *CardsHandler) unavailable(w http.ResponseWriter, r *http.Request, doc string) {
	pdfExports.WithLabelValues("unavailable").Inc()
	h.message(w, r, http.StatusServiceUnavailable, "PDF unavailable", msgNoRenderer, doc)
}

type accountAction struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Name string `json:"name"`
}

// accountActions lists the "view warranty" links for a customer's order.
func (h *CardsHandler) accountActions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.Orders == nil {
		writeJSON(w, http.StatusOK, []accountAction{})
		return
	}
	o, err := h.Orders.GetOrder(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, orders.ErrOrderNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	if err != nil {
		h.Log.Error("load order", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if !owns(auth.FromContext(ctx), o) {
		writeError(w, http.StatusForbidden, "forbidden", "not your order")
		return
	}

	actions := []accountAction{}
	if !o.IsCompleted() || !h.Cards.Enabled(ctx) {
		writeJSON(w, http.StatusOK, actions)
		return
	}
	cards, err := h.Cards.ListByOrder(ctx, o.ID)
	if err != nil {
		h.Log.Error("list cards", zap.String("order_id", o.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	for _, c := range cards {
		title := c.ProductTitle
		if title == "" {
			title = "#"
		}
		actions = append(actions, accountAction{
			Key:  "warranty_" + strconv.FormatInt(c.ID, 10),
			URL:  h.Renderer.CardURL(c.ID),
			Name: "Warranty (" + title + ")",
		})
	}
	writeJSON(w, http.StatusOK, actions)
}

func (h *CardsHandler) loadCard(w http.ResponseWriter, r *http.Request, rawID string) (*warranty.Card, bool) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		h.message(w, r, http.StatusNotFound, "Not found", msgInvalidCard, "")
		return nil, false
	}
	card, err := h.Cards.Get(r.Context(), id)
	if errors.Is(err, warranty.ErrNotFound) || errors.Is(err, warranty.ErrWrongType) {
		h.message(w, r, http.StatusNotFound, "Not found", msgInvalidCard, "")
		return nil, false
	}
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return card, true
}

// authorize lets the owner of a customer order through. Guest orders and
// orders that no longer exist are not checked.
func (h *CardsHandler) authorize(ctx context.Context, orderID string) error {
	if h.Orders == nil {
		return nil
	}
	o, err := h.Orders.GetOrder(ctx, orderID)
	if errors.Is(err, orders.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !owns(auth.FromContext(ctx), o) {
		return errForbidden
	}
	return nil
}

func owns(id auth.Identity, o *orders.Order) bool {
	return o.UserID == "" || o.UserID == id.UserID
}

func (h *CardsHandler) message(w http.ResponseWriter, r *http.Request, status int, title, msg, body string) {
	page, err := h.Renderer.Message(title, msg, body)
	if err != nil {
		h.Log.Error("render message", zap.Error(err))
		http.Error(w, msg, status)
		return
	}
	writeHTML(w, status, page)
}

func (h *CardsHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	h.message(w, r, http.StatusInternalServerError, "Error", "Something went wrong.", "")
}
