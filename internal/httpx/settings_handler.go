package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-warranty-cards/internal/auth"
	"github.com/ariefcatur/go-warranty-cards/internal/render"
	"github.com/ariefcatur/go-warranty-cards/internal/settings"
)

type SettingsService interface {
	Values(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value, updatedBy string) error
	Save(ctx context.Context, form map[string]string, updatedBy string) error
}

type SettingsHandler struct {
	Settings  SettingsService
	Renderer  *render.Renderer
	AdminRole string
	Log       *zap.Logger
}

func (h *SettingsHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(h.AdminRole))
		r.Get("/admin/warranty-cards", h.form)
		r.Post("/admin/warranty-cards", h.save)
		r.Get("/api/v1/settings", h.list)
		r.Put("/api/v1/settings", h.update)
	})
}

func (h *SettingsHandler) form(w http.ResponseWriter, r *http.Request) {
	vals, err := h.Settings.Values(r.Context())
	if err != nil {
		h.Log.Error("load settings", zap.Error(err))
		writeHTML(w, http.StatusInternalServerError, "Could not load settings.")
		return
	}
	page, err := h.Renderer.SettingsForm(settings.Fields, vals, r.URL.Query().Get("saved") == "1")
	if err != nil {
		h.Log.Error("render settings", zap.Error(err))
		writeHTML(w, http.StatusInternalServerError, "Could not render settings.")
		return
	}
	writeHTML(w, http.StatusOK, page)
}

// save takes a full form post. Only known fields are read; an unchecked
// toggle is absent from the post and is stored as off.
func (h *SettingsHandler) save(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeHTML(w, http.StatusBadRequest, "Invalid form.")
		return
	}
	form := make(map[string]string, len(settings.Fields))
	for _, f := range settings.Fields {
		if _, ok := r.PostForm[f.Key]; ok {
			form[f.Key] = r.PostForm.Get(f.Key)
		}
	}
	if err := h.Settings.Save(r.Context(), form, auth.FromContext(r.Context()).UserID); err != nil {
		h.Log.Error("save settings", zap.Error(err))
		writeHTML(w, http.StatusInternalServerError, "Could not save settings.")
		return
	}
	http.Redirect(w, r, "/admin/warranty-cards?saved=1", http.StatusSeeOther)
}

func (h *SettingsHandler) list(w http.ResponseWriter, r *http.Request) {
	vals, err := h.Settings.Values(r.Context())
	if err != nil {
		h.Log.Error("load settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, vals)
}

// update applies a partial JSON update; unknown keys reject the whole body.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	for k := range req {
		if !settings.Known(k) {
			writeError(w, http.StatusBadRequest, "unknown_setting", "unknown setting: "+k)
			return
		}
	}
	who := auth.FromContext(r.Context()).UserID
	for k, v := range req {
		if err := h.Settings.Set(r.Context(), k, v, who); err != nil {
			if errors.Is(err, settings.ErrUnknownKey) {
				writeError(w, http.StatusBadRequest, "unknown_setting", err.Error())
				return
			}
			h.Log.Error("set setting", zap.String("key", k), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}
	}
	h.list(w, r)
}
