package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gusesba/renova-web/internal/middleware"
	"github.com/gusesba/renova-web/internal/store"
	"github.com/gusesba/renova-web/internal/utils"
)

func configSlug(kind store.ConfigKind) string { return "config-" + string(kind) }

func (h *WebHandler) HandleConfigPage(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r)

	grids := make([]gridData, 0, len(store.ConfigKinds))
	for _, kind := range store.ConfigKinds {
		def := h.grids[configSlug(kind)]
		c, err := h.controller(s, def)
		if err != nil {
			h.logger.Error("creating grid", "grid", def.Name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		gd := h.gridData(r.Context(), def, c)
		if h.handleAPIError(w, r, gd.View.Err) {
			return
		}
		grids = append(grids, gd)
	}

	data := h.pageData(r, "Configurações", "config")
	data["Grids"] = grids
	if err := h.renderer.Render(w, "config.html", data); err != nil {
		h.logger.Error("rendering config page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleCreateConfigItem adds the value searched in an empty config table
// and reloads that table.
func (h *WebHandler) HandleCreateConfigItem(w http.ResponseWriter, r *http.Request) {
	kind := store.ConfigKind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s := middleware.GetSession(r)

	item, err := s.Stores().Config.CreateConfigItem(r.Context(), kind, r.FormValue("value"))
	switch {
	case errors.Is(err, store.ErrEmptyConfigValue):
		utils.TriggerToast(w, "Informe um valor", "error")
	case err != nil:
		if h.handleAPIError(w, r, err) {
			return
		}
		h.logger.Error("creating config item", "kind", kind, "error", err)
		utils.TriggerToast(w, "Erro ao adicionar "+kind.Label(), "error")
	default:
		h.logger.Info("config item created", "kind", kind, "value", item.Value)
		s.Grids.Refetch(kind.Path())
		utils.TriggerToast(w, kind.Label()+" adicionado(a)", "success")
	}
	h.renderSessionGrid(w, r, s, configSlug(kind))
}
