package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gusesba/renova-web/internal/export"
	"github.com/gusesba/renova-web/internal/format"
	"github.com/gusesba/renova-web/internal/grid"
	"github.com/gusesba/renova-web/internal/middleware"
	"github.com/gusesba/renova-web/internal/session"
	"github.com/gusesba/renova-web/internal/utils"
)

// gridData is what the "grid" template renders.
type gridData struct {
	Slug      string
	Title     string
	ID        string
	Base      string
	View      grid.View
	PageSizes []int

	QuickAddURL   string
	QuickAddValue string
}

func (h *WebHandler) controller(s *session.Session, def gridDef) (grid.Controller, error) {
	return s.Grids.GetOrCreate(def.Name, func() (grid.Controller, error) {
		return def.build(s, h.options, h.logger)
	})
}

// resolveGrid finds the grid named by the {slug} route parameter in the
// caller's session, creating it on first use.
func (h *WebHandler) resolveGrid(w http.ResponseWriter, r *http.Request) (gridDef, grid.Controller, bool) {
	def, ok := h.grids[chi.URLParam(r, "slug")]
	if !ok {
		http.NotFound(w, r)
		return gridDef{}, nil, false
	}
	c, err := h.controller(middleware.GetSession(r), def)
	if err != nil {
		h.logger.Error("creating grid", "grid", def.Name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return gridDef{}, nil, false
	}
	return def, c, true
}

func (h *WebHandler) gridData(ctx context.Context, def gridDef, c grid.Controller) gridData {
	ctx, cancel := context.WithTimeout(ctx, h.options.ViewTimeout)
	defer cancel()

	d := gridData{
		Slug:      def.Slug,
		Title:     def.Title,
		ID:        "grid-" + def.Slug,
		Base:      "/main/grids/" + def.Slug,
		View:      c.View(ctx),
		PageSizes: pageSizes,
	}
	if def.QuickAdd != "" {
		d.QuickAddURL = "/main/config/" + string(def.QuickAdd)
		v := d.View
		if !v.Loading && v.Err == nil && len(v.Rows) == 0 {
			for _, hc := range v.Headers {
				if hc.Key == "value" {
					d.QuickAddValue = hc.Filter
				}
			}
		}
	}
	return d
}

func (h *WebHandler) renderGrid(w http.ResponseWriter, r *http.Request, def gridDef, c grid.Controller) {
	data := h.gridData(r.Context(), def, c)
	if h.handleAPIError(w, r, data.View.Err) {
		return
	}
	if err := h.renderer.RenderPartial(w, "grid", data); err != nil {
		h.logger.Error("rendering grid", "grid", def.Name, "error", err)
	}
}

// gridMessage is the text shown to the user when a grid action is refused.
func gridMessage(err error) string {
	switch {
	case errors.Is(err, grid.ErrLastColumn):
		return "A tabela precisa de pelo menos uma coluna"
	case errors.Is(err, grid.ErrInvalidDate):
		return "Data inválida"
	case errors.Is(err, grid.ErrPageUnavailable):
		return "Página indisponível"
	case errors.Is(err, grid.ErrInvalidPageSize):
		return "Tamanho de página inválido"
	case errors.Is(err, grid.ErrFeatureDisabled):
		return "Ação indisponível nesta tabela"
	}
	return "Ação inválida"
}

// gridAction runs op against the grid of the request and answers with the
// re-rendered grid. A refused action is reported as a toast.
func (h *WebHandler) gridAction(op func(c grid.Controller, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def, c, ok := h.resolveGrid(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		if err := op(c, r); err != nil {
			h.logger.Debug("grid action refused", "grid", def.Name, "path", r.URL.Path, "error", err)
			utils.TriggerToast(w, gridMessage(err), "error")
		}
		h.renderGrid(w, r, def, c)
	}
}

func (h *WebHandler) HandleGridView(w http.ResponseWriter, r *http.Request) {
	def, c, ok := h.resolveGrid(w, r)
	if !ok {
		return
	}
	h.renderGrid(w, r, def, c)
}

func (h *WebHandler) HandleGridSort() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		return c.ToggleSort(r.FormValue("key"))
	})
}

func (h *WebHandler) HandleGridFilter() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		return c.InputFilter(r.FormValue("key"), r.FormValue("value"))
	})
}

func (h *WebHandler) HandleGridDateFilter() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		return c.SetDateFilter(r.FormValue("key"), grid.Bound(r.FormValue("bound")), r.FormValue("value"))
	})
}

func (h *WebHandler) HandleGridPage() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		switch r.FormValue("dir") {
		case "next":
			return c.NextPage()
		case "prev":
			return c.PrevPage()
		}
		return grid.ErrPageUnavailable
	})
}

func (h *WebHandler) HandleGridPageSize() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		n, err := strconv.Atoi(r.FormValue("size"))
		if err != nil {
			return grid.ErrInvalidPageSize
		}
		return c.SetPageSize(n)
	})
}

func (h *WebHandler) HandleGridMoveColumn() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		return c.MoveColumn(r.FormValue("active"), r.FormValue("over"))
	})
}

func (h *WebHandler) HandleGridRemoveColumn() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		return c.RemoveColumn(r.FormValue("key"))
	})
}

func (h *WebHandler) HandleGridAddColumn() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		return c.AddColumn(r.FormValue("key"))
	})
}

func (h *WebHandler) HandleGridSelect() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		return c.ToggleSelected(r.FormValue("id"))
	})
}

func (h *WebHandler) HandleGridSelectAll() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		return c.ToggleAllSelected()
	})
}

func (h *WebHandler) HandleGridExpand() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		return c.ToggleExpanded(r.FormValue("id"))
	})
}

func (h *WebHandler) HandleGridRefetch() http.HandlerFunc {
	return h.gridAction(func(c grid.Controller, r *http.Request) error {
		c.Refetch()
		return nil
	})
}

func (h *WebHandler) HandleGridDelete(w http.ResponseWriter, r *http.Request) {
	def, c, ok := h.resolveGrid(w, r)
	if !ok {
		return
	}

	report, err := c.DeleteSelectedItems(r.Context())
	var batch *grid.BatchError
	switch {
	case errors.As(err, &batch):
		if h.handleAPIError(w, r, batch.Failures[0].Err) {
			return
		}
		toasts := make([]utils.Toast, 0, len(batch.Failures)+1)
		for _, f := range batch.Failures {
			toasts = append(toasts, utils.Toast{
				Message: fmt.Sprintf("Erro ao excluir %s", format.ShortID(f.ID)),
				Type:    "error",
			})
		}
		if n := len(report.Deleted); n > 0 {
			toasts = append(toasts, utils.Toast{Message: deletedMessage(n), Type: "success"})
		}
		utils.TriggerToasts(w, toasts)
	case err != nil:
		h.logger.Error("deleting selected rows", "grid", def.Name, "error", err)
		utils.TriggerToast(w, "Erro ao excluir os itens", "error")
	case len(report.Deleted) > 0:
		utils.TriggerToast(w, deletedMessage(len(report.Deleted)), "success")
	}
	h.renderGrid(w, r, def, c)
}

func deletedMessage(n int) string {
	if n == 1 {
		return "1 item excluído"
	}
	return fmt.Sprintf("%d itens excluídos", n)
}

// HandleGridExport downloads every row matching the grid's current filters
// and sort as a spreadsheet.
func (h *WebHandler) HandleGridExport(w http.ResponseWriter, r *http.Request) {
	def, c, ok := h.resolveGrid(w, r)
	if !ok {
		return
	}

	table, err := c.Collect(r.Context())
	if err != nil {
		if h.handleAPIError(w, r, err) {
			return
		}
		h.logger.Error("collecting grid rows", "grid", def.Name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTable(&buf, table); err != nil {
		h.logger.Error("writing spreadsheet", "grid", def.Name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName(c.Resource(), h.now())))
	_, _ = buf.WriteTo(w)
}

// HandleTablePage renders the page of a single table.
func (h *WebHandler) HandleTablePage(slug string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		def, ok := h.grids[slug]
		if !ok {
			http.NotFound(w, r)
			return
		}
		s := middleware.GetSession(r)
		c, err := h.controller(s, def)
		if err != nil {
			h.logger.Error("creating grid", "grid", def.Name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		data := h.pageData(r, def.Title, def.Active)
		gd := h.gridData(r.Context(), def, c)
		if h.handleAPIError(w, r, gd.View.Err) {
			return
		}
		data["Grid"] = gd
		if err := h.addFormData(r.Context(), s, def, data); err != nil {
			if h.handleAPIError(w, r, err) {
				return
			}
			h.logger.Error("loading form options", "grid", def.Name, "error", err)
		}

		if err := h.renderer.Render(w, "grid_page.html", data); err != nil {
			h.logger.Error("rendering table page", "grid", def.Name, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}
