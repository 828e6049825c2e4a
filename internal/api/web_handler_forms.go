package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gusesba/renova-web/internal/format"
	"github.com/gusesba/renova-web/internal/middleware"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/session"
	"github.com/gusesba/renova-web/internal/store"
	"github.com/gusesba/renova-web/internal/utils"
)

// lookup is one config picker of the product form.
type lookup struct {
	Field string
	Label string
	Items []store.ConfigItem
}

var productLookups = []struct {
	field string
	kind  store.ConfigKind
}{
	{"typeId", store.ConfigType},
	{"brandId", store.ConfigBrand},
	{"sizeId", store.ConfigSize},
	{"colorId", store.ConfigColor},
}

// addFormData loads the pickers of the creation form shown above a table.
func (h *WebHandler) addFormData(ctx context.Context, s *session.Session, def gridDef, data map[string]any) error {
	if def.Slug != "products" {
		return nil
	}
	stores := s.Stores()
	clients, err := stores.Clients.ListClients(ctx)
	if err != nil {
		return err
	}
	data["Clients"] = clients

	lookups := make([]lookup, 0, len(productLookups))
	for _, l := range productLookups {
		items, err := stores.Config.ListConfigItems(ctx, l.kind)
		if err != nil {
			return err
		}
		lookups = append(lookups, lookup{Field: l.field, Label: l.kind.Label(), Items: items})
	}
	data["Lookups"] = lookups
	return nil
}

func (h *WebHandler) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s := middleware.GetSession(r)

	_, err := s.Stores().Clients.CreateClient(r.Context(), &store.NewClient{
		Name:  r.FormValue("name"),
		Phone: r.FormValue("phone"),
	})
	switch {
	case errors.Is(err, store.ErrClientNameRequired):
		utils.TriggerToast(w, "Informe o nome do cliente", "error")
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	case err != nil:
		if h.handleAPIError(w, r, err) {
			return
		}
		h.logger.Error("creating client", "error", err)
		utils.TriggerToast(w, "Erro ao adicionar cliente. Verifique os dados e tente novamente.", "error")
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	s.Grids.Refetch("clients")
	utils.TriggerToast(w, "Cliente adicionado", "success")
	h.renderSessionGrid(w, r, s, "clients")
}

// parsePrice accepts both "49.90" and "49,90".
func parsePrice(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
}

func (h *WebHandler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s := middleware.GetSession(r)

	price, err := parsePrice(r.FormValue("price"))
	if err != nil {
		utils.TriggerToast(w, "Preço inválido", "error")
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	}
	np := &store.NewProduct{
		Price:       price,
		TypeID:      r.FormValue("typeId"),
		BrandID:     r.FormValue("brandId"),
		SizeID:      r.FormValue("sizeId"),
		ColorID:     r.FormValue("colorId"),
		ProviderID:  r.FormValue("providerId"),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if v := r.FormValue("entryDate"); v != "" {
		d, err := time.ParseInLocation(time.DateOnly, v, format.Location)
		if err != nil {
			utils.TriggerToast(w, "Data de entrada inválida", "error")
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		np.EntryDate = d.UTC().Format(time.RFC3339)
	}

	err = s.Stores().Products.CreateProduct(r.Context(), np)
	switch {
	case errors.Is(err, store.ErrInvalidPrice):
		utils.TriggerToast(w, "O preço deve ser maior que zero", "error")
		w.WriteHeader(http.StatusUnprocessableEntity)
		return
	case err != nil:
		if h.handleAPIError(w, r, err) {
			return
		}
		h.logger.Error("creating product", "error", err)
		msg := remote.UserMessage(err)
		if msg == "" {
			msg = "Erro ao adicionar produto. Verifique os dados e tente novamente."
		}
		utils.TriggerToast(w, msg, "error")
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	s.Grids.RefetchPrefix("products")
	utils.TriggerToast(w, "Produto adicionado", "success")
	h.renderSessionGrid(w, r, s, "products")
}

// renderSessionGrid answers with the grid of the catalog entry slug.
func (h *WebHandler) renderSessionGrid(w http.ResponseWriter, r *http.Request, s *session.Session, slug string) {
	def := h.grids[slug]
	c, err := h.controller(s, def)
	if err != nil {
		h.logger.Error("creating grid", "grid", def.Name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	h.renderGrid(w, r, def, c)
}
