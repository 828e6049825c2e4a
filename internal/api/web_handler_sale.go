package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gusesba/renova-web/internal/export"
	"github.com/gusesba/renova-web/internal/format"
	"github.com/gusesba/renova-web/internal/grid"
	"github.com/gusesba/renova-web/internal/middleware"
	"github.com/gusesba/renova-web/internal/remote"
	"github.com/gusesba/renova-web/internal/services"
	"github.com/gusesba/renova-web/internal/session"
	"github.com/gusesba/renova-web/internal/store"
	"github.com/gusesba/renova-web/internal/utils"
)

// cartData is what the "cart" template renders.
type cartData struct {
	Error    string
	LastSell *store.Sell

	Headers       []string
	Rows          []grid.DataRow
	Total         float64
	Final         float64
	DiscountInput string

	Clients  []store.Client
	ClientID string
	Types    []store.SellType
	Type     store.SellType
}

func (h *WebHandler) saleService(s *session.Session) *services.SaleService {
	stores := s.Stores()
	return services.NewSaleService(stores.Products, stores.Sells, h.logger.With("session_id", s.ID))
}

// cartView builds the cart fragment. The client and type pickers keep what
// the form sent.
func (h *WebHandler) cartView(r *http.Request, s *session.Session) (cartData, error) {
	cart := s.Cart
	d := cartData{
		Total:    cart.Total(),
		Final:    cart.Final(),
		Types:    store.SellTypes,
		ClientID: r.FormValue("client_id"),
		Type:     store.SellType(r.FormValue("type")),
	}
	if !d.Type.Valid() {
		d.Type = store.SellTypeSell
	}
	if disc := cart.Discount(); disc > 0 {
		d.DiscountInput = strconv.FormatFloat(disc, 'f', 2, 64)
	}

	for _, key := range store.SaleProductColumns {
		d.Headers = append(d.Headers, store.ProductLabels[key])
	}
	for _, p := range cart.Items() {
		row := grid.DataRow{ID: p.ID}
		for _, key := range store.SaleProductColumns {
			row.Cells = append(row.Cells, grid.DataCell{Key: key, Value: format.Cell(key, store.ProductAccessors[key](p))})
		}
		d.Rows = append(d.Rows, row)
	}

	clients, err := s.Stores().Clients.ListClients(r.Context())
	if err != nil {
		return d, err
	}
	d.Clients = clients
	return d, nil
}

func (h *WebHandler) renderCart(w http.ResponseWriter, r *http.Request, s *session.Session, errMsg string, last *store.Sell) {
	d, err := h.cartView(r, s)
	if err != nil {
		if h.handleAPIError(w, r, err) {
			return
		}
		h.logger.Error("listing clients", "error", err)
		if errMsg == "" {
			errMsg = "Erro ao carregar os clientes"
		}
	}
	d.Error = errMsg
	d.LastSell = last
	if err := h.renderer.RenderPartial(w, "cart", d); err != nil {
		h.logger.Error("rendering cart", "error", err)
	}
}

func (h *WebHandler) HandleSalePage(w http.ResponseWriter, r *http.Request) {
	s := middleware.GetSession(r)
	d, err := h.cartView(r, s)
	if err != nil {
		if h.handleAPIError(w, r, err) {
			return
		}
		h.logger.Error("listing clients", "error", err)
		d.Error = "Erro ao carregar os clientes"
	}

	data := h.pageData(r, "Nova venda", "venda")
	data["Cart"] = d
	if err := h.renderer.Render(w, "sale.html", data); err != nil {
		h.logger.Error("rendering sale page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func addProductMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrEmptyProductID):
		return "Informe o código do produto"
	case errors.Is(err, services.ErrDuplicateProduct):
		return "Produto já adicionado"
	}
	if msg := remote.UserMessage(err); msg != "" {
		return msg
	}
	return "Erro ao buscar produto"
}

func (h *WebHandler) HandleAddSaleItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s := middleware.GetSession(r)

	var msg string
	if _, err := h.saleService(s).AddProduct(r.Context(), s.Cart, r.FormValue("product_id")); err != nil {
		if h.handleAPIError(w, r, err) {
			return
		}
		h.logger.Debug("product not added", "product_id", r.FormValue("product_id"), "error", err)
		msg = addProductMessage(err)
	}
	h.renderCart(w, r, s, msg, nil)
}

func (h *WebHandler) HandleRemoveSaleItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s := middleware.GetSession(r)
	s.Cart.Remove(chi.URLParam(r, "id"))
	h.renderCart(w, r, s, "", nil)
}

func (h *WebHandler) HandleSaleDiscount(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s := middleware.GetSession(r)

	var msg string
	raw := r.FormValue("discount")
	discount := 0.0
	if raw != "" {
		var err error
		if discount, err = parsePrice(raw); err != nil {
			msg = "Desconto inválido"
		}
	}
	if msg == "" {
		if err := s.Cart.SetDiscount(discount); err != nil {
			msg = "Desconto inválido"
		}
	}
	h.renderCart(w, r, s, msg, nil)
}

func checkoutMessage(err error) string {
	var owner *services.OwnershipError
	switch {
	case errors.As(err, &owner):
		return fmt.Sprintf("Peça %s não pertence ao cliente selecionado", owner.ProductID)
	case errors.Is(err, services.ErrEmptyCart), errors.Is(err, services.ErrClientRequired):
		return "É necessário adicionar produtos e um cliente"
	case errors.Is(err, services.ErrInvalidSellType):
		return "Tipo de venda inválido"
	}
	if msg := remote.UserMessage(err); msg != "" {
		return msg
	}
	return "Erro ao finalizar venda"
}

func (h *WebHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	s := middleware.GetSession(r)

	items := s.Cart.Items()
	total, discount := s.Cart.Total(), s.Cart.Discount()
	req := services.CheckoutRequest{
		ClientID: r.FormValue("client_id"),
		Type:     store.SellType(r.FormValue("type")),
	}

	sell, err := h.saleService(s).Checkout(r.Context(), s.Cart, req)
	if err != nil {
		if h.handleAPIError(w, r, err) {
			return
		}
		h.logger.Warn("checkout refused", "error", err)
		h.renderCart(w, r, s, checkoutMessage(err), nil)
		return
	}

	if sell.Type == "" {
		sell.Type = req.Type
	}
	if sell.Type == "" {
		sell.Type = store.SellTypeSell
	}
	s.SetReceipt(&export.Receipt{
		Sell:       *sell,
		ClientName: h.clientName(r, s, sell, req.ClientID),
		Items:      items,
		Total:      total,
		Discount:   discount,
		Date:       h.now(),
	})
	s.Grids.RefetchPrefix("sells")
	s.Grids.RefetchPrefix("products")

	utils.TriggerToast(w, "Venda finalizada com sucesso!", "success")
	h.renderCart(w, r, s, "", sell)
}

func (h *WebHandler) clientName(r *http.Request, s *session.Session, sell *store.Sell, clientID string) string {
	if sell.ClientName != "" {
		return sell.ClientName
	}
	clients, err := s.Stores().Clients.ListClients(r.Context())
	if err != nil {
		h.logger.Warn("looking up receipt client", "error", err)
		return ""
	}
	for _, c := range clients {
		if c.ID == clientID {
			return c.Name
		}
	}
	return ""
}

// HandleReceipt downloads the receipt of the last checkout of the session.
func (h *WebHandler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	receipt := middleware.GetSession(r).Receipt()
	if receipt == nil {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReceipt(&buf, receipt); err != nil {
		h.logger.Error("writing receipt", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName("venda-"+format.ShortID(receipt.Sell.ID), receipt.Date)))
	_, _ = buf.WriteTo(w)
}
