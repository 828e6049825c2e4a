package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gusesba/renova-web/internal/app"
	"github.com/gusesba/renova-web/internal/config"
	"github.com/gusesba/renova-web/internal/export"
	"github.com/gusesba/renova-web/internal/routes"
	"github.com/gusesba/renova-web/internal/store"
	"github.com/gusesba/renova-web/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
	Auth   string
}

// fakeAPI stands in for the shop's REST API.
type fakeAPI struct {
	token string

	mu           sync.Mutex
	calls        []apiCall
	unauthorized bool
	failDelete   map[string]bool
	config       map[string][]store.ConfigItem
}

var (
	testClients = []store.Client{
		{ID: "c1", Name: "Ana", Phone: "41 9999"},
		{ID: "c2", Name: "Bia"},
	}
	testProducts = map[string]store.Product{
		"p1": {ID: "p1", Price: 30, Type: "Camisa", Brand: "Hering", ProviderID: "c2"},
		"p2": {ID: "p2", Price: 20, Type: "Saia", ProviderID: "c1"},
	}
)

func newFakeAPI(token string) *fakeAPI {
	return &fakeAPI{
		token:      token,
		failDelete: map[string]bool{},
		config: map[string][]store.ConfigItem{
			"color": {{ID: "k1", Value: "Verde"}},
			"size":  {{ID: "k2", Value: "M"}},
			"brand": {{ID: "k3", Value: "Hering"}},
			"type":  {{ID: "k4", Value: "Camisa"}},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Body:   string(body),
		Auth:   r.Header.Get("Authorization"),
	})
	unauthorized := f.unauthorized
	f.mu.Unlock()

	path := r.URL.Path
	if unauthorized && path != "/auth/login" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		return
	}

	switch {
	case r.Method == http.MethodPost && path == "/auth/login":
		var creds store.Credentials
		_ = json.Unmarshal(body, &creds)
		if creds.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": f.token})

	case r.Method == http.MethodGet && path == "/clients":
		var items []store.Client
		for _, c := range testClients {
			if q := r.URL.Query().Get("name"); q == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(q)) {
				items = append(items, c)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "totalPages": 1})

	case r.Method == http.MethodPost && path == "/clients":
		writeJSON(w, http.StatusCreated, store.Client{ID: "c3", Name: "Caio"})

	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/clients/"):
		id := strings.TrimPrefix(path, "/clients/")
		f.mu.Lock()
		fail := f.failDelete[id]
		f.mu.Unlock()
		if fail {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "cliente possui vendas"})
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case r.Method == http.MethodGet && (path == "/products" || path == "/products/sold"):
		writeJSON(w, http.StatusOK, map[string]any{"items": []store.Product{testProducts["p1"], testProducts["p2"]}, "totalPages": 1})

	case r.Method == http.MethodPost && path == "/products":
		w.WriteHeader(http.StatusCreated)

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/products/sell/"):
		p, ok := testProducts[strings.TrimPrefix(path, "/products/sell/")]
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "Produto indisponível para venda"})
			return
		}
		writeJSON(w, http.StatusOK, p)

	case r.Method == http.MethodPost && path == "/sells":
		var ns store.NewSell
		_ = json.Unmarshal(body, &ns)
		writeJSON(w, http.StatusCreated, store.Sell{ID: "9d1c2b3a-0000", Type: ns.Type, TotalProducts: len(ns.ProductIDs)})

	case r.Method == http.MethodGet && path == "/sells":
		writeJSON(w, http.StatusOK, map[string]any{
			"items":      []store.Sell{{ID: "s1", Type: store.SellTypeSell, ClientName: "Ana", TotalProducts: 1, Date: "2024-05-01"}},
			"totalPages": 1,
		})

	case r.Method == http.MethodGet && strings.HasPrefix(path, "/sells/"):
		writeJSON(w, http.StatusOK, store.Sell{ID: "s1", Products: []store.Product{testProducts["p1"]}})

	case strings.HasPrefix(path, "/config/"):
		kind := strings.TrimPrefix(path, "/config/")
		f.mu.Lock()
		defer f.mu.Unlock()
		if r.Method == http.MethodPost {
			var item store.ConfigItem
			_ = json.Unmarshal(body, &item)
			item.ID = "new"
			f.config[kind] = append(f.config[kind], item)
			writeJSON(w, http.StatusCreated, item)
			return
		}
		var items []store.ConfigItem
		for _, it := range f.config[kind] {
			if q := r.URL.Query().Get("value"); q == "" || strings.Contains(it.Value, q) {
				items = append(items, it)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "totalPages": 1})

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) find(match func(apiCall) bool) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) setUnauthorized(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unauthorized = v
}

func makeToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

type response struct {
	Code   int
	Header http.Header
	Body   string
}

type browser struct {
	t      *testing.T
	base   *url.URL
	client *http.Client
}

func setupServer(t *testing.T, api *fakeAPI) *browser {
	t.Helper()
	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)

	cfg := config.Default()
	cfg.APIBaseURL = apiSrv.URL
	cfg.LogFile = ""
	cfg.FilterDebounce = config.Duration{Duration: 10 * time.Millisecond}

	logger, _ := testutils.NewTestLogger(t)
	application, err := app.NewApplication(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(application.Close)

	srv := httptest.NewServer(routes.SetupRoutes(application))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) signIn(token string) {
	b.client.Jar.SetCookies(b.base, []*http.Cookie{{Name: "token", Value: token, Path: "/"}})
}

func (b *browser) cookie(name string) string {
	for _, c := range b.client.Jar.Cookies(b.base) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (b *browser) do(req *http.Request) response {
	b.t.Helper()
	res, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(b.t, err)
	return response{Code: res.StatusCode, Header: res.Header, Body: string(body)}
}

func (b *browser) get(path string, htmx bool) response {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base.String()+path, nil)
	require.NoError(b.t, err)
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return b.do(req)
}

// post sends an htmx form post carrying the CSRF token.
func (b *browser) post(path string, form url.Values) response {
	b.t.Helper()
	if b.cookie("csrf_token") == "" {
		b.get("/healthz", false)
	}
	req, err := http.NewRequest(http.MethodPost, b.base.String()+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set("X-CSRF-Token", b.cookie("csrf_token"))
	return b.do(req)
}

func gridFetches(api *fakeAPI, path string) []apiCall {
	return api.find(func(c apiCall) bool {
		return c.Method == http.MethodGet && c.Path == path && c.Query.Get("pageSize") != "500"
	})
}

func TestMainRequiresToken(t *testing.T) {
	b := setupServer(t, newFakeAPI(""))

	res := b.get("/main/clientes", false)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth", res.Header.Get("Location"))

	res = b.get("/main/clientes", true)
	assert.Equal(t, "/auth", res.Header.Get("HX-Redirect"))

	b.signIn(makeToken(t, time.Now().Add(-time.Minute)))
	res = b.get("/main/clientes", false)
	assert.Equal(t, http.StatusSeeOther, res.Code, "expired token")

	b.signIn("not-a-jwt")
	res = b.get("/main/clientes", false)
	assert.Equal(t, http.StatusSeeOther, res.Code, "malformed token")
}

func TestLogin(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	b := setupServer(t, newFakeAPI(token))

	res := b.get("/auth", false)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, `name="email"`)

	form := url.Values{"email": {"ana@renova.com"}, "password": {"wrong"}}
	res = b.post("/auth", form)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Contains(t, res.Body, "Email ou senha inválidos")
	assert.Empty(t, b.cookie("token"))

	form.Set("password", "secret")
	res = b.post("/auth", form)
	assert.Equal(t, "/main", res.Header.Get("HX-Redirect"))
	assert.Equal(t, token, b.cookie("token"))

	res = b.get("/auth", false)
	assert.Equal(t, http.StatusSeeOther, res.Code, "signed-in users skip the login page")
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	b := setupServer(t, newFakeAPI(""))
	req, err := http.NewRequest(http.MethodPost, b.base.String()+"/auth", strings.NewReader("email=a&password=b"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res := b.do(req)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestClientsPage(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	api := newFakeAPI(token)
	b := setupServer(t, api)
	b.signIn(token)

	res := b.get("/main/clientes", false)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, "Ana")
	assert.Contains(t, res.Body, "Página 1 de 1")
	assert.NotEmpty(t, b.cookie("renova_session"))

	calls := gridFetches(api, "/clients")
	require.Len(t, calls, 1)
	assert.Equal(t, "1", calls[0].Query.Get("page"))
	assert.Equal(t, "10", calls[0].Query.Get("pageSize"))
	assert.Equal(t, "Bearer "+token, calls[0].Auth)
}

func TestGridActions(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	api := newFakeAPI(token)
	b := setupServer(t, api)
	b.signIn(token)
	b.get("/main/clientes", false)

	res := b.post("/main/grids/clients/sort?key=name", nil)
	require.Equal(t, http.StatusOK, res.Code)
	calls := gridFetches(api, "/clients")
	last := calls[len(calls)-1]
	assert.Equal(t, "name", last.Query.Get("orderByField"))
	assert.Equal(t, "asc", last.Query.Get("orderByDirection"))

	res = b.post("/main/grids/clients/filter?key=name", url.Values{"value": {"bi"}})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, "Bia")
	assert.NotContains(t, res.Body, "Ana")
	calls = gridFetches(api, "/clients")
	assert.Equal(t, "bi", calls[len(calls)-1].Query.Get("name"))

	res = b.post("/main/grids/clients/remove?key=phone", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, res.Body, `hx-post="/main/grids/clients/remove?key=phone"`)
	assert.Contains(t, res.Body, `<option value="phone">Telefone</option>`)

	res = b.post("/main/grids/clients/page?dir=next", nil)
	assert.Contains(t, res.Header.Get("HX-Trigger"), "Página indisponível")
}

func TestBulkDeleteReportsEachFailure(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	api := newFakeAPI(token)
	api.failDelete["c2"] = true
	b := setupServer(t, api)
	b.signIn(token)
	b.get("/main/clientes", false)

	b.post("/main/grids/clients/select-all", nil)
	res := b.post("/main/grids/clients/delete", nil)
	require.Equal(t, http.StatusOK, res.Code)

	var trigger map[string][]map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.Header.Get("HX-Trigger")), &trigger))
	assert.Equal(t, []map[string]string{
		{"message": "Erro ao excluir C2", "type": "error"},
		{"message": "1 item excluído", "type": "success"},
	}, trigger["showToasts"])

	deletes := api.find(func(c apiCall) bool { return c.Method == http.MethodDelete })
	assert.Len(t, deletes, 2)
	assert.Contains(t, res.Body, "Excluir selecionados (0)")
}

func TestExportDownloadsSpreadsheet(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	b := setupServer(t, newFakeAPI(token))
	b.signIn(token)

	res := b.get("/main/grids/clients/export", false)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, export.ContentType, res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "clients-")
	assert.True(t, strings.HasPrefix(res.Body, "PK"), "xlsx files are zip archives")
}

func TestUnknownGrid(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	b := setupServer(t, newFakeAPI(token))
	b.signIn(token)

	res := b.post("/main/grids/invoices/sort?key=id", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestSellsRowExpands(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	api := newFakeAPI(token)
	b := setupServer(t, api)
	b.signIn(token)
	b.get("/main/vendas", false)

	res := b.post("/main/grids/sells/expand?id=s1", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, "Camisa")
	assert.Len(t, api.find(func(c apiCall) bool { return c.Path == "/sells/s1" }), 1)

	res = b.post("/main/grids/sells/expand?id=s1", nil)
	assert.NotContains(t, res.Body, "Camisa")
}

func TestDonationsGridPinsType(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	api := newFakeAPI(token)
	b := setupServer(t, api)
	b.signIn(token)

	res := b.get("/main/doacoes", false)
	require.Equal(t, http.StatusOK, res.Code)
	calls := gridFetches(api, "/sells")
	require.NotEmpty(t, calls)
	assert.Equal(t, "donation", calls[0].Query.Get("type"))
}

func TestConfigQuickAdd(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	api := newFakeAPI(token)
	b := setupServer(t, api)
	b.signIn(token)

	res := b.get("/main/config", false)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, "Verde")

	res = b.post("/main/grids/config-color/filter?key=value", url.Values{"value": {"Azul"}})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, `Adicionar "Azul"`)

	res = b.post("/main/config/color", url.Values{"value": {"Azul"}})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Header.Get("HX-Trigger"), "success")
	assert.Contains(t, res.Body, "Azul")
	assert.NotContains(t, res.Body, `Adicionar "Azul"`)

	posts := api.find(func(c apiCall) bool { return c.Method == http.MethodPost && c.Path == "/config/color" })
	require.Len(t, posts, 1)
	assert.JSONEq(t, `{"value":"Azul"}`, posts[0].Body)
}

func TestCreateClient(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	api := newFakeAPI(token)
	b := setupServer(t, api)
	b.signIn(token)

	res := b.post("/main/clientes", url.Values{"name": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)

	res = b.post("/main/clientes", url.Values{"name": {"Caio"}, "phone": {"41 8888"}})
	require.Equal(t, http.StatusOK, res.Code)
	posts := api.find(func(c apiCall) bool { return c.Method == http.MethodPost && c.Path == "/clients" })
	require.Len(t, posts, 1)
	assert.JSONEq(t, `{"name":"Caio","phone":"41 8888"}`, posts[0].Body)
}

func TestCheckout(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	api := newFakeAPI(token)
	b := setupServer(t, api)
	b.signIn(token)

	res := b.get("/main/venda", false)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, "Bia")

	res = b.post("/main/venda/items", url.Values{"product_id": {"p9"}})
	assert.Contains(t, res.Body, "Produto indisponível para venda")

	res = b.post("/main/venda/items", url.Values{"product_id": {"p1"}})
	assert.Contains(t, res.Body, "Camisa")
	res = b.post("/main/venda/items", url.Values{"product_id": {"p1"}})
	assert.Contains(t, res.Body, "Produto já adicionado")

	res = b.post("/main/venda/checkout", url.Values{"client_id": {"c1"}, "type": {"return"}})
	assert.Contains(t, res.Body, "Peça p1 não pertence ao cliente selecionado")
	assert.Empty(t, api.find(func(c apiCall) bool { return c.Path == "/sells" && c.Method == http.MethodPost }))

	res = b.post("/main/venda/discount", url.Values{"discount": {"5,00"}})
	assert.Contains(t, res.Body, "25,00")

	res = b.post("/main/venda/checkout", url.Values{"client_id": {"c2"}, "type": {"sell"}})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Header.Get("HX-Trigger"), "Venda finalizada com sucesso!")
	assert.Contains(t, res.Body, "Nenhum produto adicionado.")

	posts := api.find(func(c apiCall) bool { return c.Path == "/sells" && c.Method == http.MethodPost })
	require.Len(t, posts, 1)
	assert.JSONEq(t, `{"clientId":"c2","type":"sell","productIds":["p1"]}`, posts[0].Body)

	res = b.get("/main/venda/recibo", false)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, export.ContentType, res.Header.Get("Content-Type"))
}

func TestRejectedSessionSignsOut(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	api := newFakeAPI(token)
	api.setUnauthorized(true)
	b := setupServer(t, api)
	b.signIn(token)

	res := b.get("/main/produtos", false)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth", res.Header.Get("Location"))
	assert.Empty(t, b.cookie("token"))
}

func TestLogout(t *testing.T) {
	token := makeToken(t, time.Now().Add(time.Hour))
	b := setupServer(t, newFakeAPI(token))
	b.signIn(token)
	b.get("/main/clientes", false)
	require.NotEmpty(t, b.cookie("renova_session"))

	res := b.post("/logout", nil)
	assert.Equal(t, "/auth", res.Header.Get("HX-Redirect"))
	assert.Empty(t, b.cookie("token"))
	assert.Empty(t, b.cookie("renova_session"))
}

func TestHealth(t *testing.T) {
	b := setupServer(t, newFakeAPI(""))
	res := b.get("/healthz", false)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body, `"status": "ok"`)
}
