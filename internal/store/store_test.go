package store

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gusesba/renova-web/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestAPI(t *testing.T, h http.HandlerFunc) *remote.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := remote.NewClient(srv.URL, srv.Client(), nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestListClients(t *testing.T) {
	api := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/clients", r.URL.Path)
		assert.Equal(t, "name", r.URL.Query().Get("orderByField"))
		_, _ = w.Write([]byte(`{"items":[{"id":"c1","name":"Ana","phone":"41 9999"},{"id":"c2","name":"Bia"}],"totalPages":1}`))
	})

	clients, err := NewRemoteClientStore(api).ListClients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Client{{ID: "c1", Name: "Ana", Phone: "41 9999"}, {ID: "c2", Name: "Bia"}}, clients)
}

func TestGetProductForSale(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    *Product
		wantMsg string
	}{
		{
			name:   "available",
			status: http.StatusOK,
			body:   `{"id":"p1","price":35.5,"type":"Camisa","providerId":"c1","entryDate":"2024-02-10"}`,
			want:   &Product{ID: "p1", Price: 35.5, Type: "Camisa", ProviderID: "c1", EntryDate: "2024-02-10"},
		},
		{
			name:    "already sold",
			status:  http.StatusBadRequest,
			body:    `{"message":"Produto já vendido"}`,
			wantMsg: "Produto já vendido",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/products/sell/p1", r.URL.Path)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			p, err := NewRemoteProductStore(api).GetProductForSale(context.Background(), "p1")
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantMsg, remote.UserMessage(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestCreateSell(t *testing.T) {
	var got NewSell
	api := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sells", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"s1","type":"return","clientName":"Ana","totalProducts":2}`))
	})

	sell, err := NewRemoteSellStore(api).CreateSell(context.Background(), &NewSell{
		ClientID:   "c1",
		Type:       SellTypeReturn,
		ProductIDs: []string{"p1", "p2"},
	})
	require.NoError(t, err)
	assert.Equal(t, NewSell{ClientID: "c1", Type: SellTypeReturn, ProductIDs: []string{"p1", "p2"}}, got)
	assert.Equal(t, "s1", sell.ID)
	assert.Equal(t, 2, sell.TotalProducts)
}

func TestGetSell(t *testing.T) {
	api := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sells/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"id":"s1","type":"sell","products":[{"id":"p1","price":10}]}`))
	})
	s := NewRemoteSellStore(api)

	sell, err := s.GetSell(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, sell.Products, 1)
	assert.Equal(t, 10.0, sell.Products[0].Price)

	sell, err = s.GetSell(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, sell)
}

func TestCreateConfigItem(t *testing.T) {
	var paths []string
	api := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var body ConfigItem
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(ConfigItem{ID: "k1", Value: body.Value})
	})
	s := NewRemoteConfigStore(api)

	item, err := s.CreateConfigItem(context.Background(), ConfigColor, "  Azul ")
	require.NoError(t, err)
	assert.Equal(t, &ConfigItem{ID: "k1", Value: "Azul"}, item)

	_, err = s.CreateConfigItem(context.Background(), ConfigSize, " ")
	assert.ErrorIs(t, err, ErrEmptyConfigValue)

	_, err = s.CreateConfigItem(context.Background(), ConfigKind("material"), "Lã")
	assert.Error(t, err)

	assert.Equal(t, []string{"/config/color"}, paths)
}

func TestAccessorsCoverColumns(t *testing.T) {
	for _, k := range ClientColumns {
		assert.Contains(t, ClientAccessors, k)
		assert.Contains(t, ClientLabels, k)
	}
	for _, cols := range [][]string{ProductColumns, SoldProductColumns, SaleProductColumns} {
		for _, k := range cols {
			assert.Contains(t, ProductAccessors, k)
			assert.Contains(t, ProductLabels, k)
		}
	}
	for _, k := range SellColumns {
		assert.Contains(t, SellAccessors, k)
		assert.Contains(t, SellLabels, k)
	}
	assert.Equal(t, "Devolução", SellAccessors["type"](Sell{Type: SellTypeReturn}))
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		status  int
		body    string
		want    string
		wantErr error
	}{
		{"ok", Credentials{Email: " ana@renova.com ", Password: "x"}, http.StatusOK, `{"token":"jwt"}`, "jwt", nil},
		{"rejected", Credentials{Email: "ana@renova.com", Password: "bad"}, http.StatusUnauthorized, `{"message":"Unauthorized"}`, "", ErrInvalidCredentials},
		{"no token", Credentials{Email: "ana@renova.com", Password: "x"}, http.StatusOK, `{}`, "", ErrMissingToken},
		{"blank", Credentials{Email: " ", Password: "x"}, http.StatusOK, `{"token":"jwt"}`, "", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/auth/login", r.URL.Path)
				var got Credentials
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				assert.Equal(t, "ana@renova.com", got.Email)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			token, err := NewRemoteAuthStore(api).Login(context.Background(), tt.creds)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, token)
		})
	}
}

func TestCreateClient(t *testing.T) {
	var got NewClient
	api := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/clients", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"c9","name":"Ana","phone":"41 9999"}`))
	})
	s := NewRemoteClientStore(api)

	c, err := s.CreateClient(context.Background(), &NewClient{Name: " Ana ", Phone: "41 9999"})
	require.NoError(t, err)
	assert.Equal(t, NewClient{Name: "Ana", Phone: "41 9999"}, got)
	assert.Equal(t, "c9", c.ID)

	_, err = s.CreateClient(context.Background(), &NewClient{Name: "  "})
	assert.ErrorIs(t, err, ErrClientNameRequired)
}

func TestCreateProduct(t *testing.T) {
	var got map[string]any
	api := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/products", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})
	s := NewRemoteProductStore(api)

	err := s.CreateProduct(context.Background(), &NewProduct{Price: 49.9, TypeID: "t1", ProviderID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 49.9, got["price"])
	assert.Equal(t, "t1", got["typeId"])
	assert.NotContains(t, got, "entryDate")

	assert.ErrorIs(t, s.CreateProduct(context.Background(), &NewProduct{Price: 0}), ErrInvalidPrice)
}

func TestListConfigItems(t *testing.T) {
	api := setupTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/config/brand", r.URL.Path)
		assert.Equal(t, "value", r.URL.Query().Get("orderByField"))
		_, _ = w.Write([]byte(`{"items":[{"id":"b1","value":"Hering"}],"totalPages":1}`))
	})

	items, err := NewRemoteConfigStore(api).ListConfigItems(context.Background(), ConfigBrand)
	require.NoError(t, err)
	assert.Equal(t, []ConfigItem{{ID: "b1", Value: "Hering"}}, items)

	_, err = NewRemoteConfigStore(api).ListConfigItems(context.Background(), ConfigKind("fabric"))
	assert.Error(t, err)
}
