package quotations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bmarket/marketplace/internal/rbac"
	"github.com/b2bmarket/marketplace/internal/shared"
)

type handlerFixture struct {
	repo   *memRepo
	router chi.Router
}

func newHandlerFixture() *handlerFixture {
	repo := newMemRepo()
	svc := NewService(repo, repo, testPolicy, Options{Idempotency: &memIdempotency{}})
	h := NewHandler(nil, svc, rbac.Middleware{Policy: testPolicy}, false)
	r := chi.NewRouter()
	r.Route("/quotation", h.MountRoutes)
	return &handlerFixture{repo: repo, router: r}
}

func (f *handlerFixture) do(t *testing.T, actor shared.Actor, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	req = req.WithContext(shared.ContextWithActor(req.Context(), actor))
	res := httptest.NewRecorder()
	f.router.ServeHTTP(res, req)
	return res
}

func TestHandlerNegotiationFlow(t *testing.T) {
	f := newHandlerFixture()
	f.repo.seedCart(customer.UserID, 7)

	res := f.do(t, customer, http.MethodGet, "/quotation/AddtoQuotation", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"quotationForm"`)

	res = f.do(t, customer, http.MethodPost, "/quotation", `{"quotation_items":[{"product_id":7,"quantity":2}]}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var created CreateResponse
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	id := strconv.FormatInt(created.QuotationID, 10)

	res = f.do(t, customer, http.MethodPut, "/quotation/review/"+id, `{"updated_items":[{"product_id":7,"new_price":50,"gst_percentage":12}]}`)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = f.do(t, admin, http.MethodPut, "/quotation/review/"+id, `{"updated_items":[{"product_id":7,"new_price":"50.00","gst_percentage":12}]}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res = f.do(t, stranger, http.MethodPut, "/quotation/negotiate/"+id, `{"action":"approve"}`)
	assert.Equal(t, http.StatusNotFound, res.Code)

	res = f.do(t, customer, http.MethodPut, "/quotation/negotiate/"+id, `{"action":"approve"}`, IdempotencyHeader, "k1")
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var body struct {
		Data struct {
			Status Status `json:"quotation_status"`
			Order  struct {
				TotalAmount string `json:"total_amount"`
			} `json:"order"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	assert.Equal(t, StatusFinalized, body.Data.Status)
	assert.Equal(t, "112", body.Data.Order.TotalAmount)

	res = f.do(t, customer, http.MethodPut, "/quotation/negotiate/"+id, `{"action":"approve"}`, IdempotencyHeader, "k1")
	assert.Equal(t, http.StatusConflict, res.Code)
	res = f.do(t, customer, http.MethodPut, "/quotation/finalDecision/"+id, `{"action":"approve"}`)
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))

	res = f.do(t, customer, http.MethodDelete, "/quotation/delete/"+id, "")
	assert.Equal(t, http.StatusConflict, res.Code)

	res = f.do(t, customer, http.MethodGet, "/quotation/"+id+"/history", "")
	require.Equal(t, http.StatusOK, res.Code)
	var history []shared.ApprovalLog
	require.NoError(t, json.NewDecoder(res.Body).Decode(&history))
	assert.Len(t, history, 3)
}

func TestHandlerStatusMapping(t *testing.T) {
	f := newHandlerFixture()
	f.repo.seedCart(customer.UserID, 7)
	res := f.do(t, customer, http.MethodPost, "/quotation", `{"quotation_items":[{"product_id":7}]}`)
	require.Equal(t, http.StatusCreated, res.Code)

	cases := []struct {
		name   string
		actor  shared.Actor
		method string
		path   string
		body   string
		want   int
	}{
		{"empty selection", customer, http.MethodPost, "/quotation", `{"quotation_items":[]}`, http.StatusBadRequest},
		{"malformed body", customer, http.MethodPost, "/quotation", `{`, http.StatusBadRequest},
		{"product not in cart", customer, http.MethodPost, "/quotation", `{"quotation_items":[{"product_id":8}]}`, http.StatusBadRequest},
		{"bad id", customer, http.MethodGet, "/quotation/abc", "", http.StatusBadRequest},
		{"mine", customer, http.MethodGet, "/quotation", "", http.StatusOK},
		{"none for stranger", stranger, http.MethodGet, "/quotation", "", http.StatusNotFound},
		{"admin list as customer", customer, http.MethodGet, "/quotation/admin", "", http.StatusForbidden},
		{"admin list", admin, http.MethodGet, "/quotation/admin?page=1&per_page=5", "", http.StatusOK},
		{"missing quotation", admin, http.MethodPut, "/quotation/review/999", `{"updated_items":[{"product_id":7,"new_price":1}]}`, http.StatusNotFound},
		{"item not in quotation", admin, http.MethodPut, "/quotation/review/1", `{"updated_items":[{"product_id":9,"new_price":1}]}`, http.StatusBadRequest},
		{"zero price", admin, http.MethodPut, "/quotation/review/1", `{"updated_items":[{"product_id":7,"new_price":0}]}`, http.StatusBadRequest},
		{"price above column range", admin, http.MethodPut, "/quotation/review/1", `{"updated_items":[{"product_id":7,"new_price":1e12}]}`, http.StatusBadRequest},
		{"price with three decimals", admin, http.MethodPut, "/quotation/review/1", `{"updated_items":[{"product_id":7,"new_price":"10.005"}]}`, http.StatusBadRequest},
		{"quantity above bound", customer, http.MethodPost, "/quotation", `{"quotation_items":[{"product_id":7,"quantity":1000001}]}`, http.StatusBadRequest},
		{"wrong state", customer, http.MethodPut, "/quotation/negotiate/1", `{"action":"approve"}`, http.StatusConflict},
		{"bad action", customer, http.MethodPut, "/quotation/negotiate/1", `{"action":"cancel"}`, http.StatusBadRequest},
		{"decision as admin", admin, http.MethodPost, "/quotation/decision/1", `{"action":"approve"}`, http.StatusForbidden},
		{"decision without price", superadmin, http.MethodPost, "/quotation/decision/1", `{"action":"approve"}`, http.StatusConflict},
		{"show foreign", stranger, http.MethodGet, "/quotation/1", "", http.StatusNotFound},
		{"delete foreign", stranger, http.MethodDelete, "/quotation/delete/1", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := f.do(t, tc.actor, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.want, res.Code, res.Body.String())
		})
	}

	res = f.do(t, customer, http.MethodDelete, "/quotation/delete/1", "")
	assert.Equal(t, http.StatusOK, res.Code)
}
