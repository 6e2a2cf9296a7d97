package order

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/labdesk/labdesk/internal/platform/auth"
)

func doRequest(t *testing.T, h *Handler, actor auth.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	api := e.Group("/api/v1")
	h.RegisterRoutes(api)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandlerUpdateDispatchesTransition(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)
	h := NewHandler(svc)

	rec := doRequest(t, h, labTech, http.MethodPut, "/api/v1/orders/"+o.ID.String(),
		`{"order_status":"confirmed"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if repo.orders[o.ID].OrderStatus != StatusConfirmed {
		t.Error("transition not applied")
	}
}

func TestHandlerUpdateDispatchesPayment(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)
	h := NewHandler(svc)

	rec := doRequest(t, h, reception, http.MethodPut, "/api/v1/orders/"+o.ID.String(),
		`{"paid_amount":500,"payment_method":"cash"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	stored := repo.orders[o.ID]
	if stored.PaidAmount != 500 || stored.PaymentStatus != PaymentPartial {
		t.Errorf("payment not applied: paid=%d status=%s", stored.PaidAmount, stored.PaymentStatus)
	}
}

func TestHandlerUpdateDispatchesFields(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)
	h := NewHandler(svc)

	rec := doRequest(t, h, reception, http.MethodPut, "/api/v1/orders/"+o.ID.String(),
		`{"priority":"stat"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if repo.orders[o.ID].Priority != PriorityStat {
		t.Error("field update not applied")
	}
}

func TestHandlerErrorMapping(t *testing.T) {
	svc, _, cat, _ := newTestService()
	o := makeOrder(t, svc, cat)
	h := NewHandler(svc)

	cases := []struct {
		name string
		run  func() *httptest.ResponseRecorder
		want int
	}{
		{"invalid transition is 400", func() *httptest.ResponseRecorder {
			return doRequest(t, h, labTech, http.MethodPut, "/api/v1/orders/"+o.ID.String(),
				`{"order_status":"completed"}`)
		}, http.StatusBadRequest},
		{"forbidden role is 403", func() *httptest.ResponseRecorder {
			return doRequest(t, h, doctor, http.MethodPut, "/api/v1/orders/"+o.ID.String(),
				`{"order_status":"confirmed"}`)
		}, http.StatusForbidden},
		{"unknown order is 404", func() *httptest.ResponseRecorder {
			return doRequest(t, h, admin, http.MethodGet,
				"/api/v1/orders/00000000-0000-0000-0000-00000000dead", "")
		}, http.StatusNotFound},
		{"malformed id is 400", func() *httptest.ResponseRecorder {
			return doRequest(t, h, admin, http.MethodGet, "/api/v1/orders/not-a-uuid", "")
		}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := tc.run(); rec.Code != tc.want {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestHandlerCreate(t *testing.T) {
	svc, _, cat, _ := newTestService()
	testID := cat.addTest("Complete Blood Count", 500)
	h := NewHandler(svc)

	body, _ := json.Marshal(CreateInput{PatientID: uuid.New(), TestIDs: []uuid.UUID{testID}})
	rec := doRequest(t, h, reception, http.MethodPost, "/api/v1/orders", string(body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var created Order
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.TotalAmount != 500 || created.OrderNumber == "" {
		t.Errorf("unexpected created order: %+v", created)
	}
}
