package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kreolis/cinema-ticketing/internal/adapter/cache"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/handler"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/notifier"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/payment"
	"github.com/Kreolis/cinema-ticketing/internal/adapter/repository/memory"
	"github.com/Kreolis/cinema-ticketing/internal/core/domain"
	"github.com/Kreolis/cinema-ticketing/internal/core/services"
	"github.com/Kreolis/cinema-ticketing/internal/platform/clock"
	"github.com/Kreolis/cinema-ticketing/internal/platform/logging"
)

const adminToken = "s3cret-operator-token"

type testServer struct {
	router http.Handler
	orders *services.OrderService
	clock  *clock.Fake
	event  domain.Event
	pc     domain.PriceClass
}

func newTestServer(t *testing.T, seats int) *testServer {
	t.Helper()

	start := time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)
	clk := clock.NewFake(start)
	store := memory.NewStore()
	mem := cache.NewMemory()
	logger := logging.Discard()

	pc := domain.PriceClass{ID: uuid.New(), Name: "Regular", Price: decimal.RequireFromString("12.50")}
	event := domain.Event{
		ID:                uuid.New(),
		StartTime:         start.Add(72 * time.Hour),
		Duration:          2 * time.Hour,
		VenueSeats:        seats,
		TracksSeats:       true,
		IsActive:          true,
		AllowPresale:      true,
		PresaleEndsBefore: time.Hour,
		AllowDoorSelling:  true,
	}
	store.AddEvent(event, pc)

	ledger := services.NewLedger(clk)
	sessions := services.NewSessionMap(store, ledger, mem, clk, services.OrderConfig{}, logger)
	orders := services.NewOrderService(services.Deps{
		Store:    store,
		Ledger:   ledger,
		Sessions: sessions,
		Variants: payment.NewRegistry(
			payment.NewOffline(""),
			payment.NewDummy(payment.DummyConfig{Name: "dummy_preauth", RequiresPreauth: true}),
			payment.NewDummy(payment.DummyConfig{Name: "dummy_declining", RequiresPreauth: true, FailAuthorize: true}),
		),
		Notifier: notifier.NewLog(logger),
		Cache:    mem,
		Clock:    clk,
		Logger:   logger,
	}, services.OrderConfig{})
	t.Cleanup(orders.WaitNotifications)

	router := handler.NewRouter(
		handler.NewOrderHandler(orders, sessions, clk, logger),
		handler.NewAdminHandler(orders, adminToken, clk, logger),
		logger,
	)
	return &testServer{router: router, orders: orders, clock: clk, event: event, pc: pc}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func (s *testServer) session(t *testing.T) string {
	t.Helper()
	w, body := s.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return body["session_key"].(string)
}

func (s *testServer) addTickets(t *testing.T, session string, qty int) (*httptest.ResponseRecorder, map[string]any) {
	return s.do(t, http.MethodPost, "/orders/"+session+"/tickets", map[string]any{
		"event_id":       s.event.ID,
		"price_class_id": s.pc.ID,
		"quantity":       qty,
	})
}

func checkoutBody(variant string) map[string]any {
	return map[string]any{
		"variant": variant,
		"billing": map[string]string{
			"first_name":   "Linus",
			"last_name":    "Lumiere",
			"address_1":    "Rue du Cinema 3",
			"city":         "Lyon",
			"postcode":     "69001",
			"country_code": "FR",
			"email":        "linus@example.com",
		},
	}
}

func TestOrderFlow_PreauthCheckoutAndFinalize(t *testing.T) {
	s := newTestServer(t, 10)
	session := s.session(t)

	w, body := s.do(t, http.MethodGet, "/orders/"+session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "WAITING", body["status"])
	assert.Equal(t, "0.00", body["total"])
	assert.EqualValues(t, 600, body["remaining_seconds"])

	w, body = s.addTickets(t, session, 2)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "25.00", body["total"])
	assert.Len(t, body["tickets"], 2)

	w, body = s.do(t, http.MethodPost, "/orders/"+session+"/checkout", checkoutBody("dummy_preauth"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PREAUTH", body["status"])

	w, body = s.do(t, http.MethodPost, "/orders/"+session+"/finalize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CONFIRMED", body["status"])
	assert.Equal(t, true, body["is_confirmed"])
	assert.EqualValues(t, 0, body["remaining_seconds"])
	assert.NotContains(t, body, "expires_at")
	for _, tk := range body["tickets"].([]any) {
		assert.Equal(t, "presale_online", tk.(map[string]any)["sold_as"])
	}

	w, body = s.do(t, http.MethodGet, "/orders/"+session, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, true, body["start_new_order"])

	w, body = s.do(t, http.MethodPost, "/sessions/"+session+"/rotate", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	fresh := body["session_key"].(string)

	w, body = s.do(t, http.MethodGet, "/orders/"+fresh, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "WAITING", body["status"])
}

func TestAddTickets_ErrorMapping(t *testing.T) {
	s := newTestServer(t, 2)
	session := s.session(t)

	w, body := s.addTickets(t, session, 3)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.EqualValues(t, 2, body["available"])

	w, body = s.addTickets(t, session, 0)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, body["fields"], "quantity")

	w, _ = s.addTickets(t, "bad.key.value", 1)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/orders/"+session+"/tickets", map[string]any{"event": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodPost, "/orders/"+session+"/tickets", map[string]any{
		"event_id": uuid.New(), "price_class_id": s.pc.ID, "quantity": 1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddTickets_DoorFlagRejected(t *testing.T) {
	s := newTestServer(t, 5)
	session := s.session(t)

	w, _ := s.do(t, http.MethodPost, "/orders/"+session+"/tickets", map[string]any{
		"event_id":       s.event.ID,
		"price_class_id": s.pc.ID,
		"quantity":       1,
		"door":           true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := s.do(t, http.MethodGet, "/events/"+s.event.ID.String()+"/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 5, body["remaining"])
}

func TestRemoveTicketAndAvailability(t *testing.T) {
	s := newTestServer(t, 5)
	session := s.session(t)

	_, body := s.addTickets(t, session, 2)
	ticketID := body["tickets"].([]any)[0].(map[string]any)["id"].(string)

	w, body := s.do(t, http.MethodGet, "/events/"+s.event.ID.String()+"/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, body["remaining"])

	w, body = s.do(t, http.MethodDelete, "/orders/"+session+"/tickets/"+ticketID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "12.50", body["total"])

	w, body = s.do(t, http.MethodGet, "/events/"+s.event.ID.String()+"/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 4, body["remaining"])

	w, _ = s.do(t, http.MethodDelete, "/orders/"+session+"/tickets/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckout_ErrorMapping(t *testing.T) {
	s := newTestServer(t, 5)
	session := s.session(t)
	s.addTickets(t, session, 1)

	w, body := s.do(t, http.MethodPost, "/orders/"+session+"/checkout", map[string]any{
		"variant": "dummy_preauth",
		"billing": map[string]string{"email": "nope"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "first_name")
	assert.Contains(t, fields, "email")

	w, body = s.do(t, http.MethodPost, "/orders/"+session+"/checkout", checkoutBody("dummy_declining"))
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, true, body["retry"])
	assert.NotContains(t, body["error"], "declined")

	w, body = s.do(t, http.MethodGet, "/orders/"+session, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "WAITING", body["status"])

	s.clock.Advance(11 * time.Minute)
	w, body = s.do(t, http.MethodPost, "/orders/"+session+"/checkout", checkoutBody("dummy_preauth"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, true, body["start_new_order"])
}

func TestUpdateEmail(t *testing.T) {
	s := newTestServer(t, 5)
	session := s.session(t)
	s.addTickets(t, session, 1)

	w, body := s.do(t, http.MethodPut, "/orders/"+session+"/email", map[string]string{"email": "holder@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "holder@example.com", body["tickets"].([]any)[0].(map[string]any)["email"])
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, 1)

	w, body := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, _ = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
