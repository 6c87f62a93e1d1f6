package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bearer() []string {
	return []string{"Authorization", "Bearer " + adminToken}
}

func TestAdmin_RequiresToken(t *testing.T) {
	s := newTestServer(t, 5)

	w, _ := s.do(t, http.MethodGet, "/admin/orders/pending", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/admin/orders/pending", nil, "Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = s.do(t, http.MethodGet, "/admin/orders/pending", nil, bearer()...)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdmin_OfflineConfirmation(t *testing.T) {
	s := newTestServer(t, 5)
	session := s.session(t)
	s.addTickets(t, session, 2)

	w, body := s.do(t, http.MethodPost, "/orders/"+session+"/checkout", checkoutBody("advance_payment"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CONFIRMED", body["status"])
	assert.Equal(t, false, body["is_confirmed"])
	orderID := body["id"].(string)

	w, _ = s.do(t, http.MethodGet, "/admin/orders/pending", nil, bearer()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), orderID)

	w, body = s.do(t, http.MethodPost, "/admin/orders/"+orderID+"/confirm", nil, bearer()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["is_confirmed"])
	assert.Equal(t, "25.00", body["total"])

	w, _ = s.do(t, http.MethodGet, "/admin/orders/pending", nil, bearer()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w, body = s.do(t, http.MethodDelete, "/admin/orders/"+orderID, nil, bearer()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["deleted"])
	assert.NotEmpty(t, body["warning"])
}

func TestAdmin_Refund(t *testing.T) {
	s := newTestServer(t, 5)
	session := s.session(t)
	s.addTickets(t, session, 1)
	s.do(t, http.MethodPost, "/orders/"+session+"/checkout", checkoutBody("dummy_preauth"))
	_, body := s.do(t, http.MethodPost, "/orders/"+session+"/finalize", nil)
	orderID := body["id"].(string)

	w, body := s.do(t, http.MethodPost, "/admin/orders/"+orderID+"/refund", map[string]string{"amount": "50.00"}, bearer()...)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, body["fields"], "amount")

	w, body = s.do(t, http.MethodPost, "/admin/orders/"+orderID+"/refund", nil, bearer()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "REFUNDED", body["status"])

	w, _ = s.do(t, http.MethodPost, "/admin/orders/"+orderID+"/refund", nil, bearer()...)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdmin_DeleteWaitingOrder(t *testing.T) {
	s := newTestServer(t, 5)
	session := s.session(t)
	_, body := s.addTickets(t, session, 3)
	orderID := body["id"].(string)

	w, body := s.do(t, http.MethodDelete, "/admin/orders/"+orderID, nil, bearer()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["deleted"])

	w, _ = s.do(t, http.MethodDelete, "/admin/orders/"+orderID, nil, bearer()...)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodPost, "/admin/orders/not-a-uuid/confirm", nil, bearer()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_DoorSale(t *testing.T) {
	s := newTestServer(t, 5)
	path := "/admin/events/" + s.event.ID.String() + "/door-sales"
	sale := map[string]any{"price_class_id": s.pc.ID, "quantity": 2, "email": "boxoffice@example.com"}

	w, _ := s.do(t, http.MethodPost, path, sale)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := s.do(t, http.MethodPost, path, sale, bearer()...)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "CONFIRMED", body["status"])
	assert.Equal(t, "door", body["variant"])
	assert.Equal(t, true, body["is_confirmed"])
	assert.Equal(t, "25.00", body["total"])
	for _, tk := range body["tickets"].([]any) {
		assert.Equal(t, "presale_door", tk.(map[string]any)["sold_as"])
	}

	w, body = s.do(t, http.MethodPost, path, map[string]any{"price_class_id": s.pc.ID, "quantity": 4}, bearer()...)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.EqualValues(t, 3, body["available"])

	w, _ = s.do(t, http.MethodPost, "/admin/events/not-a-uuid/door-sales", sale, bearer()...)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdmin_PartialRefund(t *testing.T) {
	s := newTestServer(t, 5)
	session := s.session(t)
	s.addTickets(t, session, 2)
	s.do(t, http.MethodPost, "/orders/"+session+"/checkout", checkoutBody("dummy_preauth"))
	_, body := s.do(t, http.MethodPost, "/orders/"+session+"/finalize", nil)
	orderID := body["id"].(string)

	w, body := s.do(t, http.MethodPost, "/admin/orders/"+orderID+"/refund", map[string]string{"amount": "5.00"}, bearer()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CONFIRMED", body["status"])
	assert.Equal(t, "5.00", body["refunded"])

	w, body = s.do(t, http.MethodGet, "/events/"+s.event.ID.String()+"/availability", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, body["remaining"])

	w, body = s.do(t, http.MethodPost, "/admin/orders/"+orderID+"/refund", nil, bearer()...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "REFUNDED", body["status"])
	assert.Equal(t, "25.00", body["refunded"])
}
