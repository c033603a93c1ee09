package shipdeskapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BearBump/ShipDesk/internal/auth"
	"github.com/BearBump/ShipDesk/internal/keylock"
	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/realtime"
	"github.com/BearBump/ShipDesk/internal/services/chats"
	"github.com/BearBump/ShipDesk/internal/services/escrow"
	"github.com/BearBump/ShipDesk/internal/services/history"
	"github.com/BearBump/ShipDesk/internal/services/shipments"
	"github.com/BearBump/ShipDesk/internal/services/visibility"
	"github.com/BearBump/ShipDesk/internal/storage/memstore"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv    *httptest.Server
	store  *memstore.Store
	hub    *realtime.Hub
	tokens *auth.JWTService
	admin  string
	owner  string
	other  string
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memstore.New()
	journal := history.NewJournal(nil)
	machine := escrow.New(journal, nil, func() string { return "QWER7890" })
	locks := keylock.New()
	hub := realtime.NewHub(nil)
	t.Cleanup(hub.Close)

	shipSvc := shipments.New(store, locks, journal, machine).WithBroadcaster(hub)
	chatSvc := chats.New(store, memstore.NewWatermarks(), locks, machine).WithBroadcaster(hub)
	tokens := auth.NewJWTService("test-secret", time.Hour)

	srv := httptest.NewServer(New(shipSvc, chatSvc, tokens, hub, nil).Handler())
	t.Cleanup(srv.Close)

	mint := func(email string, role models.Role) string {
		tok, err := tokens.GenerateToken(models.Identity{Email: email, Role: role, Active: true})
		require.NoError(t, err)
		return tok
	}
	return &testEnv{
		srv:    srv,
		store:  store,
		hub:    hub,
		tokens: tokens,
		admin:  mint("admin@desk.io", models.RoleAdmin),
		owner:  mint("owner@x.io", models.RoleUser),
		other:  mint("other@x.io", models.RoleUser),
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	code, _ := e.do(t, http.MethodPut, "/api/admin/shipments", e.admin, map[string]any{
		"tracking_id": "GSE-1",
		"status":      "On Hold",
		"owner_email": "owner@x.io",
		"origin":      "London",
		"destination": "Berlin",
		"fees_amount": 120,
	})
	require.Equal(t, http.StatusOK, code)
}

func TestAPI_HealthAndAuth(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", body["status"])

	code, _ = e.do(t, http.MethodGet, "/api/my/shipments", "broken.token", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(t, http.MethodGet, "/api/my/shipments", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(t, http.MethodGet, "/api/admin/shipments", e.owner, nil)
	require.Equal(t, http.StatusForbidden, code)
}

func TestAPI_TrackDifferentialViews(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	code, body := e.do(t, http.MethodGet, "/api/track/GSE-1", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, visibility.StatusHeldRedacted, body["status"])
	require.NotContains(t, body, "owner_email")

	code, body = e.do(t, http.MethodGet, "/api/track/GSE-1", e.owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, visibility.StatusOnHoldForPayment, body["status"])
	require.Equal(t, "owner@x.io", body["owner_email"])
	fees := body["fees"].(map[string]any)
	require.Equal(t, 120.0, fees["detail"].(map[string]any)["amount"])

	code, _ = e.do(t, http.MethodGet, "/api/track/NOPE", "", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestAPI_AdminErrors(t *testing.T) {
	e := newEnv(t)

	code, _ := e.do(t, http.MethodPut, "/api/admin/shipments", e.admin, map[string]any{"tracking_id": "A"})
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPut, "/api/admin/shipments", e.admin, map[string]any{"tracking_id": "A", "status": "x", "route": "nope"})
	require.Equal(t, http.StatusBadRequest, code)

	// изменение неизвестного отправления отвечает успехом
	code, body := e.do(t, http.MethodPatch, "/api/admin/shipments/NOPE", e.admin, map[string]any{"status": "Delivered"})
	require.Equal(t, http.StatusAccepted, code)
	require.Equal(t, true, body["ok"])

	code, _ = e.do(t, http.MethodPost, "/api/admin/shipments/NOPE/verify-payment", e.admin, nil)
	require.Equal(t, http.StatusAccepted, code)

	code, _ = e.do(t, http.MethodDelete, "/api/admin/shipments/NOPE", e.admin, nil)
	require.Equal(t, http.StatusOK, code)
}

func TestAPI_PaymentChatFlow(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	code, _ := e.do(t, http.MethodPost, "/api/shipments/GSE-1/payment", e.other, map[string]string{"payment_method": "wire", "payer_email": "p@x.io"})
	require.Equal(t, http.StatusForbidden, code)

	code, body := e.do(t, http.MethodGet, "/api/shipments/GSE-1/payment", e.owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Customs and Taxes", body["reason"])

	code, body = e.do(t, http.MethodPost, "/api/shipments/GSE-1/payment", e.owner, map[string]string{"payment_method": "wire", "payer_email": "p@x.io"})
	require.Equal(t, http.StatusOK, code)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	require.Contains(t, msgs[0].(map[string]any)["text"], "QWER7890")

	code, body = e.do(t, http.MethodGet, "/api/chats/unread", e.owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1.0, body["count"])
	require.Equal(t, "GSE-1", body["latest_tracking_id"])

	code, _ = e.do(t, http.MethodPost, "/api/admin/shipments/GSE-1/verify-payment", e.admin, nil)
	require.Equal(t, http.StatusConflict, code)

	code, body = e.do(t, http.MethodPost, "/api/shipments/GSE-1/chat", e.owner, map[string]string{"message": "code QWER7890"})
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["messages"].([]any), 3)

	code, body = e.do(t, http.MethodGet, "/api/track/GSE-1", e.owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, visibility.StatusPendingVerify, body["status"])

	code, body = e.do(t, http.MethodPost, "/api/admin/shipments/GSE-1/verify-payment", e.admin, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "In Transit", body["status"])

	code, body = e.do(t, http.MethodGet, "/api/track/GSE-1", "", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "In Transit", body["status"])
	require.Nil(t, body["fees"])

	code, body = e.do(t, http.MethodGet, "/api/my/support-chat", e.owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "GSE-1", body["tracking_id"])

	code, _ = e.do(t, http.MethodGet, "/api/my/support-chat", e.other, nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestAPI_AdminChatAndMarkRead(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	code, body := e.do(t, http.MethodPost, "/api/admin/chats/GSE-1", e.admin, map[string]string{"message": "Send the wire to ..."})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "owner@x.io", body["owner_email"])

	code, body = e.do(t, http.MethodGet, "/api/chats/unread", e.owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 1.0, body["count"])

	// отметка ставится на текущую секунду, поэтому ждём, чтобы сообщение было строго раньше
	time.Sleep(1100 * time.Millisecond)
	code, _ = e.do(t, http.MethodPost, "/api/chats/GSE-1/read", e.owner, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = e.do(t, http.MethodGet, "/api/chats/unread", e.owner, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, 0.0, body["count"])
	require.Nil(t, body["latest_tracking_id"])

	code, _ = e.do(t, http.MethodGet, "/api/admin/chats/GSE-1", e.owner, nil)
	require.Equal(t, http.StatusForbidden, code)
}

func TestAPI_LiveChatPush(t *testing.T) {
	e := newEnv(t)
	e.seed(t)

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/shipments/GSE-1/chat/ws?access_token=" + e.owner
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(e.srv.URL, "http")+"/api/shipments/GSE-1/chat/ws?access_token="+e.other, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	require.Eventually(t, func() bool { return e.hub.Subscribers("GSE-1") == 1 }, 2*time.Second, 10*time.Millisecond)

	code, _ := e.do(t, http.MethodPost, "/api/admin/chats/GSE-1", e.admin, map[string]string{"message": "ping"})
	require.Equal(t, http.StatusOK, code)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var push realtime.Push
	require.NoError(t, conn.ReadJSON(&push))
	require.Equal(t, "GSE-1", push.TrackingID)
	require.Equal(t, "ping", push.Message.Text)
	require.Equal(t, models.SenderAdmin, push.Message.Sender)
}

func TestShipmentRequest_FeeAmountForms(t *testing.T) {
	for raw, want := range map[string]string{
		`{"fees_amount": 12.5}`:   "12.5",
		`{"fees_amount": "7"}`:    "7",
		`{"fees_amount": null}`:   "",
		`{"tracking_id": "only"}`: "",
	} {
		var req shipmentRequest
		require.NoError(t, json.Unmarshal([]byte(raw), &req))
		require.Equal(t, want, req.update().FeeAmount, raw)
	}
}
