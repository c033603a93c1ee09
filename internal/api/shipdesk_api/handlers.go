package shipdeskapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/shipments"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

const maxBody = 1 << 20

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Wrap(models.ErrMalformedInput, err.Error())
	}
	return nil
}

func (a *API) track(w http.ResponseWriter, r *http.Request) {
	v, err := a.shipments.Track(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *API) myShipments(w http.ResponseWriter, r *http.Request) {
	list, err := a.shipments.ListMine(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipments": list})
}

func (a *API) supportChat(w http.ResponseWriter, r *http.Request) {
	id, err := a.shipments.LatestForOwner(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"tracking_id": id,
		"chat":        "/api/shipments/" + id + "/chat",
	})
}

func (a *API) paymentDetails(w http.ResponseWriter, r *http.Request) {
	fee, err := a.shipments.PaymentDetails(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, fee)
}

type initiatePaymentRequest struct {
	PaymentMethod string `json:"payment_method"`
	PayerEmail    string `json:"payer_email"`
}

func (a *API) initiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiatePaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, true)
		return
	}
	id := chi.URLParam(r, "id")
	th, err := a.shipments.InitiatePayment(r.Context(), identityFrom(r.Context()), id, req.PaymentMethod, req.PayerEmail)
	if err != nil {
		writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, th)
}

type chatPostRequest struct {
	Message string `json:"message"`
}

func (a *API) chatThread(w http.ResponseWriter, r *http.Request) {
	th, err := a.chats.Thread(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, th)
}

func (a *API) chatPost(w http.ResponseWriter, r *http.Request) {
	var req chatPostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, true)
		return
	}
	th, err := a.chats.PostAsUser(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, th)
}

// chatLive проверяет доступ тем же путём, что и чтение треда, и только потом апгрейдит соединение.
func (a *API) chatLive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	th, err := a.chats.Thread(r.Context(), identityFrom(r.Context()), id)
	if err != nil {
		writeError(w, err, false)
		return
	}
	if a.live == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "live chat is not enabled"})
		return
	}
	a.live.Serve(w, r, th.TrackingID)
}

func (a *API) unread(w http.ResponseWriter, r *http.Request) {
	n, latest, err := a.chats.Unread(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeError(w, err, false)
		return
	}
	out := map[string]any{"count": n, "latest_tracking_id": nil}
	if latest != "" {
		out["latest_tracking_id"] = latest
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) markRead(w http.ResponseWriter, r *http.Request) {
	if err := a.chats.MarkRead(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) adminList(w http.ResponseWriter, r *http.Request) {
	list, err := a.shipments.List(r.Context(), identityFrom(r.Context()))
	if err != nil {
		writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"shipments": list})
}

// shipmentRequest принимает fees_amount и строкой, и числом.
type shipmentRequest struct {
	shipments.ShipmentUpdate
	FeeAmount json.RawMessage `json:"fees_amount,omitempty"`
}

func (req shipmentRequest) update() shipments.ShipmentUpdate {
	u := req.ShipmentUpdate
	raw := strings.TrimSpace(string(req.FeeAmount))
	var s string
	switch {
	case raw == "" || raw == "null":
		u.FeeAmount = ""
	case json.Unmarshal(req.FeeAmount, &s) == nil:
		u.FeeAmount = s
	default:
		u.FeeAmount = raw
	}
	return u
}

func (a *API) adminUpsert(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, true)
		return
	}
	sh, err := a.shipments.Upsert(r.Context(), identityFrom(r.Context()), req.update())
	if err != nil {
		writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (a *API) adminUpdate(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, true)
		return
	}
	sh, err := a.shipments.Update(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), req.update())
	if err != nil {
		writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (a *API) adminDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.shipments.Delete(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) adminVerify(w http.ResponseWriter, r *http.Request) {
	sh, err := a.shipments.VerifyPayment(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, sh)
}

func (a *API) adminChat(w http.ResponseWriter, r *http.Request) {
	th, err := a.chats.AdminThread(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err, false)
		return
	}
	writeJSON(w, http.StatusOK, th)
}

func (a *API) adminChatPost(w http.ResponseWriter, r *http.Request) {
	var req chatPostRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err, true)
		return
	}
	th, err := a.chats.PostAsAdmin(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "id"), req.Message)
	if err != nil {
		writeError(w, err, true)
		return
	}
	writeJSON(w, http.StatusOK, th)
}
