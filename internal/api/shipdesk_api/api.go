package shipdeskapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BearBump/ShipDesk/internal/models"
	"github.com/BearBump/ShipDesk/internal/services/shipments"
	"github.com/BearBump/ShipDesk/internal/services/visibility"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type ShipmentService interface {
	Upsert(ctx context.Context, actor *models.Identity, u shipments.ShipmentUpdate) (*models.Shipment, error)
	Update(ctx context.Context, actor *models.Identity, trackingID string, u shipments.ShipmentUpdate) (*models.Shipment, error)
	Track(ctx context.Context, viewer *models.Identity, trackingID string) (visibility.View, error)
	List(ctx context.Context, actor *models.Identity) ([]*models.Shipment, error)
	ListMine(ctx context.Context, viewer *models.Identity) ([]visibility.View, error)
	LatestForOwner(ctx context.Context, viewer *models.Identity) (string, error)
	PaymentDetails(ctx context.Context, viewer *models.Identity, trackingID string) (*models.Fee, error)
	InitiatePayment(ctx context.Context, viewer *models.Identity, trackingID, paymentMethod, payerEmail string) (*models.ChatThread, error)
	VerifyPayment(ctx context.Context, actor *models.Identity, trackingID string) (*models.Shipment, error)
	Delete(ctx context.Context, actor *models.Identity, trackingID string) error
}

type ChatService interface {
	Thread(ctx context.Context, viewer *models.Identity, trackingID string) (*models.ChatThread, error)
	PostAsUser(ctx context.Context, viewer *models.Identity, trackingID, text string) (*models.ChatThread, error)
	AdminThread(ctx context.Context, actor *models.Identity, trackingID string) (*models.ChatThread, error)
	PostAsAdmin(ctx context.Context, actor *models.Identity, trackingID, text string) (*models.ChatThread, error)
	Unread(ctx context.Context, viewer *models.Identity) (int, string, error)
	MarkRead(ctx context.Context, viewer *models.Identity, trackingID string) error
}

type TokenValidator interface {
	ValidateToken(token string) (*models.Identity, error)
}

// LiveChat апгрейдит уже авторизованный запрос до websocket-подписки на тред.
type LiveChat interface {
	Serve(w http.ResponseWriter, r *http.Request, trackingID string)
}

type API struct {
	shipments ShipmentService
	chats     ChatService
	tokens    TokenValidator
	live      LiveChat
	logger    *slog.Logger
}

func New(shipments ShipmentService, chats ChatService, tokens TokenValidator, live LiveChat, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{shipments: shipments, chats: chats, tokens: tokens, live: live, logger: logger}
}

// Mount вешает маршруты API на переданный роутер.
func (a *API) Mount(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(requestID(a.logger))
		r.Use(middleware.Recoverer)
		r.Use(a.identify)

		r.Get("/track/{id}", a.track)

		r.Get("/my/shipments", a.myShipments)
		r.Get("/my/support-chat", a.supportChat)

		r.Get("/shipments/{id}/payment", a.paymentDetails)
		r.Post("/shipments/{id}/payment", a.initiatePayment)
		r.Get("/shipments/{id}/chat", a.chatThread)
		r.Post("/shipments/{id}/chat", a.chatPost)
		r.Get("/shipments/{id}/chat/ws", a.chatLive)

		r.Get("/chats/unread", a.unread)
		r.Post("/chats/{id}/read", a.markRead)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/shipments", a.adminList)
			r.Put("/shipments", a.adminUpsert)
			r.Patch("/shipments/{id}", a.adminUpdate)
			r.Delete("/shipments/{id}", a.adminDelete)
			r.Post("/shipments/{id}/verify-payment", a.adminVerify)
			r.Get("/chats/{id}", a.adminChat)
			r.Post("/chats/{id}", a.adminChatPost)
		})
	})
}

// Handler собирает роутер без swagger.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	a.Mount(r)
	return r
}
