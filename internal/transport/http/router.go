package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"mhealth-survey-service/internal/app"
)

// Handler wires the ingestion and read use cases into HTTP routes.
type Handler struct {
	ingest   *app.IngestService
	reader   *app.ReadService
	feed     *app.ActivityFeed
	upgrader websocket.Upgrader
}

func NewHandler(ingest *app.IngestService, reader *app.ReadService, feed *app.ActivityFeed) *Handler {
	return &Handler{
		ingest: ingest,
		reader: reader,
		feed:   feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router assembles the route tree. auth guards everything under /app.
func (h *Handler) Router(auth func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Post("/app/surveys/upload", h.handleUpload)
		r.Get("/app/surveys/responses", h.handleReadResponses)
		r.Get("/app/surveys/responses/buckets", h.handleReadBuckets)
		r.Get("/app/streams/responses", h.handleStream)
	})
	return r
}
