package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ramonehamilton/mtg-binder/internal/api/handlers"
	"github.com/ramonehamilton/mtg-binder/internal/api/response"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	systemHandler := handlers.NewSystemHandler(s.services.Queue, s.services.Metrics)

	// Health check endpoint (no versioning)
	s.router.Get("/health", systemHandler.Health)

	// WebSocket endpoint; ?job=<id> narrows it to one import
	s.router.Get("/ws", s.wsHub.ServeWs)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", systemHandler.GetStatus)

		if s.services.Store == nil {
			r.HandleFunc("/*", unavailable("storage"))
			return
		}
		collectionHandler := handlers.NewCollectionHandler(s.services.Store)

		// Account creation and share links need no caller.
		r.Post("/users", collectionHandler.CreateUser)
		r.Get("/shared/{slug}", collectionHandler.GetShared)

		if s.services.Catalog != nil && s.services.Resolver != nil {
			cardHandler := handlers.NewCardHandler(s.services.Catalog, s.services.Resolver)
			r.Route("/catalog", func(r chi.Router) {
				r.Get("/search", cardHandler.SearchCards)
				r.Get("/named", cardHandler.GetCardNamed)
				r.Get("/autocomplete", cardHandler.Autocomplete)
				r.Get("/suggest", cardHandler.Suggest)
				r.Get("/cards/{cardID}", cardHandler.GetCard)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(handlers.RequireUser)

			entryHandler := handlers.NewEntryHandler(s.services.Store, s.services.Events)

			r.Route("/collections", func(r chi.Router) {
				r.Get("/", collectionHandler.ListCollections)
				r.Post("/", collectionHandler.CreateCollection)

				r.Route("/{collectionID}", func(r chi.Router) {
					r.Get("/", collectionHandler.GetCollection)
					r.Patch("/", collectionHandler.UpdateCollection)
					r.Delete("/", collectionHandler.DeleteCollection)

					r.Get("/shares", collectionHandler.ListShares)
					r.Post("/shares", collectionHandler.AddShare)
					r.Delete("/shares/{userID}", collectionHandler.RemoveShare)

					r.Get("/entries", entryHandler.ListEntries)
					r.Post("/entries", entryHandler.CreateEntry)
					r.Post("/entries/bulk", entryHandler.BulkCreate)
					r.Patch("/entries/{entryID}", entryHandler.UpdateEntry)
					r.Delete("/entries/{entryID}", entryHandler.DeleteEntry)

					if s.services.Resolver != nil {
						insights := handlers.NewInsightsHandler(s.services.Store, s.services.Resolver)
						r.Get("/validate", insights.Validate)
						r.Get("/stats", insights.Stats)
						r.Get("/export", insights.Export)
					}

					if s.services.Imports != nil {
						importHandler := handlers.NewImportHandler(s.services.Store, s.services.Imports)
						r.Post("/import/decklist", importHandler.ImportDecklist)
						r.Post("/import/csv", importHandler.ImportCSV)
						r.Post("/import/preview", importHandler.Preview)
					}
				})
			})

			if s.services.Imports != nil {
				importHandler := handlers.NewImportHandler(s.services.Store, s.services.Imports)
				r.Get("/imports/{jobID}", importHandler.GetJob)
				r.Delete("/imports/{jobID}", importHandler.CancelJob)
			}
		})
	})
}

func unavailable(what string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.ServiceUnavailable(w, errors.New(what+" not configured"))
	}
}
