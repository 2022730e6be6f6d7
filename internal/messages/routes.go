package messages

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Post("/conversations", StartConversationHandler)
	r.Get("/conversations", ListConversationsHandler)
	r.Get("/conversations/{id}", GetConversationHandler)
	r.Post("/conversations/{id}", PostMessageHandler)

	return r
}
