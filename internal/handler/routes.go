package handler

import "net/http"

// Routes registers every API route on a fresh mux. The search route is
// registered before the {id} routes so it is never captured as an ID.
func Routes(items *ItemHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", items.HealthCheck)

	mux.HandleFunc("GET /api/items", items.ListItems)
	mux.HandleFunc("POST /api/items", items.CreateItem)
	mux.HandleFunc("GET /api/items/search", items.SearchItems) // Must come before {id} route
	mux.HandleFunc("GET /api/items/{id}", items.GetItem)
	mux.HandleFunc("PATCH /api/items/{id}", items.UpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", items.DeleteItem)
	mux.HandleFunc("POST /api/items/{id}/move", items.MoveItem)
	mux.HandleFunc("GET /api/items/{id}/versions", items.ListVersions)
	mux.HandleFunc("POST /api/items/{id}/versions", items.SnapshotItem)

	return mux
}
