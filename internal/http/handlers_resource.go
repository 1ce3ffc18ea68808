package http

import (
	"net/http"

	applog "finanzas/internal/log"
	"finanzas/internal/services"
)

// resource serves the five CRUD routes of one entity. Every call is scoped
// to the caller's user id.
type resource[T services.Record] struct {
	name string
	svc  *services.Service[T]
	// list replaces the plain listing when set.
	list http.HandlerFunc
}

// mountResource registers GET|POST /{name} and GET|PUT|DELETE /{name}/{id}.
func mountResource[T services.Record](mux *http.ServeMux, name string, svc *services.Service[T], list http.HandlerFunc) {
	h := resource[T]{name: name, svc: svc, list: list}
	if h.list == nil {
		h.list = h.handleList
	}
	mux.HandleFunc("GET /"+name, h.list)
	mux.HandleFunc("POST /"+name, h.handleCreate)
	mux.HandleFunc("GET /"+name+"/{id}", h.handleGet)
	mux.HandleFunc("PUT /"+name+"/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /"+name+"/{id}", h.handleDelete)
}

func (h resource[T]) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), callerID(r).UserID)
	if err != nil {
		writeError(w, r, applog.OpList, err, "failed to list "+h.name)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h resource[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err, "")
		return
	}
	item, err := h.svc.Get(r.Context(), callerID(r).UserID, id)
	if err != nil {
		writeError(w, r, applog.OpRead, err, "failed to load "+h.svc.Resource())
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h resource[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err, "")
		return
	}
	var v T
	if err := decodeInto(body, &v); err != nil {
		writeError(w, r, applog.OpCreate, err, "")
		return
	}
	created, err := h.svc.Create(r.Context(), callerID(r).UserID, v)
	if err != nil {
		writeError(w, r, applog.OpCreate, err, "failed to create "+h.svc.Resource())
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdate applies the body as a partial update: fields it omits keep
// their stored value.
func (h resource[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err, "")
		return
	}
	body, err := readBody(w, r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err, "")
		return
	}
	updated, err := h.svc.Update(r.Context(), callerID(r).UserID, id, func(v *T) error {
		return decodeInto(body, v)
	})
	if err != nil {
		writeError(w, r, applog.OpUpdate, err, "failed to update "+h.svc.Resource())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h resource[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err, "")
		return
	}
	if err := h.svc.Delete(r.Context(), callerID(r).UserID, id); err != nil {
		writeError(w, r, applog.OpDelete, err, "failed to delete "+h.svc.Resource())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
