// Package restapi exposes a data provider over HTTP with gorilla/mux.
package restapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/tidwall/gjson"

	"github.com/bitechdev/DataProvider/pkg/common"
	"github.com/bitechdev/DataProvider/pkg/entity"
	"github.com/bitechdev/DataProvider/pkg/logger"
	"github.com/bitechdev/DataProvider/pkg/provider"
	"github.com/bitechdev/DataProvider/pkg/query"
)

type handler[T entity.Entity] struct {
	p *provider.Provider[T]
}

// Register mounts the provider under /{path}:
//
//	GET    /{path}/{id}     GetFirst, optional columns=A,B
//	GET    /{path}          GetRecords, see parsePagination and parseFilters
//	POST   /{path}          Save for an object body, SaveMany for an array
//	DELETE /{path}/{id}     Delete
//	DELETE /{path}?ids=1,2  DeleteMany
func Register[T entity.Entity](router *mux.Router, path string, p *provider.Provider[T]) {
	h := &handler[T]{p: p}
	base := "/" + strings.Trim(path, "/")

	router.HandleFunc(base, h.list).Methods(http.MethodGet)
	router.HandleFunc(base, h.save).Methods(http.MethodPost)
	router.HandleFunc(base, h.deleteMany).Methods(http.MethodDelete)
	router.HandleFunc(base+"/{id}", h.get).Methods(http.MethodGet)
	router.HandleFunc(base+"/{id}", h.delete).Methods(http.MethodDelete)

	logger.Info("Registered %s on %s", p.Table(), base)
}

// RouteTemplate returns the matched route template, falling back to the
// request path. It keeps metric labels bounded.
func RouteTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func (h *handler[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(w, common.Fail[T](err.Error(), err))
		return
	}
	writeResponse(w, h.p.GetFirst(r.Context(), id, parseColumns(r.URL.Query())...))
}

func (h *handler[T]) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pg, err := parsePagination(q)
	if err != nil {
		writeResponse(w, common.Fail[any](err.Error(), err))
		return
	}
	conditions, err := parseFilters(h.p.Schema(), q)
	if err != nil {
		writeResponse(w, common.Fail[any](err.Error(), err))
		return
	}

	resp := h.p.GetRecords(r.Context(), pg, parseColumns(q), conditions)
	if resp.Is(provider.ErrNoRows) {
		// an empty page is not an HTTP error
		writeJSON(w, http.StatusOK, resp)
		return
	}
	writeResponse(w, resp)
}

func (h *handler[T]) save(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, common.Fail[any]("Request body too large", err))
			return
		}
		writeResponse(w, common.Fail[any](err.Error(), badRequest("read body: %v", err)))
		return
	}
	if !gjson.ValidBytes(body) {
		err := badRequest("body is not valid JSON")
		writeResponse(w, common.Fail[any](err.Error(), err))
		return
	}

	parsed := gjson.ParseBytes(body)
	switch {
	case parsed.IsArray():
		items := parsed.Array()
		list := make([]T, len(items))
		for i, item := range items {
			e, err := h.decode(item.Raw)
			if err != nil {
				writeResponse(w, common.Fail[any](err.Error(), err))
				return
			}
			list[i] = e
		}
		writeResponse(w, h.p.SaveMany(r.Context(), list, nil))
	case parsed.IsObject():
		e, err := h.decode(parsed.Raw)
		if err != nil {
			writeResponse(w, common.Fail[any](err.Error(), err))
			return
		}
		writeResponse(w, h.p.Save(r.Context(), e, nil))
	default:
		err := badRequest("body must be an object or an array of objects")
		writeResponse(w, common.Fail[any](err.Error(), err))
	}
}

func (h *handler[T]) decode(raw string) (T, error) {
	e := h.p.NewEntity()
	if err := json.Unmarshal([]byte(raw), e); err != nil {
		var zero T
		return zero, badRequest("decode %s: %v", h.p.Schema().Name, err)
	}
	return e, nil
}

func (h *handler[T]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(mux.Vars(r)["id"])
	if err != nil {
		writeResponse(w, common.Fail[bool](err.Error(), err))
		return
	}
	writeResponse(w, h.p.Delete(r.Context(), id, nil))
}

func (h *handler[T]) deleteMany(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		writeResponse(w, common.Fail[bool](err.Error(), err))
		return
	}
	writeResponse(w, h.p.DeleteMany(r.Context(), ids, nil))
}

func parseID(raw string) (int64, error) {
	ids, err := parseIDs(raw)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// statusOf maps a response onto an HTTP status
func statusOf[R any](resp common.Response[R]) int {
	switch {
	case resp.Correct:
		return http.StatusOK
	case resp.Is(provider.ErrNoRows):
		return http.StatusNotFound
	case resp.Is(ErrBadRequest),
		resp.Is(provider.ErrInvalidPrimaryKey),
		resp.Is(provider.ErrInvalidEntity),
		resp.Is(provider.ErrInvalidPagination),
		resp.Is(provider.ErrInvalidCondition),
		resp.Is(provider.ErrInvalidTransaction),
		resp.Is(provider.ErrUnknownColumn),
		resp.Is(query.ErrUnknownOperator):
		return http.StatusBadRequest
	case resp.Is(provider.ErrIncompleteSave), resp.Is(provider.ErrIncompleteDelete):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeResponse[R any](w http.ResponseWriter, resp common.Response[R]) {
	writeJSON(w, statusOf(resp), resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to write response: %v", err)
	}
}
