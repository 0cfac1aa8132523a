package delivery

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/chanyoung/vinum/app/vinumd/usecase/admin"
	"github.com/chanyoung/vinum/app/vinumd/usecase/state"
	"github.com/chanyoung/vinum/pkg/util/mlog"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// adminService adapts the admin handlers to http.
type adminService struct {
	h *admin.Handlers
}

// NewAdminService returns the http handlers of the admin commands.
func NewAdminService(h *admin.Handlers) AdminService {
	return &adminService{h: h}
}

// errorResponse is the body of a failed request.
type errorResponse struct {
	Error string `json:"error"`
}

func statusOf(err error) int {
	switch errors.Cause(err) {
	case admin.ErrInvalidKind, admin.ErrInvalidState:
		return http.StatusBadRequest
	case admin.ErrOutOfRange:
		return http.StatusNotFound
	case admin.ErrBusy, state.ErrExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		mlog.GetFunctionLogger(logger, "writeJSON").Error(err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// object parses the kind and index of the request path.
func object(r *http.Request) (admin.Kind, int, error) {
	vars := mux.Vars(r)

	kind, err := admin.ParseKind(vars["kind"])
	if err != nil {
		return 0, 0, err
	}

	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		return 0, 0, admin.ErrOutOfRange
	}

	return kind, index, nil
}

func force(r *http.Request) bool {
	f, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	return f
}

func (s *adminService) ListHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.h.List())
}

func (s *adminService) CreateHandler(w http.ResponseWriter, r *http.Request) {
	f, err := admin.ParseCreateFile(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.h.Create(f); err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, s.h.List())
}

func (s *adminService) GetHandler(w http.ResponseWriter, r *http.Request) {
	kind, index, err := object(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	obj, err := s.h.Get(kind, index)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	writeJSON(w, http.StatusOK, obj)
}

// respond writes the object after a successful command, or the error.
func (s *adminService) respond(w http.ResponseWriter, kind admin.Kind, index int, err error) {
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	obj, err := s.h.Get(kind, index)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func (s *adminService) StartHandler(w http.ResponseWriter, r *http.Request) {
	kind, index, err := object(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	s.respond(w, kind, index, s.h.Start(r.Context(), kind, index, force(r)))
}

func (s *adminService) StopHandler(w http.ResponseWriter, r *http.Request) {
	kind, index, err := object(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	s.respond(w, kind, index, s.h.Stop(kind, index, force(r)))
}

func (s *adminService) InitHandler(w http.ResponseWriter, r *http.Request) {
	kind, index, err := object(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	s.respond(w, kind, index, s.h.Init(r.Context(), kind, index, force(r)))
}

func (s *adminService) OpenHandler(w http.ResponseWriter, r *http.Request) {
	kind, index, err := object(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	s.respond(w, kind, index, s.h.Open(kind, index))
}

func (s *adminService) CloseHandler(w http.ResponseWriter, r *http.Request) {
	kind, index, err := object(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	s.respond(w, kind, index, s.h.Close(kind, index))
}

func (s *adminService) SetStateHandler(w http.ResponseWriter, r *http.Request) {
	kind, index, err := object(r)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	err = s.h.SetState(r.Context(), kind, index, mux.Vars(r)["state"], force(r))
	s.respond(w, kind, index, err)
}
