package delivery

import (
	"net/http"

	"github.com/gorilla/mux"
)

const objectPath = "/{kind}/{index:-?[0-9]+}"

func makeHandler(as AdminService) http.Handler {
	r := mux.NewRouter()

	// API routers.
	ar := r.PathPrefix("/v1").Subrouter()
	or := ar.PathPrefix(objectPath).Subrouter()

	// Configuration request handlers.
	ar.Path("/config").Methods("GET").HandlerFunc(as.ListHandler)
	ar.Path("/create").Methods("POST").HandlerFunc(as.CreateHandler)

	// Object request handlers.
	ar.Path(objectPath).Methods("GET").HandlerFunc(as.GetHandler)
	or.Path("/start").Methods("PUT").HandlerFunc(as.StartHandler)
	or.Path("/stop").Methods("PUT").HandlerFunc(as.StopHandler)
	or.Path("/init").Methods("PUT").HandlerFunc(as.InitHandler)
	or.Path("/open").Methods("PUT").HandlerFunc(as.OpenHandler)
	or.Path("/close").Methods("PUT").HandlerFunc(as.CloseHandler)
	or.Path("/state/{state}").Methods("PUT").HandlerFunc(as.SetStateHandler)

	return r
}
