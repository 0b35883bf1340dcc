package emulator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/yourusername/espinput-cli/internal/logging"
	"github.com/yourusername/espinput-cli/internal/models"
)

const DefaultAddr = "127.0.0.1:8266"

// NewRouter serves the device input API backed by store
func NewRouter(store *Store) *mux.Router {
	h := &handlers{store: store}

	r := mux.NewRouter()
	r.HandleFunc("/input", h.create).Methods(http.MethodPost)
	r.HandleFunc("/input", h.list).Methods(http.MethodGet)
	r.HandleFunc("/input/{id:[0-9]+}", h.get).Methods(http.MethodGet)
	r.HandleFunc("/input/{id:[0-9]+}", h.update).Methods(http.MethodPut)
	r.HandleFunc("/input/{id:[0-9]+}", h.delete).Methods(http.MethodDelete)
	r.Use(logRequests)
	return r
}

// Serve runs the emulator on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, store *Store) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(store),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("emulator stopped: %w", err)
	}
}

type handlers struct {
	store *Store
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Create(r.FormValue("message"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, rec)
}

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	inputs := h.store.List()
	writeEnvelope(w, http.StatusOK, models.ListPayload{
		Inputs: inputs,
		Count:  len(inputs),
	})
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.store.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, rec)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.store.Update(id, r.FormValue("message"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, rec)
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeEnvelope(w, http.StatusOK, models.MessageResult{Message: "Input deleted"})
}

// pathID reads the {id} route variable. Digit strings that overflow int
// name no input.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, ErrNotFound)
		return 0, false
	}
	return id, true
}

func writeEnvelope[T any](w http.ResponseWriter, code int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.NewEnvelope(code, data))
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ErrBlankMessage):
		code = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: err.Error()})
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("requestId", r.Header.Get("X-Request-ID")).
			Msg("emulator request")
		next.ServeHTTP(w, r)
	})
}
