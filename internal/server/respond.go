package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"coinforge/internal/loop"
)

const maxBodyBytes = 1 << 16

func decode[T any](body io.Reader) (T, error) {
	var payload T
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		return payload, fmt.Errorf("decode body: %w", err)
	}
	return payload, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func loopStatus(err error) int {
	if errors.Is(err, loop.ErrLoopStopped) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
