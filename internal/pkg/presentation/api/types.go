package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/diwise/iot-light-monitoring/internal/pkg/infrastructure/repositories/database"
)

const defaultLimit int = 100

type meta struct {
	Count  int  `json:"count"`
	Offset *int `json:"offset,omitempty"`
	Limit  *int `json:"limit,omitempty"`
}

type ApiResponse struct {
	Meta *meta `json:"meta,omitempty"`
	Data any   `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func collection[T any](items []T, offset, limit int) ApiResponse {
	m := &meta{Count: len(items)}
	if offset > 0 {
		m.Offset = &offset
	}
	if limit > 0 {
		m.Limit = &limit
	}
	return ApiResponse{Meta: m, Data: items}
}

// pagingFromQuery reads offset and limit, falling back to the default page size.
func pagingFromQuery(q url.Values) (offset, limit int, err error) {
	limit = defaultLimit

	if s := q.Get("offset"); s != "" {
		offset, err = strconv.Atoi(s)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", s)
		}
	}

	if s := q.Get("limit"); s != "" {
		limit, err = strconv.Atoi(s)
		if err != nil || limit <= 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", s)
		}
	}

	return offset, limit, nil
}

func conditionsFromQuery(q url.Values) ([]database.ConditionFunc, int, int, error) {
	offset, limit, err := pagingFromQuery(q)
	if err != nil {
		return nil, 0, 0, err
	}

	conditions := []database.ConditionFunc{database.WithOffset(offset), database.WithLimit(limit)}

	var from, to time.Time

	if s := q.Get("from"); s != "" {
		from, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("invalid from %q", s)
		}
	}

	if s := q.Get("to"); s != "" {
		to, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("invalid to %q", s)
		}
	}

	if !from.IsZero() || !to.IsZero() {
		conditions = append(conditions, database.WithTimeRange(from, to))
	}

	switch q.Get("order") {
	case "", "desc":
	case "asc":
		conditions = append(conditions, database.WithAscendingOrder())
	default:
		return nil, 0, 0, fmt.Errorf("invalid order %q", q.Get("order"))
	}

	return conditions, offset, limit, nil
}
