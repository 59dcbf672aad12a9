package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/roach88/reorder/internal/queryir"
	"github.com/roach88/reorder/internal/reorder"
)

// moveBody is the JSON body of a move request.
type moveBody struct {
	SourceID   int64  `json:"sourceId"`
	TargetID   *int64 `json:"targetId,omitempty"`
	Position   string `json:"position"`
	OrderField string `json:"orderField,omitempty"`
	ScopeField string `json:"scopeField,omitempty"`
	ScopeID    *int64 `json:"scopeId,omitempty"`
}

// rebalanceBody is the JSON body of a rebalance request. Filters are
// equality matches over external field names.
type rebalanceBody struct {
	OrderField string         `json:"orderField,omitempty"`
	OrderBy    string         `json:"orderBy,omitempty"`
	Direction  string         `json:"direction,omitempty"`
	Filters    map[string]any `json:"filters,omitempty"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var body moveBody
	if err := decodeBody(w, r, &body); err != nil {
		respondError(w, err)
		return
	}
	pos, err := reorder.ParsePosition(body.Position)
	if err != nil {
		respondError(w, err)
		return
	}

	req := reorder.MoveRequest{
		Table:      mux.Vars(r)["table"],
		SourceID:   body.SourceID,
		TargetID:   body.TargetID,
		Position:   pos,
		OrderField: body.OrderField,
	}
	switch {
	case body.ScopeID != nil:
		req.Scope = &reorder.Scope{Field: body.ScopeField, ID: *body.ScopeID}
	case body.ScopeField != "":
		respondError(w, reorder.InvalidArgumentf("scopeField requires scopeId"))
		return
	}

	res, err := s.engine.Move(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res.Payload())
}

func (s *Server) handleRebalance(w http.ResponseWriter, r *http.Request) {
	var body rebalanceBody
	if err := decodeBody(w, r, &body); err != nil {
		respondError(w, err)
		return
	}
	dir, err := queryir.ParseDirection(body.Direction)
	if err != nil {
		respondError(w, reorder.InvalidArgumentf("%v", err))
		return
	}
	filter, err := reorder.FilterFromMap(body.Filters)
	if err != nil {
		respondError(w, err)
		return
	}

	res, err := s.engine.Rebalance(r.Context(), reorder.RebalanceRequest{
		Table:      mux.Vars(r)["table"],
		OrderField: body.OrderField,
		OrderBy:    body.OrderBy,
		Direction:  dir,
		Filter:     filter,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res.Payload())
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	req, err := scanRequest(mux.Vars(r)["table"], r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := s.engine.Check(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res.Payload())
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	req, err := scanRequest(mux.Vars(r)["table"], r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}
	entries, err := s.engine.List(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"table": req.Table,
		"items": reorder.EntriesPayload(entries),
	})
}

// decodeBody decodes a JSON body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return reorder.InvalidArgumentf("invalid request body: %v", err)
	}
	return nil
}

func scanRequest(table string, q url.Values) (reorder.ScanRequest, error) {
	req := reorder.ScanRequest{
		Table:      table,
		OrderField: q.Get("orderField"),
	}
	if v := q.Get("scopeId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return req, reorder.InvalidArgumentf("invalid scopeId %q", v)
		}
		req.Scope = &reorder.Scope{Field: q.Get("scopeField"), ID: id}
	} else if q.Get("scopeField") != "" {
		return req, reorder.InvalidArgumentf("scopeField requires scopeId")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, reorder.InvalidArgumentf("invalid limit %q", v)
		}
		req.Limit = n
	}
	return req, nil
}
