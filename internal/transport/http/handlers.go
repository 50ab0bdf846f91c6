package httptransport

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"idsearch/internal/blob"
	"idsearch/internal/core"
	"idsearch/internal/report"
	"idsearch/pkg/domain"
)

const maxBodyBytes = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type lookupRequest struct {
	Scheme string   `json:"scheme"`
	Center string   `json:"center"`
	Values []string `json:"values"`
	Export bool     `json:"export"`
}

type lookupResponse struct {
	Participants []core.Projection `json:"participants"`
	Artifact     *blob.Info        `json:"artifact,omitempty"`
}

type batchRequest struct {
	Columns []string   `json:"columns"`
	Rows    []core.Row `json:"rows"`
	Schemes []string   `json:"schemes"`
	Center  string     `json:"center"`
	Export  bool       `json:"export"`
}

type batchResult struct {
	Row          int             `json:"row"`
	ConsortiumID core.Resolution `json:"consortium_id"`
}

type batchResponse struct {
	Results  []batchResult     `json:"results"`
	Stats    report.BatchStats `json:"stats"`
	Artifact *blob.Info        `json:"artifact,omitempty"`
}

type aliasRequest struct {
	Alias string `json:"alias"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, blob.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict), errors.Is(err, blob.ErrExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, blob.ErrInvalidKey), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		msg = http.StatusText(status)
	} else {
		hlog.FromRequest(r).Warn().Err(err).Int("status", status).Msg("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func wantsCSV(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/csv") || r.URL.Query().Get("format") == "csv"
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleCenters(w http.ResponseWriter, r *http.Request) {
	centers, err := h.registry.ListCenters(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, centers)
}

func (h *Handler) handleSchemes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.registry.Schemes().Names())
}

// parseLookup accepts query parameters, a form (index/center/value as posted
// by the lookup page) or a JSON body.
func parseLookup(r *http.Request) (lookupRequest, error) {
	var req lookupRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if r.Method == http.MethodPost && mediaType == "application/json" {
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			return req, badRequest("decode body: %v", err)
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, badRequest("parse form: %v", err)
		}
		req.Scheme = r.Form.Get("scheme")
		if req.Scheme == "" {
			req.Scheme = r.Form.Get("index")
		}
		req.Center = r.Form.Get("center")
		req.Values = r.Form["value"]
		req.Export, _ = strconv.ParseBool(r.Form.Get("export"))
	}
	if req.Scheme == "" {
		req.Scheme = core.SchemeCanonical
	}
	if len(req.Values) == 0 {
		return req, badRequest("at least one value is required")
	}
	return req, nil
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	req, err := parseLookup(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	seen := make(map[string]struct{})
	var found []core.Participant
	for _, value := range req.Values {
		participants, err := h.registry.Resolve(ctx, value, req.Scheme, req.Center)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		for _, p := range participants {
			if _, dup := seen[p.ConsortiumID]; dup {
				continue
			}
			seen[p.ConsortiumID] = struct{}{}
			found = append(found, p)
		}
	}
	centers, err := h.registry.ListCenters(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	rows := report.Projections(found, report.CenterNames(centers))
	if wantsCSV(r) {
		w.Header().Set("Content-Type", "text/csv")
		if err := report.WriteParticipants(w, rows); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write csv")
		}
		return
	}
	resp := lookupResponse{Participants: rows}
	if resp.Participants == nil {
		resp.Participants = []core.Projection{}
	}
	if req.Export && h.publisher != nil {
		info, err := h.publisher.PublishParticipants(ctx, report.LookupKey, rows)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp.Artifact = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseBatch accepts a CSV body with schemes and center as query parameters,
// or a JSON body.
func parseBatch(r *http.Request) (batchRequest, error) {
	var req batchRequest
	body := io.LimitReader(r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "text/csv":
		table, err := report.ReadTable(body)
		if err != nil {
			return req, badRequest("%v", err)
		}
		q := r.URL.Query()
		req = batchRequest{Columns: table.Columns, Rows: table.Rows, Schemes: q["scheme"], Center: q.Get("center")}
		req.Export, _ = strconv.ParseBool(q.Get("export"))
	case "application/json", "":
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return req, badRequest("decode body: %v", err)
		}
	default:
		return req, badRequest("unsupported content type %q", mediaType)
	}
	if len(req.Columns) == 0 {
		return req, badRequest("at least one column is required")
	}
	return req, nil
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	req, err := parseBatch(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ctx := r.Context()
	table := core.Table{Columns: req.Columns, Rows: req.Rows}
	seq, err := h.registry.ResolveBatch(ctx, table, req.Schemes, req.Center)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resolutions, stats, err := report.Collect(seq)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if wantsCSV(r) {
		var buf bytes.Buffer
		if _, err := report.WriteBatch(&buf, table, report.Replay(resolutions)); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		_, _ = buf.WriteTo(w)
		return
	}
	resp := batchResponse{Results: make([]batchResult, 0, len(resolutions)), Stats: stats}
	for _, res := range resolutions {
		resp.Results = append(resp.Results, batchResult{Row: res.Row, ConsortiumID: res})
	}
	if req.Export && h.publisher != nil {
		info, _, err := h.publisher.PublishBatch(ctx, h.publisher.BatchKey(), table, report.Replay(resolutions))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp.Artifact = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleParticipant(w http.ResponseWriter, r *http.Request) {
	h.respondParticipant(w, r, http.StatusOK, chi.URLParam(r, "consortiumID"))
}

func (h *Handler) respondParticipant(w http.ResponseWriter, r *http.Request, status int, consortiumID string) {
	ctx := r.Context()
	p, err := h.registry.Participant(ctx, consortiumID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	centers, err := h.registry.ListCenters(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, status, core.ProjectParticipant(p, report.CenterNames(centers)[p.CenterID]))
}

func (h *Handler) handleAddAlias(w http.ResponseWriter, r *http.Request) {
	var req aliasRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, r, badRequest("decode body: %v", err))
		return
	}
	if req.Alias == "" {
		h.writeError(w, r, badRequest("alias is required"))
		return
	}
	alias, _, err := h.registry.RegisterAlias(r.Context(), chi.URLParam(r, "consortiumID"), req.Alias)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, alias)
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request) {
	p, _, err := h.registry.PromoteAlias(r.Context(), chi.URLParam(r, "alias"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respondParticipant(w, r, http.StatusOK, p.ConsortiumID)
}

func (h *Handler) handleReports(w http.ResponseWriter, r *http.Request) {
	infos, err := h.publisher.Store().List(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if infos == nil {
		infos = []blob.Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	info, body, err := h.publisher.Store().Get(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer body.Close()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.ETag != "" {
		w.Header().Set("ETag", strconv.Quote(info.ETag))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("stream report")
	}
}
