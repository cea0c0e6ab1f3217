package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"otc-analytics/internal/orders"
	"otc-analytics/internal/pipeline"
	"otc-analytics/internal/source"
	"otc-analytics/internal/stats"
	"otc-analytics/internal/visuals"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/rs/zerolog/log"
)

const defaultOrderLimit = 100

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SummaryResponse is the body of /api/summary.
type SummaryResponse struct {
	RunID   string               `json:"run_id"`
	Summary pipeline.Summary     `json:"summary"`
	Charts  []visuals.NamedChart `json:"charts,omitempty"`
}

// StageResponse is the body of /api/stages/{stage}.
type StageResponse struct {
	RunID   string                `json:"run_id"`
	Label   string                `json:"label"`
	Summary pipeline.StageSummary `json:"summary"`
	Orders  []StageOrder          `json:"orders"`
}

// StageOrder is one order's result for a stage.
type StageOrder struct {
	Branch      string `json:"branch"`
	OrderNumber string `json:"order_number"`
	stats.StageResult
}

// OrdersResponse is the body of /api/orders.
type OrdersResponse struct {
	RunID  string              `json:"run_id"`
	Total  int                 `json:"total"`
	Orders []pipeline.OrderRow `json:"orders"`
}

func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}

func GetBranches(data Analyzer, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		branches, err := data.Branches(ctx)
		if err != nil {
			fail(w, r, http.StatusInternalServerError, err)
			return
		}
		render.JSON(w, r, map[string][]string{"branches": branches})
	}
}

func GetSummary(data Analyzer, timeout time.Duration, charts bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, ok := analyze(w, r, data, timeout)
		if !ok {
			return
		}
		resp := SummaryResponse{RunID: res.RunID, Summary: res.Summary}
		if charts || r.URL.Query().Get("charts") == "true" {
			resp.Charts = visuals.Charts(res.Summary)
		}
		render.JSON(w, r, resp)
	}
}

func GetStage(data Analyzer, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stage, err := orders.ParseStage(chi.URLParam(r, "stage"))
		if err != nil {
			fail(w, r, http.StatusNotFound, err)
			return
		}
		filter := stats.Classification(r.URL.Query().Get("classification"))

		res, ok := analyze(w, r, data, timeout)
		if !ok {
			return
		}

		resp := StageResponse{
			RunID:   res.RunID,
			Label:   stage.Label(),
			Summary: res.Summary.Stage(stage),
			Orders:  []StageOrder{},
		}
		for _, row := range res.Orders {
			sv := row.Stage(stage)
			if filter != "" && sv.Classification != filter {
				continue
			}
			resp.Orders = append(resp.Orders, StageOrder{Branch: row.Branch, OrderNumber: row.OrderNumber, StageResult: sv.StageResult})
		}
		render.JSON(w, r, resp)
	}
}

func GetOrders(data Analyzer, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultOrderLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				fail(w, r, http.StatusBadRequest, fmt.Errorf("invalid limit %q", s))
				return
			}
			limit = n
		}

		res, ok := analyze(w, r, data, timeout)
		if !ok {
			return
		}
		rows := res.Orders
		if len(rows) > limit {
			rows = rows[:limit]
		}
		render.JSON(w, r, OrdersResponse{RunID: res.RunID, Total: len(res.Orders), Orders: rows})
	}
}

func GetOrder(data Analyzer, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := orders.Key{Branch: chi.URLParam(r, "branch"), OrderNumber: chi.URLParam(r, "order")}
		policy, err := policyParam(r)
		if err != nil {
			fail(w, r, http.StatusBadRequest, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		res, err := data.Analyze(ctx, source.Query{Policy: policy})
		if err != nil {
			fail(w, r, http.StatusInternalServerError, err)
			return
		}
		for _, row := range res.Orders {
			if row.Branch == key.Branch && row.OrderNumber == key.OrderNumber {
				render.JSON(w, r, row)
				return
			}
		}
		fail(w, r, http.StatusNotFound, fmt.Errorf("order %s not found", key))
	}
}

func GetReport(data Analyzer, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := strings.ToLower(r.URL.Query().Get("format"))
		if format == "" {
			format = "html"
		}
		if format != "html" && format != "markdown" && format != "xlsx" {
			fail(w, r, http.StatusBadRequest, fmt.Errorf("unknown report format %q", format))
			return
		}

		res, ok := analyze(w, r, data, timeout)
		if !ok {
			return
		}

		opts := visuals.ReportOptions{Charts: true}
		switch format {
		case "markdown":
			w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
			w.Write([]byte(visuals.Markdown(res, opts)))
		case "xlsx":
			body, err := visuals.Workbook(res)
			if err != nil {
				fail(w, r, http.StatusInternalServerError, err)
				return
			}
			fileName := fmt.Sprintf("otc_%s.xlsx", time.Now().Format("2006-01-02_150405"))
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
			w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
			w.Write(body)
		default:
			var buf bytes.Buffer
			if err := visuals.HTML(&buf, res, opts); err != nil {
				fail(w, r, http.StatusInternalServerError, err)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(buf.Bytes())
		}
	}
}

// analyze runs one analysis narrowed by the branch and policy query parameters.
func analyze(w http.ResponseWriter, r *http.Request, data Analyzer, timeout time.Duration) (*pipeline.Result, bool) {
	policy, err := policyParam(r)
	if err != nil {
		fail(w, r, http.StatusBadRequest, err)
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	res, err := data.Analyze(ctx, source.Query{Branch: r.URL.Query().Get("branch"), Policy: policy})
	if err != nil {
		fail(w, r, http.StatusInternalServerError, err)
		return nil, false
	}
	return res, true
}

// policyParam reads ?policy=independent|sequential; absent keeps the server default.
func policyParam(r *http.Request) (orders.StatusPolicy, error) {
	s := strings.TrimSpace(r.URL.Query().Get("policy"))
	if s == "" {
		return "", nil
	}
	return orders.ParsePolicy(s)
}

func fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}
