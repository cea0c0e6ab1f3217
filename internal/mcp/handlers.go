package mcp

import (
	"context"
	"fmt"
	"strings"

	"otc-analytics/internal/orders"
	"otc-analytics/internal/pipeline"
	"otc-analytics/internal/source"
	"otc-analytics/internal/stats"
	"otc-analytics/internal/visuals"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

const defaultStageLimit = 50

type stageOrder struct {
	Branch      string `json:"branch"`
	OrderNumber string `json:"order_number"`
	stats.StageResult
}

func (s *Server) handleListBranches(ctx context.Context, req *mcp.CallToolRequest, in ListBranchesInput) (*mcp.CallToolResult, any, error) {
	if in.Refresh {
		if _, err := s.data.Records(ctx, true); err != nil {
			return nil, nil, err
		}
	}
	branches, err := s.data.Branches(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s.formatResult(map[string]any{
		"batch":    s.data.Name(),
		"branches": branches,
	})
}

func (s *Server) handleGetOverview(ctx context.Context, req *mcp.CallToolRequest, in OverviewInput) (*mcp.CallToolResult, any, error) {
	q, err := query(in.Branch, in.Policy)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.data.Analyze(ctx, q)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("run", res.RunID).Str("branch", in.Branch).Str("policy", string(q.Policy)).Msg("Overview requested")

	out := map[string]any{
		"batch":   s.data.Name(),
		"run_id":  res.RunID,
		"policy":  s.policy(q),
		"summary": res.Summary,
	}
	if s.enableMermaidCharts || in.IncludeCharts {
		out["charts"] = visuals.Charts(res.Summary)
	}
	return s.formatResult(out)
}

func (s *Server) handleGetStageAnalysis(ctx context.Context, req *mcp.CallToolRequest, in StageInput) (*mcp.CallToolResult, any, error) {
	stage, err := orders.ParseStage(strings.TrimSpace(in.Stage))
	if err != nil {
		return nil, nil, err
	}
	filter := stats.Classification(strings.TrimSpace(in.Classification))
	if filter != "" && !validClassification(filter) {
		return nil, nil, fmt.Errorf("unknown classification %q", in.Classification)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultStageLimit
	}

	q, err := query(in.Branch, in.Policy)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.data.Analyze(ctx, q)
	if err != nil {
		return nil, nil, err
	}

	var matching []stageOrder
	total := 0
	for _, row := range res.Orders {
		sv := row.Stage(stage)
		if filter != "" && sv.Classification != filter {
			continue
		}
		total++
		if len(matching) < limit {
			matching = append(matching, stageOrder{Branch: row.Branch, OrderNumber: row.OrderNumber, StageResult: sv.StageResult})
		}
	}

	out := map[string]any{
		"run_id":         res.RunID,
		"stage":          stage,
		"label":          stage.Label(),
		"summary":        res.Summary.Stage(stage),
		"orders":         matching,
		"total_matching": total,
	}
	if s.enableMermaidCharts {
		out["visual_classification_pie"] = visuals.GenerateStagePie(res.Summary.Stage(stage))
	}
	return s.formatResult(out)
}

func (s *Server) handleGetOrder(ctx context.Context, req *mcp.CallToolRequest, in OrderInput) (*mcp.CallToolResult, any, error) {
	q, err := query("", in.Policy)
	if err != nil {
		return nil, nil, err
	}
	row, runID, err := s.findOrder(ctx, q, in.Branch, in.OrderNumber)
	if err != nil {
		return nil, nil, err
	}
	return s.formatResult(map[string]any{
		"run_id": runID,
		"policy": s.policy(q),
		"order":  row,
	})
}

func (s *Server) findOrder(ctx context.Context, q source.Query, branch, number string) (*pipeline.OrderRow, string, error) {
	res, err := s.data.Analyze(ctx, q)
	if err != nil {
		return nil, "", err
	}
	branch, number = strings.TrimSpace(branch), strings.TrimSpace(number)
	for i := range res.Orders {
		if res.Orders[i].Branch == branch && res.Orders[i].OrderNumber == number {
			return &res.Orders[i], res.RunID, nil
		}
	}
	return nil, "", fmt.Errorf("order %s not found", orders.Key{Branch: branch, OrderNumber: number})
}

// query builds the dataset query of a tool call; an empty policy keeps the server default.
func query(branch, policy string) (source.Query, error) {
	q := source.Query{Branch: strings.TrimSpace(branch)}
	if p := strings.TrimSpace(policy); p != "" {
		parsed, err := orders.ParsePolicy(p)
		if err != nil {
			return q, err
		}
		q.Policy = parsed
	}
	return q, nil
}

func (s *Server) policy(q source.Query) orders.StatusPolicy {
	if q.Policy != "" {
		return q.Policy
	}
	if p := s.data.Options().StatusPolicy; p != "" {
		return p
	}
	return orders.Independent
}

func validClassification(c stats.Classification) bool {
	for _, known := range stats.Classifications {
		if c == known {
			return true
		}
	}
	return false
}
