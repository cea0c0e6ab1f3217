package mcp

import (
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListBranchesInput are the arguments of list_branches.
type ListBranchesInput struct {
	Refresh bool `json:"refresh,omitempty" jsonschema:"Reload the batch from its source before answering."`
}

// OverviewInput are the arguments of get_overview.
type OverviewInput struct {
	Branch        string `json:"branch,omitempty" jsonschema:"Branch id. Empty or 'all' covers every branch."`
	IncludeCharts bool   `json:"include_charts,omitempty" jsonschema:"Attach Mermaid charts to the answer."`
	Policy        string `json:"policy,omitempty" jsonschema:"Milestone status policy: independent, or sequential to count a milestone only after its predecessor. Default: server setting."`
}

// StageInput are the arguments of get_stage_analysis.
type StageInput struct {
	Stage          string `json:"stage" jsonschema:"One of created_to_shipment, shipment_to_item_prep, item_prep_to_invoice, invoice_to_title."`
	Branch         string `json:"branch,omitempty" jsonschema:"Branch id. Empty or 'all' covers every branch."`
	Classification string `json:"classification,omitempty" jsonschema:"Only list orders with this classification: within_baseline, exceeds_baseline or insufficient_data."`
	Limit          int    `json:"limit,omitempty" jsonschema:"Maximum number of orders to list (default 50)."`
	Policy         string `json:"policy,omitempty" jsonschema:"Milestone status policy: independent or sequential. Default: server setting."`
}

// OrderInput are the arguments of get_order.
type OrderInput struct {
	Branch      string `json:"branch" jsonschema:"Branch id of the order."`
	OrderNumber string `json:"order_number" jsonschema:"Order number within the branch."`
	Policy      string `json:"policy,omitempty" jsonschema:"Milestone status policy: independent or sequential. Default: server setting."`
}

func (s *Server) registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_branches",
		Description: "List the branch ids present in the loaded order batch.",
		InputSchema: schemaFor[ListBranchesInput](),
	}, s.handleListBranches)

	mcp.AddTool(server, &mcp.Tool{
		Name: "get_overview",
		Description: "Summarize the order-to-cash cycle: milestone completion, per-stage classification against the rolling baseline, " +
			"data-quality alerts, situation distributions and product breakdowns.",
		InputSchema: schemaFor[OverviewInput](),
	}, s.handleGetOverview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_stage_analysis",
		Description: "Detail one stage: durations in hours, baselines, classifications and the reasons for insufficient data, per order.",
		InputSchema: schemaFor[StageInput](),
	}, s.handleGetStageAnalysis)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_order",
		Description: "Return the reconciled timeline, stage classifications and resolved situations of one order.",
		InputSchema: schemaFor[OrderInput](),
	}, s.handleGetOrder)
}

func schemaFor[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic(err)
	}
	return schema
}
