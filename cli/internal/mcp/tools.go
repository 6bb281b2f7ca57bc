package mcp

import (
	"context"

	"github.com/zhaobenny/mpvwatch/internal/aggregator"
	"github.com/zhaobenny/mpvwatch/internal/export"
	"github.com/zhaobenny/mpvwatch/internal/model"
)

const pathsKey = "paths"

var badgeSchema = map[string]interface{}{
	"type":        "string",
	"description": "Associate badge (employee) id",
}

type lookupTool struct{ s *Server }

type lookupPayload struct {
	BadgeID string                    `json:"badge_id"`
	Summary aggregator.Summary        `json:"summary"`
	Status  string                    `json:"status"`
	Entries []model.ConsolidatedEntry `json:"entries"`
}

func (t *lookupTool) Name() string { return "lookup_associate" }

func (t *lookupTool) Description() string {
	return "Fetch an associate's activity for the current shift, consolidated per path, with indirect time totals."
}

func (t *lookupTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"badge_id": badgeSchema},
		"required":   []string{"badge_id"},
	}
}

func (t *lookupTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	badge, err := stringArg(args, "badge_id")
	if err != nil {
		return nil, err
	}

	res, err := t.s.deps.Fetcher.FetchTimeDetails(ctx, badge)
	t.s.persist(res.Refreshed)
	if err != nil {
		return nil, err
	}

	entries := t.s.deps.Consolidator.Consolidate(res.Details.Sessions)
	summary := aggregator.Summarize(res.Details, entries)
	return lookupPayload{
		BadgeID: badge,
		Summary: summary,
		Status:  t.s.deps.Evaluator.IndirectStatus(summary.IndirectHours()),
		Entries: entries,
	}, nil
}

type checkRiskTool struct{ s *Server }

func (t *checkRiskTool) Name() string { return "check_mpv_risk" }

func (t *checkRiskTool) Description() string {
	return "Check whether assigning an associate to a restricted-path work code would be a multiple-path violation or exceed the time limit."
}

func (t *checkRiskTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"badge_id": badgeSchema,
			"work_code": map[string]interface{}{
				"type":        "string",
				"description": "Work code of the proposed assignment, e.g. CREOL or VRWS",
			},
		},
		"required": []string{"badge_id", "work_code"},
	}
}

func (t *checkRiskTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	badge, err := stringArg(args, "badge_id")
	if err != nil {
		return nil, err
	}
	code, err := stringArg(args, "work_code")
	if err != nil {
		return nil, err
	}

	res, err := t.s.deps.Fetcher.FetchTimeDetails(ctx, badge)
	t.s.persist(res.Refreshed)
	if err != nil {
		return nil, err
	}
	return t.s.deps.Evaluator.Evaluate(res.Details.Sessions, code), nil
}

type syncPathsTool struct{ s *Server }

type pathsPayload struct {
	Rows   []export.PathRow `json:"rows"`
	Errors []string         `json:"errors,omitempty"`
	Total  int              `json:"total"`
	Cached bool             `json:"cached"`
}

func (t *syncPathsTool) Name() string { return "sync_paths" }

func (t *syncPathsTool) Description() string {
	return "List every associate on a restricted path this shift with hours and status. Results are cached for two minutes."
}

func (t *syncPathsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"refresh": map[string]interface{}{
				"type":        "boolean",
				"description": "Bypass the cache",
			},
		},
	}
}

func (t *syncPathsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	if refresh, _ := args["refresh"].(bool); !refresh {
		if p, ok := t.s.paths.GetIfPresent(pathsKey); ok {
			p.Cached = true
			return p, nil
		}
	}

	res, err := t.s.deps.Fetcher.FetchPathSummary(ctx)
	t.s.persist(res.Refreshed)
	if err != nil {
		return nil, err
	}

	p := pathsPayload{
		Rows:   export.PathRows(res.PathSummary, t.s.deps.Policy, t.s.deps.Evaluator),
		Errors: res.Errors,
		Total:  res.Total(),
	}
	t.s.paths.Set(pathsKey, p)
	return p, nil
}

type testConnectionTool struct{ s *Server }

func (t *testConnectionTool) Name() string { return "test_connection" }

func (t *testConnectionTool) Description() string {
	return "Check that the saved session cookie can reach the labor portal."
}

func (t *testConnectionTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *testConnectionTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	res := t.s.deps.Fetcher.TestConnection(ctx)
	t.s.persist(res.Refreshed)
	return map[string]interface{}{"ok": res.OK, "message": res.Message}, nil
}
