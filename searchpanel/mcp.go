package searchpanel

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/qmsearch/host"
	"github.com/hazyhaar/qmsearch/idgen"
	"github.com/hazyhaar/qmsearch/kit"
)

// RegisterMCP registers the panel tools on an MCP server.
func (p *Panel) RegisterMCP(srv *mcp.Server) {
	p.registerCollectTool(srv)
	p.registerTopicsTool(srv)
}

// logCall logs each tool call with its outcome and duration.
func (p *Panel) logCall(tool string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			attrs := []any{"tool", tool, "request_id", kit.GetRequestID(ctx), "duration", time.Since(start)}
			if err != nil {
				p.logger.WarnContext(ctx, "mcp: tool failed", append(attrs, "error", err)...)
			} else {
				p.logger.DebugContext(ctx, "mcp: tool call", attrs...)
			}
			return resp, err
		}
	}
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- collect ---

type collectRequest struct {
	Request host.Request `json:"request"`
	Topics  []string     `json:"topics,omitempty"`
	Format  string       `json:"format,omitempty"`
	Fresh   bool         `json:"fresh,omitempty"`
}

type collectResponse struct {
	RequestID string `json:"request_id"`
	Panels    []View `json:"panels,omitempty"`
	Text      string `json:"text,omitempty"`
}

func (p *Panel) registerCollectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "qmsearch_collect",
		Description: "Collect the search integration diagnostics for a host request and return the rendered panels.",
		InputSchema: inputSchema(map[string]any{
			"request": map[string]any{"type": "object", "description": "Host request: item, admin, searchable_types, settings, constants, seo, template_path"},
			"topics":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Topics to collect (default all)"},
			"format":  map[string]any{"type": "string", "enum": []any{"json", "text"}, "description": "Panel tree (json, default) or terminal tables (text)"},
			"fresh":   map[string]any{"type": "boolean", "description": "Bypass cached remote data"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*collectRequest)
		if r.Fresh {
			ctx = kit.WithForceFresh(ctx, true)
		}
		res, err := p.Collect(ctx, &r.Request, r.Topics...)
		if err != nil {
			return nil, err
		}
		views := p.Render(res)
		out := &collectResponse{RequestID: res.RequestID}
		if r.Format == "text" {
			var buf bytes.Buffer
			if err := WriteText(&buf, views); err != nil {
				return nil, err
			}
			out.Text = buf.String()
		} else {
			out.Panels = views
		}
		return out, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r collectRequest
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{
			Request: &r,
			EnrichCtx: func(ctx context.Context) context.Context {
				return kit.WithRequestID(ctx, idgen.New())
			},
		}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode, p.logCall(tool.Name))
}

// --- topics ---

func (p *Panel) registerTopicsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "qmsearch_topics",
		Description: "List the diagnostic topics in collection order.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return map[string]any{"topics": p.Topics()}, nil
	}

	decode := func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode, p.logCall(tool.Name))
}
