package searchpanel

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testImpl = &mcp.Implementation{Name: "qmsearch-test", Version: "0.1.0"}

// mcpSession registers the panel tools and returns a connected client
// session that can call tools end-to-end.
func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	p := testPanel(t, &stubSource{})

	srv := mcp.NewServer(testImpl, nil)
	p.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()

	go func() {
		_ = srv.Run(ctx, serverT)
	}()

	client := mcp.NewClient(testImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// callTool invokes a tool and returns the JSON text from the first TextContent.
func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if len(result.Content) == 0 {
		t.Fatalf("CallTool(%s): empty content", name)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, result.Content[0])
	}
	return tc.Text, result.IsError
}

func TestMCP_Topics(t *testing.T) {
	session := mcpSession(t)
	text, isErr := callTool(t, session, "qmsearch_topics", map[string]any{})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var out struct {
		Topics []string `json:"topics"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatal(err)
	}
	if strings.Join(out.Topics, ",") != "status,index-settings,constants" {
		t.Errorf("topics = %v", out.Topics)
	}
}

func TestMCP_Collect(t *testing.T) {
	session := mcpSession(t)
	text, isErr := callTool(t, session, "qmsearch_collect", map[string]any{
		"request": map[string]any{
			"constants": map[string]any{"ALGOLIA_INDEX_NAME_PREFIX": "wp_"},
		},
		"topics": []string{"constants"},
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var out collectResponse
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatal(err)
	}
	if out.RequestID == "" || len(out.Panels) != 1 {
		t.Fatalf("out = %+v", out)
	}
	rows := out.Panels[0].Sections[0].Tables[0].Rows
	if len(rows) != 2 {
		t.Errorf("rows = %v", rows)
	}
}

func TestMCP_CollectText(t *testing.T) {
	session := mcpSession(t)
	text, isErr := callTool(t, session, "qmsearch_collect", map[string]any{
		"topics": []string{"status"},
		"format": "text",
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var out collectResponse
	json.Unmarshal([]byte(text), &out)
	if !strings.Contains(out.Text, "API is reachable?") {
		t.Errorf("text = %q", out.Text)
	}
}

func TestMCP_CollectUnknownTopic(t *testing.T) {
	session := mcpSession(t)
	text, isErr := callTool(t, session, "qmsearch_collect", map[string]any{"topics": []string{"nope"}})
	if !isErr || !strings.Contains(text, "unknown topic") {
		t.Errorf("isErr=%v text=%q", isErr, text)
	}
}
