// Package mcpserver exposes the screenshot operation as an MCP tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/patrickjm/pageshot/internal/action"
	"github.com/patrickjm/pageshot/internal/shot"
)

const (
	Name     = "screenshot-mcp"
	ToolName = "screenshot"
)

type Screenshotter interface {
	Handle(ctx context.Context, req shot.Request) (shot.Result, error)
}

type ToolInput struct {
	URL      string       `json:"url" jsonschema:"The localhost URL to screenshot (e.g. http://localhost:3000)"`
	Width    int          `json:"width,omitempty" jsonschema:"Viewport width (default: 1280)"`
	Height   int          `json:"height,omitempty" jsonschema:"Viewport height (default: 720)"`
	FullPage bool         `json:"fullPage,omitempty" jsonschema:"Capture full page (default: false)"`
	Actions  []ToolAction `json:"actions,omitempty" jsonschema:"Optional sequence of actions to perform before taking screenshot"`
}

type ToolAction struct {
	Type     string `json:"type" jsonschema:"Type of action to perform"`
	Selector string `json:"selector,omitempty" jsonschema:"CSS selector, XPath (starts with //), or text selector (text=...)"`
	Value    string `json:"value,omitempty" jsonschema:"Value for type actions or scroll amount"`
	Timeout  *int   `json:"timeout,omitempty" jsonschema:"Timeout in milliseconds for wait actions (default: 1000)"`
}

func (in ToolInput) Request() shot.Request {
	req := shot.Request{URL: in.URL, Width: in.Width, Height: in.Height, FullPage: in.FullPage}
	for _, a := range in.Actions {
		req.Actions = append(req.Actions, action.Spec{Type: a.Type, Selector: a.Selector, Value: a.Value, Timeout: a.Timeout})
	}
	return req
}

func NewServer(s Screenshotter, version string) (*mcp.Server, error) {
	srv := mcp.NewServer(&mcp.Implementation{Name: Name, Version: version}, &mcp.ServerOptions{
		Instructions: "Take screenshots of locally served pages, optionally after scripted click/type/wait/scroll/hover actions.",
	})
	if err := Register(srv, s); err != nil {
		return nil, err
	}
	return srv, nil
}

func Register(srv *mcp.Server, s Screenshotter) error {
	schema, err := inputSchema()
	if err != nil {
		return fmt.Errorf("screenshot tool schema: %w", err)
	}
	tool := &mcp.Tool{
		Name:        ToolName,
		Description: "Take a screenshot of a localhost URL with optional pre-screenshot interactions",
		InputSchema: schema,
	}
	mcp.AddTool(srv, tool, func(ctx context.Context, _ *mcp.CallToolRequest, in ToolInput) (*mcp.CallToolResult, any, error) {
		res, err := s.Handle(ctx, in.Request())
		if err != nil {
			return errorResult(err), nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: res.Summary},
				&mcp.ImageContent{Data: res.Image, MIMEType: res.MIMEType},
			},
		}, nil, nil
	})
	return nil
}

// inputSchema is inferred from ToolInput, then given the enum and defaults
// the struct tags cannot express.
func inputSchema() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[ToolInput](nil)
	if err != nil {
		return nil, err
	}
	props := schema.Properties
	if props == nil || props["actions"] == nil || props["actions"].Items == nil {
		return nil, errors.New("unexpected schema shape")
	}
	props["width"].Default = json.RawMessage("1280")
	props["height"].Default = json.RawMessage("720")
	props["fullPage"].Default = json.RawMessage("false")
	item := props["actions"].Items
	item.Properties["type"].Enum = []any{
		string(action.Click), string(action.Type), string(action.Wait), string(action.Scroll), string(action.Hover),
	}
	item.Properties["timeout"].Default = json.RawMessage("1000")
	return schema, nil
}

func errorResult(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}
