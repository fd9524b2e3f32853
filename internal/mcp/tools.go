package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/ariadne/internal/query"
	"github.com/mvp-joe/ariadne/internal/semantic"
)

// symbolPayload is the wire form of one symbol in tool responses.
type symbolPayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	Path string `json:"path"`
	File string `json:"file"`
	Line uint32 `json:"line"`
}

// locationPayload is the wire form of one reference site.
type locationPayload struct {
	File      string `json:"file"`
	StartLine uint32 `json:"start_line"`
	EndLine   uint32 `json:"end_line"`
}

func toSymbolPayload(sym query.Symbol) symbolPayload {
	return symbolPayload{
		ID:   int(sym.ID),
		Name: sym.Name,
		Kind: sym.Kind.String(),
		Path: sym.Path,
		File: sym.Location.File,
		Line: sym.Location.Span.StartLine,
	}
}

// AddDefinitionTool registers ariadne_definition: resolve the symbol
// under a file position.
func AddDefinitionTool(s *server.MCPServer, q *query.Index) {
	tool := mcp.NewTool(
		"ariadne_definition",
		mcp.WithDescription("Resolve the definition of the symbol at a byte offset in a source file. Returns the resolution state and target symbols; interface-typed call sites return every concrete implementation."),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Workspace-relative path of the source file")),
		mcp.WithNumber("offset",
			mcp.Required(),
			mcp.Description("Byte offset of the position to resolve")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createDefinitionHandler(q))
}

func createDefinitionHandler(q *query.Index) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		file, ok := args["file"].(string)
		if !ok || file == "" {
			return mcp.NewToolResultError("file parameter is required"), nil
		}
		offset, ok := args["offset"].(float64)
		if !ok || offset < 0 {
			return mcp.NewToolResultError("offset parameter is required"), nil
		}

		def, err := q.DefinitionAt(file, uint32(offset))
		if errors.Is(err, query.ErrUnknownFile) || errors.Is(err, query.ErrNoSymbol) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err != nil {
			return nil, fmt.Errorf("definition lookup failed: %w", err)
		}

		payload := struct {
			State   string          `json:"state"`
			Symbols []symbolPayload `json:"symbols"`
		}{State: def.State.String()}
		for _, sym := range def.Symbols {
			payload.Symbols = append(payload.Symbols, toSymbolPayload(sym))
		}
		return jsonResult(payload)
	}
}

// AddReferencesTool registers ariadne_references: list the use-sites of
// a symbol.
func AddReferencesTool(s *server.MCPServer, q *query.Index) {
	tool := mcp.NewTool(
		"ariadne_references",
		mcp.WithDescription("List every reference resolving to a symbol, identified by its id from a previous ariadne_definition or ariadne_search call."),
		mcp.WithNumber("symbol",
			mcp.Required(),
			mcp.Description("Symbol id")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createReferencesHandler(q))
}

func createReferencesHandler(q *query.Index) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		id, ok := args["symbol"].(float64)
		if !ok {
			return mcp.NewToolResultError("symbol parameter is required"), nil
		}

		refs := q.ReferencesOf(semantic.GlobalID(id))
		payload := struct {
			References []locationPayload `json:"references"`
			Total      int               `json:"total"`
		}{Total: len(refs)}
		for _, ref := range refs {
			payload.References = append(payload.References, locationPayload{
				File:      ref.File,
				StartLine: ref.Span.StartLine,
				EndLine:   ref.Span.EndLine,
			})
		}
		return jsonResult(payload)
	}
}

// AddImplementationsTool registers ariadne_implementations: list the
// impl blocks implementing an interface.
func AddImplementationsTool(s *server.MCPServer, q *query.Index) {
	tool := mcp.NewTool(
		"ariadne_implementations",
		mcp.WithDescription("List every implementation of an interface symbol, including implementations reached through supertrait edges."),
		mcp.WithNumber("symbol",
			mcp.Required(),
			mcp.Description("Interface symbol id")),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createImplementationsHandler(q))
}

func createImplementationsHandler(q *query.Index) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		id, ok := args["symbol"].(float64)
		if !ok {
			return mcp.NewToolResultError("symbol parameter is required"), nil
		}

		impls := q.ImplementationsOf(semantic.GlobalID(id))
		payload := struct {
			Implementations []symbolPayload `json:"implementations"`
			Total           int             `json:"total"`
		}{Total: len(impls)}
		for _, impl := range impls {
			payload.Implementations = append(payload.Implementations, toSymbolPayload(impl))
		}
		return jsonResult(payload)
	}
}

// AddSearchTool registers ariadne_search: fuzzy symbol search.
func AddSearchTool(s *server.MCPServer, search *query.Search) {
	tool := mcp.NewTool(
		"ariadne_search",
		mcp.WithDescription("Search workspace symbols by name or qualified path. Matches exact names, prefixes, and close misspellings."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Symbol name or path fragment")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum results (default: %d)", query.DefaultSearchLimit))),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(tool, createSearchHandler(search))
}

func createSearchHandler(search *query.Search) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, ok := request.Params.Arguments.(map[string]interface{})
		if !ok {
			return mcp.NewToolResultError("invalid arguments format"), nil
		}
		term, ok := args["query"].(string)
		if !ok || term == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		limit := 0
		if raw, ok := args["limit"].(float64); ok {
			limit = int(raw)
		}

		hits, err := search.Find(ctx, term, limit)
		if err != nil {
			return nil, fmt.Errorf("symbol search failed: %w", err)
		}

		payload := struct {
			Symbols []symbolPayload `json:"symbols"`
			Total   int             `json:"total"`
		}{Total: len(hits)}
		for _, hit := range hits {
			payload.Symbols = append(payload.Symbols, toSymbolPayload(hit))
		}
		return jsonResult(payload)
	}
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
