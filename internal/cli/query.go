package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/ariadne/internal/config"
	"github.com/mvp-joe/ariadne/internal/query"
	"github.com/mvp-joe/ariadne/internal/semantic"
	"github.com/mvp-joe/ariadne/internal/storage"
	"github.com/mvp-joe/ariadne/internal/symtab"
)

var searchLimitFlag int

// symbolJSON is the printable form of one symbol.
type symbolJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
	Path string `json:"path"`
	File string `json:"file"`
	Line uint32 `json:"line"`
}

// locationJSON is the printable form of one reference site.
type locationJSON struct {
	File      string `json:"file"`
	StartLine uint32 `json:"start_line"`
	EndLine   uint32 `json:"end_line"`
}

func toSymbolJSON(syms []query.Symbol) []symbolJSON {
	out := make([]symbolJSON, 0, len(syms))
	for _, sym := range syms {
		out = append(out, symbolJSON{
			ID:   int(sym.ID),
			Name: sym.Name,
			Kind: sym.Kind.String(),
			Path: sym.Path,
			File: sym.Location.File,
			Line: sym.Location.Span.StartLine,
		})
	}
	return out
}

func toLocationJSON(refs []query.Location) []locationJSON {
	out := make([]locationJSON, 0, len(refs))
	for _, ref := range refs {
		out = append(out, locationJSON{
			File:      ref.File,
			StartLine: ref.Span.StartLine,
			EndLine:   ref.Span.EndLine,
		})
	}
	return out
}

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query a built index",
	Long: `Query answers definition, reference, implementation, and search
requests against the snapshot saved by 'ariadne index'. Results are
printed as JSON.`,
}

var queryDefinitionCmd = &cobra.Command{
	Use:   "definition <file> <offset>",
	Short: "Resolve the symbol at a file position",
	Args:  cobra.ExactArgs(2),
	RunE:  runQueryDefinition,
}

var queryReferencesCmd = &cobra.Command{
	Use:   "references <symbol-path>",
	Short: "List the references of a symbol",
	Long: `References lists every use-site resolving to a symbol, named by its
qualified path, for example 'geometry::shapes::Circle'.`,
	Args: cobra.ExactArgs(1),
	RunE: runQueryReferences,
}

var queryImplementationsCmd = &cobra.Command{
	Use:   "implementations <symbol-path>",
	Short: "List the implementations of an interface",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueryImplementations,
}

var querySearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search symbols by name or path",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuerySearch,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.AddCommand(queryDefinitionCmd)
	queryCmd.AddCommand(queryReferencesCmd)
	queryCmd.AddCommand(queryImplementationsCmd)
	queryCmd.AddCommand(querySearchCmd)

	querySearchCmd.Flags().IntVarP(&searchLimitFlag, "limit", "n", query.DefaultSearchLimit, "maximum number of results")
}

func runQueryDefinition(cmd *cobra.Command, args []string) error {
	offset, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid offset %q: %w", args[1], err)
	}

	q, closeIndex, err := loadQueryIndex(cmd.Context())
	if err != nil {
		return err
	}
	defer closeIndex()

	def, err := q.DefinitionAt(args[0], uint32(offset))
	if err != nil {
		return err
	}

	payload := struct {
		State   string       `json:"state"`
		Symbols []symbolJSON `json:"symbols"`
	}{State: def.State.String(), Symbols: toSymbolJSON(def.Symbols)}
	return printJSON(cmd.OutOrStdout(), payload)
}

func runQueryReferences(cmd *cobra.Command, args []string) error {
	q, closeIndex, err := loadQueryIndex(cmd.Context())
	if err != nil {
		return err
	}
	defer closeIndex()

	ids, err := lookupSymbol(q, args[0])
	if err != nil {
		return err
	}

	var refs []query.Location
	for _, id := range ids {
		refs = append(refs, q.ReferencesOf(id)...)
	}
	payload := struct {
		References []locationJSON `json:"references"`
		Total      int            `json:"total"`
	}{References: toLocationJSON(refs), Total: len(refs)}
	return printJSON(cmd.OutOrStdout(), payload)
}

func runQueryImplementations(cmd *cobra.Command, args []string) error {
	q, closeIndex, err := loadQueryIndex(cmd.Context())
	if err != nil {
		return err
	}
	defer closeIndex()

	ids, err := lookupSymbol(q, args[0])
	if err != nil {
		return err
	}

	var impls []query.Symbol
	for _, id := range ids {
		impls = append(impls, q.ImplementationsOf(id)...)
	}
	payload := struct {
		Implementations []symbolJSON `json:"implementations"`
		Total           int          `json:"total"`
	}{Implementations: toSymbolJSON(impls), Total: len(impls)}
	return printJSON(cmd.OutOrStdout(), payload)
}

func runQuerySearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	q, closeIndex, err := loadQueryIndex(ctx)
	if err != nil {
		return err
	}
	defer closeIndex()

	search, err := query.NewSearch(ctx, q)
	if err != nil {
		return err
	}
	defer search.Close()

	hits, err := search.Find(ctx, args[0], searchLimitFlag)
	if err != nil {
		return err
	}
	payload := struct {
		Symbols []symbolJSON `json:"symbols"`
		Total   int          `json:"total"`
	}{Symbols: toSymbolJSON(hits), Total: len(hits)}
	return printJSON(cmd.OutOrStdout(), payload)
}

// loadQueryIndex opens the saved snapshot for the workspace and rebuilds
// the in-memory symbol table from it.
func loadQueryIndex(ctx context.Context) (*query.Index, func() error, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rootDir, err := workspaceRoot()
	if err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(rootDir)
	if err != nil {
		return nil, nil, err
	}

	path := cfg.StoragePath(rootDir)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("no index found under %s, run 'ariadne index' first", rootDir)
	}
	store, err := storage.Open(path)
	if err != nil {
		return nil, nil, err
	}
	files, err := store.Load(ctx)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if len(files) == 0 {
		store.Close()
		return nil, nil, fmt.Errorf("no index found under %s, run 'ariadne index' first", rootDir)
	}

	table := symtab.Merge(files)
	return query.NewIndex(table), store.Close, nil
}

// lookupSymbol resolves a qualified path like a::b::c (or a.b.c) to
// global symbol ids.
func lookupSymbol(q *query.Index, path string) ([]semantic.GlobalID, error) {
	ids := q.Table().LookupExact(splitSymbolPath(path))
	if len(ids) == 0 {
		return nil, fmt.Errorf("symbol %q not found", path)
	}
	return ids, nil
}

func splitSymbolPath(path string) []string {
	if strings.Contains(path, "::") {
		return strings.Split(path, "::")
	}
	return strings.Split(path, ".")
}

func printJSON(w io.Writer, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
