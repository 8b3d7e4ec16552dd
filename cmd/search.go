package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cass-search/cass/internal/fts"
	"github.com/cass-search/cass/internal/fusion"
	"github.com/cass-search/cass/internal/output"
	"github.com/cass-search/cass/internal/query"
	"github.com/cass-search/cass/internal/store"
	"github.com/cass-search/cass/internal/vector"
	"github.com/spf13/cobra"
)

var (
	searchAgents       []string
	searchWorkspaces   []string
	searchSources      []string
	searchSince        string
	searchUntil        string
	searchDays         int
	searchToday        bool
	searchMode         string
	searchRankMode     string
	searchLimit        int
	searchCursor       string
	searchFields       string
	searchAggregate    []string
	searchMaxContent   int
	searchMaxTokens    int
	searchHighlight    bool
	searchExplain      bool
	searchDryRun       bool
	searchTimeout      time.Duration
	searchRobot        bool
	searchRobotFormat  string
	searchRobotMeta    bool
	searchRequestID    string
	searchSessionsFrom string
	searchTraceFile    string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search across every indexed agent session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	start := time.Now()
	queryString := args[0]

	sinceMS, untilMS, err := resolveTimeRange(searchSince, searchUntil, searchDays, searchToday)
	if err != nil {
		return output.New(output.KindUsage, "bad time value", "use -7d, today, yesterday, ISO-8601, or a Unix timestamp")
	}

	filters := fts.Filters{
		Agent:     searchAgents,
		Workspace: searchWorkspaces,
		SourceID:  searchSources,
		Since:     sinceMS,
		Until:     untilMS,
	}

	if searchDryRun {
		return writeSearchResult(nil, nil, Meta0(time.Since(start)), nil)
	}

	var allowedSessions map[string]bool
	if searchSessionsFrom != "" {
		allowedSessions, err = loadSessionAllowlist(searchSessionsFrom)
		if err != nil {
			return output.New(output.KindUsage, "cannot read --sessions-from", err.Error())
		}
	}

	openStart := time.Now()
	idx, err := openFTS()
	if err != nil {
		return output.IndexMissing(err)
	}
	defer idx.Close()
	openMS := time.Since(openStart).Milliseconds()

	timeout := searchTimeoutOrDefault()
	if timeout == 0 {
		return writeSearchResult(nil, nil, Meta0(time.Since(start)), output.New(output.KindPartial, "search timed out", "--timeout was 0; increase it to let the search run"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	mode := fusion.Mode(searchMode)
	if mode == "" {
		mode = fusion.ModeLexical
	}
	switch mode {
	case fusion.ModeLexical, fusion.ModeSemantic, fusion.ModeHybrid:
	default:
		return output.New(output.KindUsage, fmt.Sprintf("unrecognized --mode %q", searchMode), "use lexical, semantic, or hybrid")
	}

	planner := &query.Planner{Index: idx, Cache: searchCache()}
	rankMode := query.Mode(searchRankMode)
	if rankMode == "" {
		rankMode = query.ModeBalanced
	}
	switch rankMode {
	case query.ModeRecent, query.ModeBalanced, query.ModeRelevance, query.ModeQuality, query.ModeNewest, query.ModeOldest:
	default:
		return output.New(output.KindUsage, fmt.Sprintf("unrecognized --rank %q", searchRankMode), "use recent, balanced, relevance, quality, newest, or oldest")
	}

	queryStart := time.Now()

	var lexResult *query.Result
	if mode == fusion.ModeLexical || mode == fusion.ModeHybrid {
		lexResult, err = planner.Search(ctx, queryString, filters, rankMode, searchLimit)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return writeSearchResult(nil, nil, Meta0(time.Since(start)), output.New(output.KindPartial, "search timed out", "increase --timeout"))
			}
			return fmt.Errorf("lexical search: %w", err)
		}
	}

	var semanticRows []vector.Row
	if mode == fusion.ModeSemantic || mode == fusion.ModeHybrid {
		semanticRows, err = runSemanticLeg(ctx, queryString, filters)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return writeSearchResult(nil, nil, Meta0(time.Since(start)), output.New(output.KindPartial, "search timed out", "increase --timeout"))
			}
			return fmt.Errorf("semantic search: %w", err)
		}
	}

	candidates, err := fusion.Resolve(ctx, mode, lexResult, semanticRows, idx)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return writeSearchResult(nil, nil, Meta0(time.Since(start)), output.New(output.KindPartial, "search timed out", "increase --timeout"))
		}
		return fmt.Errorf("fuse results: %w", err)
	}
	queryMS := time.Since(queryStart).Milliseconds()

	if allowedSessions != nil {
		candidates = filterBySession(candidates, allowedSessions)
	}

	var aggs []fusion.Aggregation
	if len(searchAggregate) > 0 {
		aggs = fusion.Aggregate(candidates, searchAggregate)
	}

	generation := idx.Generation()
	afterSortKey, afterID, err := decodeSearchCursor(searchCursor, generation)
	if err != nil {
		return output.New(output.KindUsage, "invalid cursor", "cursor is opaque and only valid until the next `cass index --force-rebuild`")
	}
	sortKeyOf := func(c fusion.Candidate) string { return fmt.Sprintf("%020.10f|%s|%d", -c.Score, c.SourcePath, c.MsgIdx) }
	limit := searchLimit
	if limit <= 0 {
		limit = 20
	}
	page, nextCursor := fusion.Paginate(candidates, sortKeyOf, afterSortKey, afterID, limit, generation)

	fields := fusion.ResolveFields(searchFields)
	fetcher, closeFetcher := contentFetcher()
	defer closeFetcher()
	projected, err := fusion.Project(page, fields, fetcher)
	if err != nil {
		return fmt.Errorf("project fields: %w", err)
	}
	projected = applyContentLimits(projected, searchMaxContentLen(), searchHighlight, queryString)

	meta := output.Meta{
		ElapsedMS:        time.Since(start).Milliseconds(),
		WildcardFallback: lexResult != nil && lexResult.WildcardFallback,
		RequestID:        requestID(),
		NextCursor:       nextCursor,
	}
	if searchRobotMeta {
		meta.OpenMS = openMS
		meta.QueryMS = queryMS
	}
	if searchExplain {
		if lexResult != nil {
			meta.LexicalHits = int64(len(lexResult.Hits))
		}
		meta.SemanticHits = int64(len(semanticRows))
	}

	return writeSearchResult(projected, aggs, meta, nil)
}

// Meta0 builds the minimal _meta block for --dry-run, which plans the
// query (parses, resolves filters) but executes nothing.
func Meta0(elapsed time.Duration) output.Meta {
	return output.Meta{ElapsedMS: elapsed.Milliseconds(), RequestID: requestID()}
}

func requestID() string {
	if searchRequestID != "" {
		return searchRequestID
	}
	return output.NewRequestID()
}

// searchTimeoutOrDefault returns the configured --timeout as-is: the flag's
// own default is 10s, so only an explicit --timeout 0 reaches here as zero,
// and that must short-circuit the search with a partial result rather than
// silently falling back to the default.
func searchTimeoutOrDefault() time.Duration {
	if searchTimeout < 0 {
		return 0
	}
	return searchTimeout
}

var (
	searchCacheOnce sync.Once
	searchCacheInst *query.Cache
)

// searchCache lazily builds the process-wide query result cache, sized from
// the cache_shard_cap/cache_total_cap/cache_byte_cap config keys (defaults
// 256-per-shard/2048-total, 10MiB byte ceiling), shared across every search
// invocation within this process.
func searchCache() *query.Cache {
	searchCacheOnce.Do(func() {
		c, err := query.New(cfg.CacheShardCap, cfg.CacheTotalCap, cfg.CacheByteCap)
		if err != nil {
			return
		}
		searchCacheInst = c
	})
	return searchCacheInst
}

func searchMaxContentLen() int {
	if searchMaxContent > 0 {
		return searchMaxContent
	}
	if searchMaxTokens > 0 {
		return searchMaxTokens * 4 // rough token-to-byte estimate, same order the teacher's export truncation used
	}
	return 0
}

func decodeSearchCursor(cursor string, generation int64) (sortKey, id string, err error) {
	if cursor == "" {
		return "", "", nil
	}
	return fusion.DecodeCursor(cursor, generation)
}

// runSemanticLeg embeds the query string and searches the vector index,
// applying the time range and, when exactly one --agent value was given,
// that agent. --source and --workspace filters are not applied on this leg.
func runSemanticLeg(ctx context.Context, queryString string, filters fts.Filters) ([]vector.Row, error) {
	vs, embedder, err := openVector()
	if err != nil {
		return nil, err
	}
	defer vs.Close()

	vec, err := embedder.Embed(queryString)
	if err != nil {
		return nil, err
	}

	vf := vector.Filter{Since: filters.Since, Until: filters.Until}
	if len(filters.Agent) == 1 {
		if st, err := openStore(); err == nil {
			if id, err := st.EnsureAgent(ctx, filters.Agent[0]); err == nil {
				vf.AgentEnum = uint8(id)
			}
			st.Close()
		}
	}

	limit := searchLimit
	if limit <= 0 {
		limit = 20
	}
	return vs.SearchParallel(vec, limit, vf)
}

// loadSessionAllowlist reads newline-separated source paths from a file
// or, for "-", stdin, used by --sessions-from to restrict a search to a
// caller-supplied subset of sessions.
func loadSessionAllowlist(path string) (map[string]bool, error) {
	r := os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]bool)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			allowed[line] = true
		}
	}
	return allowed, nil
}

func filterBySession(candidates []fusion.Candidate, allowed map[string]bool) []fusion.Candidate {
	out := candidates[:0]
	for _, c := range candidates {
		if allowed[c.SourcePath] {
			out = append(out, c)
		}
	}
	return out
}

// contentFetcher opens the durable store lazily, the first time a
// projection actually requests the "content" field, and returns a closer
// the caller must defer regardless of whether content was ever fetched.
func contentFetcher() (fusion.ContentFetcher, func()) {
	var st *store.Store
	fetch := func(sourcePath string, msgIdx int) (string, error) {
		if st == nil {
			opened, err := openStore()
			if err != nil {
				return "", err
			}
			st = opened
		}
		return st.GetMessageContent(context.Background(), sourcePath, msgIdx)
	}
	closer := func() {
		if st != nil {
			st.Close()
		}
	}
	return fetch, closer
}

// applyContentLimits truncates preview/content to maxLen and injects a
// highlight marker around the first case-insensitive query-term match,
// per §6's --max-content-length/--max-tokens/--highlight flags.
func applyContentLimits(projected []fusion.Projected, maxLen int, highlight bool, queryString string) []fusion.Projected {
	for i := range projected {
		if maxLen > 0 {
			projected[i].Preview = truncate(projected[i].Preview, maxLen)
			projected[i].Content = truncate(projected[i].Content, maxLen)
		}
		if highlight {
			projected[i].Preview = highlightTerm(projected[i].Preview, queryString)
		}
	}
	return projected
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

func highlightTerm(s, term string) string {
	term = strings.Fields(term)[0]
	idx := strings.Index(strings.ToLower(s), strings.ToLower(term))
	if idx < 0 {
		return s
	}
	return s[:idx] + "**" + s[idx:idx+len(term)] + "**" + s[idx+len(term):]
}

func writeSearchResult(projected []fusion.Projected, aggs []fusion.Aggregation, meta output.Meta, respErr *output.Error) error {
	resp := output.BuildResponse(projected, aggs, meta)
	if respErr != nil {
		resp = output.ErrorResponse(respErr, meta)
	}

	if searchTraceFile != "" {
		writeTrace(searchTraceFile, resp)
	}

	if searchRobot || jsonOutput {
		format := output.RobotFormat(searchRobotFormat)
		if err := output.WriteRobot(os.Stdout, resp, format); err != nil {
			return err
		}
	} else {
		if err := output.WriteHuman(os.Stdout, resp); err != nil {
			return err
		}
	}
	if respErr != nil {
		return respErr
	}
	return nil
}

func writeTrace(path string, resp output.Response) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_ = output.WriteRobot(f, resp, output.FormatJSONL)
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringSliceVar(&searchAgents, "agent", nil, "restrict to one or more agent slugs")
	searchCmd.Flags().StringSliceVar(&searchWorkspaces, "workspace", nil, "restrict to one or more workspace paths")
	searchCmd.Flags().StringSliceVar(&searchSources, "source", nil, "restrict to one or more source ids")
	searchCmd.Flags().StringVar(&searchSince, "since", "", "only messages at or after this time")
	searchCmd.Flags().StringVar(&searchUntil, "until", "", "only messages at or before this time")
	searchCmd.Flags().IntVar(&searchDays, "days", 0, "shorthand for --since -<days>d")
	searchCmd.Flags().BoolVar(&searchToday, "today", false, "shorthand for --since today")
	searchCmd.Flags().StringVar(&searchMode, "mode", "lexical", "lexical, semantic, or hybrid")
	searchCmd.Flags().StringVar(&searchRankMode, "rank", "balanced", "recent, balanced, relevance, quality, newest, or oldest")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum hits to return")
	searchCmd.Flags().StringVar(&searchCursor, "cursor", "", "opaque pagination cursor from a prior response's _meta.next_cursor")
	searchCmd.Flags().StringVar(&searchFields, "fields", "summary", "minimal, summary, full, or a comma-separated field list")
	searchCmd.Flags().StringSliceVar(&searchAggregate, "aggregate", nil, "facet fields to aggregate: agent, workspace, date, match_type")
	searchCmd.Flags().IntVar(&searchMaxContent, "max-content-length", 0, "truncate preview/content fields to this many bytes")
	searchCmd.Flags().IntVar(&searchMaxTokens, "max-tokens", 0, "truncate preview/content fields to roughly this many tokens")
	searchCmd.Flags().BoolVar(&searchHighlight, "highlight", false, "wrap the first matched term in **markers**")
	searchCmd.Flags().BoolVar(&searchExplain, "explain", false, "include ranking-blend inputs in _meta (robot mode only)")
	searchCmd.Flags().BoolVar(&searchDryRun, "dry-run", false, "parse and plan the query without executing it")
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 10*time.Second, "abort the search after this long")
	searchCmd.Flags().BoolVar(&searchRobot, "robot", false, "emit machine-readable output (alias of --json at the search level)")
	searchCmd.Flags().StringVar(&searchRobotFormat, "robot-format", "", "jsonl, compact, or sessions (default: JSON envelope)")
	searchCmd.Flags().BoolVar(&searchRobotMeta, "robot-meta", false, "include cache/query sub-timers in _meta")
	searchCmd.Flags().StringVar(&searchRequestID, "request-id", "", "echo this id back in _meta.request_id instead of generating one")
	searchCmd.Flags().StringVar(&searchSessionsFrom, "sessions-from", "", "restrict the search to source paths listed in this file, or - for stdin")
	searchCmd.Flags().StringVar(&searchTraceFile, "trace-file", "", "append a JSONL trace record of this query's response")
}
