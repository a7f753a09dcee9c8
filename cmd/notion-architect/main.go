package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/renderinc/notion-architect/internal/architect"
	"github.com/renderinc/notion-architect/internal/blueprint"
	"github.com/renderinc/notion-architect/internal/config"
	"github.com/renderinc/notion-architect/internal/generate"
	"github.com/renderinc/notion-architect/internal/llm"
	"github.com/renderinc/notion-architect/internal/logging"
	"github.com/renderinc/notion-architect/internal/mcp"
	"github.com/renderinc/notion-architect/internal/notion"
	"github.com/renderinc/notion-architect/internal/render"
	"github.com/renderinc/notion-architect/internal/search"
	"github.com/renderinc/notion-architect/internal/storage"
	"github.com/renderinc/notion-architect/internal/sync"
	"github.com/renderinc/notion-architect/internal/web"
)

const (
	// dryRunRoot is the parent page of everything created with -dry-run.
	dryRunRoot = "dry-run-root"

	defaultMaxAttempts = 5
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

func main() {
	// Parse global flags
	globalFlags := flag.NewFlagSet("global", flag.ExitOnError)
	dataDirFlag := globalFlags.String("data-dir", "./data", "Directory for database and index files")
	logFileFlag := globalFlags.String("log-file", "", "Append JSON logs to this file instead of stderr")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Find where the command starts (skip global flags)
	commandIdx := 1
	for i := 1; i < len(os.Args); i++ {
		if !strings.HasPrefix(os.Args[i], "-") {
			commandIdx = i
			break
		}
	}
	if commandIdx > 1 {
		globalFlags.Parse(os.Args[1:commandIdx])
	}

	cfg = config.Load(*dataDirFlag, config.DefaultTokenFile)

	var err error
	if *logFileFlag != "" {
		f, ferr := logging.OpenFile(*logFileFlag, cfg.LogLevel)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", ferr)
			os.Exit(1)
		}
		defer f.Close()
		logger = f.Logger
	} else {
		logger, err = logging.New(os.Stderr, cfg.LogLevel, true)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command := os.Args[commandIdx]
	args := os.Args[commandIdx+1:]

	switch command {
	case "generate":
		flags := flag.NewFlagSet("generate", flag.ExitOnError)
		dryRun := flags.Bool("dry-run", false, "Build the page in memory instead of Notion")
		parent := flags.String("parent", "", "Parent page ID (default: NOTION_PAGE_ID)")
		maxAttempts := flags.Uint("max-attempts", defaultMaxAttempts, "Attempts before giving up (0 = until accepted or interrupted)")
		examples := flags.Int("examples", generate.DefaultExamples, "Few-shot examples per request")
		sampling := samplingFlags(flags)
		flags.Parse(args)

		if flags.NArg() < 1 {
			fmt.Println("Error: description required")
			fmt.Println("Usage: notion-architect [--data-dir=<dir>] generate [flags] <description>")
			os.Exit(1)
		}
		runGenerate(ctx, strings.Join(flags.Args(), " "), *parent, *dryRun, *maxAttempts, *examples, sampling())
	case "build":
		flags := flag.NewFlagSet("build", flag.ExitOnError)
		dryRun := flags.Bool("dry-run", false, "Build the page in memory instead of Notion")
		parent := flags.String("parent", "", "Parent page ID (default: NOTION_PAGE_ID)")
		flags.Parse(args)

		if flags.NArg() < 1 {
			fmt.Println("Error: blueprint file required")
			fmt.Println("Usage: notion-architect build [flags] <file>")
			os.Exit(1)
		}
		runBuild(ctx, flags.Arg(0), *parent, *dryRun)
	case "dump":
		if len(args) < 1 {
			fmt.Println("Error: page ID required")
			fmt.Println("Usage: notion-architect dump <page-id>")
			os.Exit(1)
		}
		runDump(ctx, args[0])
	case "export":
		flags := flag.NewFlagSet("export", flag.ExitOnError)
		asHTML := flags.Bool("html", false, "Write HTML instead of markdown")
		flags.Parse(args)

		if flags.NArg() < 1 {
			fmt.Println("Error: page ID required")
			fmt.Println("Usage: notion-architect export [-html] <page-id>")
			os.Exit(1)
		}
		runExport(ctx, flags.Arg(0), *asHTML)
	case "verify":
		if len(args) < 1 {
			fmt.Println("Error: blueprint file required")
			fmt.Println("Usage: notion-architect verify <file>")
			os.Exit(1)
		}
		runVerify(ctx, args[0])
	case "examples":
		runExamples(ctx, args)
	case "history":
		flags := flag.NewFlagSet("history", flag.ExitOnError)
		limit := flags.Int("limit", 20, "Number of runs to list (0 = all)")
		flags.Parse(args)
		runHistory(*limit, flags.Arg(0))
	case "serve":
		flags := flag.NewFlagSet("serve", flag.ExitOnError)
		port := flags.String("port", "6894", "Port to listen on")
		host := flags.String("host", "localhost", "Host to bind to")
		dryRun := flags.Bool("dry-run", false, "Build pages in memory instead of Notion")
		sampling := samplingFlags(flags)
		flags.Parse(args)
		runServe(ctx, *host, *port, *dryRun, sampling())
	case "mcp":
		flags := flag.NewFlagSet("mcp", flag.ExitOnError)
		httpAddr := flags.String("http", "", "HTTP server address (e.g., ':8080'); stdio when empty")
		dryRun := flags.Bool("dry-run", false, "Build pages in memory instead of Notion")
		sampling := samplingFlags(flags)
		flags.Parse(args)
		runMCP(ctx, *httpAddr, *dryRun, sampling())
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Notion Architect - Generate Notion pages from a description")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  notion-architect [global-flags] <command> [flags]")
	fmt.Println()
	fmt.Println("Global Flags:")
	fmt.Println("  --data-dir=<dir>   Directory for database and index files (default: ./data)")
	fmt.Println("  --log-file=<path>  Append JSON logs to a file instead of stderr")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  generate [flags] <description>  Generate a page and create it in Notion")
	fmt.Println("  build [flags] <file>            Create the page described by a blueprint file")
	fmt.Println("  dump <page-id>                  Print an existing page as a blueprint")
	fmt.Println("  export [-html] <page-id>        Print an existing page as markdown")
	fmt.Println("  verify <file>                   Check that a blueprint survives a write and read back")
	fmt.Println("  examples import <file>...       Import few-shot examples (JSON array or chat JSONL)")
	fmt.Println("  examples search <query>         Search imported examples")
	fmt.Println("  examples reindex                Rebuild the example index from the database")
	fmt.Println("  history [-limit=N] [run-id]     List generation runs, or the attempts of one run")
	fmt.Println("  serve [flags]                   Start web server")
	fmt.Println("  mcp [flags]                     Start MCP server")
	fmt.Println()
	fmt.Println("Generate Flags:")
	fmt.Println("  -dry-run             Build in memory and print the result instead of writing to Notion")
	fmt.Println("  -parent=<id>         Parent page (default: NOTION_PAGE_ID)")
	fmt.Println("  -max-attempts=<n>    Attempts before giving up (default: 5, 0 = unbounded)")
	fmt.Println("  -examples=<n>        Few-shot examples per request (default: 2)")
	fmt.Println("  -temperature=<t>     Temperature of the first attempt (default: 1.0); retries lower it")
	fmt.Println("  -top-p=<p>           top_p of the first attempt (default: 0.4); retries lower it")
	fmt.Println("  -json                Ask the provider for a JSON object (Ollama format, OpenAI response_format)")
	fmt.Println()
	fmt.Println("serve and mcp accept -temperature, -top-p and -json as defaults for every run.")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  NOTION_KEY           Notion integration token (or ./token file)")
	fmt.Println("  NOTION_PAGE_ID       Parent page for generated pages")
	fmt.Println("  NOTION_VERSION       Notion-Version header override")
	fmt.Println("  LLM_PROVIDER         ollama (default), openai, lmstudio or replay")
	fmt.Println("  LLM_BASE_URL         Provider URL (replay: recording file or directory)")
	fmt.Println("  LLM_MODEL            Model name")
	fmt.Println("  LLM_API_KEY          API key (falls back to OPENAI_API_KEY)")
	fmt.Println("  LOG_LEVEL            debug, info (default), warn, error")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  notion-architect generate \"a reading tracker with a database of books\"")
	fmt.Println("  notion-architect generate -dry-run \"weekly meal planner\"")
	fmt.Println("  notion-architect build blueprint.json")
	fmt.Println("  notion-architect dump 1a2b3c4d > page.json && notion-architect verify page.json")
	fmt.Println("  notion-architect examples import data/examples.jsonl")
	fmt.Println("  notion-architect serve -port=3000")
}

func fatal(err error, msg string) {
	logger.Fatal().Err(err).Msg(msg)
}

// samplingFlags registers -temperature, -top-p and -json on flags. The
// returned func must be called after parsing; it exits on values the
// providers would reject.
func samplingFlags(flags *flag.FlagSet) func() llm.Sampling {
	temperature := flags.Float64("temperature", generate.DefaultSampling.Temperature, "Temperature of the first attempt")
	topP := flags.Float64("top-p", generate.DefaultSampling.TopP, "top_p of the first attempt")
	jsonMode := flags.Bool("json", false, "Ask the provider for a JSON object")
	return func() llm.Sampling {
		s := llm.Sampling{Temperature: *temperature, TopP: *topP, JSONMode: *jsonMode}
		fail(s.Validate())
		return s
	}
}

// fail exits on a configuration error.
func fail(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore returns the store pages are written to and read from, and the
// default parent page.
func openStore(dryRun bool) (architect.Store, string) {
	if dryRun {
		return notion.NewMemoryStore(dryRunRoot, "Dry run"), dryRunRoot
	}
	fail(cfg.Validate(config.Notion))

	opts := []notion.Option{notion.WithLogger(logger)}
	if cfg.NotionVersion != "" {
		opts = append(opts, notion.WithVersion(cfg.NotionVersion))
	}
	if cfg.NotionBaseURL != "" {
		opts = append(opts, notion.WithBaseURL(cfg.NotionBaseURL))
	}
	return notion.NewClient(cfg.NotionToken, opts...), cfg.NotionPageID
}

func openDB() *storage.DB {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		fatal(err, "Error creating data directory")
	}
	db, err := storage.Open(cfg.DBPath())
	if err != nil {
		fatal(err, "Error opening database")
	}
	return db
}

func openIndex() *search.Index {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		fatal(err, "Error creating data directory")
	}
	idx, err := search.Open(cfg.IndexPath())
	if err != nil {
		fatal(err, "Error opening search index")
	}
	return idx
}

func newGenerator(ctx context.Context) llm.Generator {
	fail(cfg.Validate(config.LLM))
	gen, err := llm.NewGenerator(cfg.Provider, cfg.BaseURL, cfg.Model, cfg.APIKey)
	if err != nil {
		fatal(err, "Error creating generation client")
	}

	hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := gen.Health(hctx); err != nil {
		logger.Warn().Err(err).Str("provider", gen.Name()).Msg("generation service not ready")
	} else {
		logger.Info().Str("provider", gen.Name()).Msg("generation service available")
	}
	return gen
}

func newController(gen llm.Generator, store architect.Store, db *storage.DB, idx *search.Index, examples int, opts ...generate.Option) *generate.Controller {
	base := []generate.Option{
		generate.WithRecorder(db),
		generate.WithExamples(search.NewLibrary(db, idx, logger), examples),
	}
	return generate.New(gen, architect.NewMaterializer(store, logger), logger, append(base, opts...)...)
}

func resolveParent(flagValue, fallback string) string {
	if flagValue != "" {
		return flagValue
	}
	if fallback == "" {
		fail(cfg.Validate(config.Parent))
	}
	return fallback
}

func runGenerate(ctx context.Context, description, parent string, dryRun bool, maxAttempts uint, examples int, sampling llm.Sampling) {
	store, defaultParent := openStore(dryRun)
	parentID := resolveParent(parent, defaultParent)

	db := openDB()
	defer db.Close()
	idx := openIndex()
	defer idx.Close()

	gen := newGenerator(ctx)
	ctrl := newController(gen, store, db, idx, examples, generate.WithMaxAttempts(maxAttempts), generate.WithSampling(sampling))

	emit := func(ev generate.Event) {
		switch ev.Kind {
		case generate.KindDelta:
			fmt.Print(ev.Delta)
		case generate.KindState:
			if ev.State == generate.StateValidating {
				fmt.Println()
			}
			logger.Info().Str("run", ev.RunID).Msg(ev.Summary())
		}
	}

	res, err := ctrl.Run(ctx, parentID, description, emit)
	if err != nil {
		var merr *architect.MaterializationError
		if errors.As(err, &merr) {
			fmt.Fprintf(os.Stderr, "\nNotion write failed at %s; %d nodes were already created and left in place.\n",
				architect.FormatPath(merr.Path), merr.Created)
		}
		fatal(err, "Generation failed")
	}

	fmt.Println()
	fmt.Println("=== Generation Complete ===")
	fmt.Printf("Run:       %s\n", res.RunID)
	fmt.Printf("Attempts:  %d\n", res.Attempts)
	fmt.Printf("Page:      %s\n", res.PageID)

	if dryRun {
		page, err := architect.NewReconstructor(store, logger).Reconstruct(ctx, res.PageID)
		if err != nil {
			fatal(err, "Error reading back dry-run page")
		}
		md, err := render.Markdown(page)
		if err != nil {
			fatal(err, "Error rendering page")
		}
		fmt.Println()
		fmt.Println(md)
	}
}

// readBlueprint reads a file holding either a generation result or a bare
// page.
func readBlueprint(path string) *blueprint.Page {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal(err, "Error reading blueprint file")
	}
	if res, err := blueprint.Parse(data); err == nil {
		return res.Document
	}
	page, err := blueprint.ParsePage(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s is not a valid blueprint:\n%s\n", path, blueprint.Describe(err))
		os.Exit(1)
	}
	return page
}

func runBuild(ctx context.Context, path, parent string, dryRun bool) {
	page := readBlueprint(path)
	store, defaultParent := openStore(dryRun)
	parentID := resolveParent(parent, defaultParent)

	start := time.Now()
	pageID, err := architect.NewMaterializer(store, logger).Materialize(ctx, parentID, page)
	if err != nil {
		fatal(err, "Build failed")
	}
	fmt.Printf("Created page %s in %v\n", pageID, time.Since(start).Round(time.Millisecond))
}

func reconstruct(ctx context.Context, pageID string) *blueprint.Page {
	store, _ := openStore(false)
	page, err := architect.NewReconstructor(store, logger).Reconstruct(ctx, pageID)
	if err != nil {
		fatal(err, "Error reading page")
	}
	return page
}

func runDump(ctx context.Context, pageID string) {
	page := reconstruct(ctx, pageID)
	out, err := json.MarshalIndent(page, "", "  ")
	if err != nil {
		fatal(err, "Error encoding page")
	}
	fmt.Println(string(out))
}

func runExport(ctx context.Context, pageID string, asHTML bool) {
	page := reconstruct(ctx, pageID)
	var out string
	var err error
	if asHTML {
		out, err = render.HTML(page)
	} else {
		out, err = render.Markdown(page)
	}
	if err != nil {
		fatal(err, "Error rendering page")
	}
	fmt.Println(out)
}

func runVerify(ctx context.Context, path string) {
	page := readBlueprint(path)
	store := notion.NewMemoryStore(dryRunRoot, "Verify")

	pageID, err := architect.NewMaterializer(store, logger).Materialize(ctx, dryRunRoot, page)
	if err != nil {
		fatal(err, "Materialize failed")
	}
	got, err := architect.NewReconstructor(store, logger).Reconstruct(ctx, pageID)
	if err != nil {
		fatal(err, "Reconstruct failed")
	}

	diff, err := blueprint.Diff(page, got)
	if err != nil {
		fatal(err, "Diff failed")
	}
	if diff != "" {
		fmt.Println("Blueprint does not survive a round trip:")
		fmt.Println(diff)
		os.Exit(1)
	}
	fmt.Printf("OK: %d remote nodes, round trip is lossless\n", store.Len()-1)
}

func runExamples(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Println("Error: examples subcommand required (import, search, reindex)")
		os.Exit(1)
	}

	db := openDB()
	defer db.Close()
	idx := openIndex()
	defer idx.Close()

	switch args[0] {
	case "import":
		if len(args) < 2 {
			fmt.Println("Error: at least one example file required")
			fmt.Println("Usage: notion-architect examples import <file>...")
			os.Exit(1)
		}
		worker := sync.NewWorker(db, idx, logger)
		for _, path := range args[1:] {
			f, err := os.Open(path)
			if err != nil {
				fatal(err, "Error opening example file")
			}
			records, err := sync.ReadRecords(f)
			f.Close()
			if err != nil {
				fatal(err, "Error reading example file")
			}

			stats, err := worker.Import(ctx, path, records)
			if err != nil {
				fatal(err, "Error importing examples")
			}

			fmt.Println()
			fmt.Printf("=== Import Complete: %s ===\n", path)
			fmt.Printf("Total:     %d\n", stats.Total)
			fmt.Printf("New:       %d\n", stats.New)
			fmt.Printf("Updated:   %d\n", stats.Updated)
			fmt.Printf("Skipped:   %d\n", stats.Skipped)
			fmt.Printf("Invalid:   %d\n", stats.Invalid)
			fmt.Printf("Errors:    %d\n", stats.Errors)
			fmt.Printf("Duration:  %v\n", stats.Duration.Round(time.Millisecond))
		}

	case "search":
		if len(args) < 2 {
			fmt.Println("Error: search query required")
			os.Exit(1)
		}
		query := strings.Join(args[1:], " ")
		results, err := idx.Search(query, 10)
		if err != nil {
			fatal(err, "Error searching")
		}
		if len(results) == 0 {
			fmt.Println("No examples found")
			return
		}
		fmt.Printf("Found %d examples:\n\n", len(results))
		for i, r := range results {
			fmt.Printf("%d. %s (score %.3f)\n", i+1, r.Prompt, r.Score)
			fmt.Printf("   id: %s\n", r.ID)
			for _, frag := range r.Fragments["Content"] {
				fmt.Printf("   %s\n", strings.ReplaceAll(frag, "\n", " "))
			}
			fmt.Println()
		}

	case "reindex":
		start := time.Now()
		if err := idx.IndexFromStorage(db); err != nil {
			fatal(err, "Error rebuilding index")
		}
		count, err := idx.Count()
		if err != nil {
			fatal(err, "Error counting index")
		}
		fmt.Printf("Indexed %d examples in %v\n", count, time.Since(start).Round(time.Millisecond))

	default:
		fmt.Printf("Unknown examples subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func runHistory(limit int, runID string) {
	db := openDB()
	defer db.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if runID != "" {
		run, err := db.GetRun(runID)
		if err != nil {
			fatal(err, "Error loading run")
		}
		if run == nil {
			fmt.Printf("Run %s not found\n", runID)
			os.Exit(1)
		}
		attempts, err := db.ListAttempts(runID)
		if err != nil {
			fatal(err, "Error loading attempts")
		}
		fmt.Fprintf(w, "Run:\t%s\nDescription:\t%s\nProvider:\t%s\nState:\t%s\nPage:\t%s\n",
			run.ID, run.Description, run.Provider, run.State, run.PageID)
		if run.Error != "" {
			fmt.Fprintf(w, "Error:\t%s\n", run.Error)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "#\tTEMP\tTOP_P\tOUTCOME\tERROR")
		for _, a := range attempts {
			fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%s\t%s\n", a.N, a.Temperature, a.TopP, a.Outcome, truncate(a.Error, 80))
		}
		return
	}

	runs, err := db.ListRuns(limit)
	if err != nil {
		fatal(err, "Error listing runs")
	}
	fmt.Fprintln(w, "CREATED\tSTATE\tATTEMPTS\tPAGE\tDESCRIPTION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.State, r.Attempts, r.PageID, truncate(r.Description, 60))
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func runServe(ctx context.Context, host, port string, dryRun bool, sampling llm.Sampling) {
	store, parentID := openStore(dryRun)

	db := openDB()
	defer db.Close()
	idx := openIndex()
	defer idx.Close()

	gen := newGenerator(ctx)
	srv, err := web.NewServer(web.Deps{
		DB:         db,
		Index:      idx,
		Generator:  gen,
		Controller: newController(gen, store, db, idx, generate.DefaultExamples,
			generate.WithMaxAttempts(defaultMaxAttempts), generate.WithSampling(sampling)),
		Store:      store,
		ParentID:   parentID,
		Log:        logger,
	})
	if err != nil {
		fatal(err, "Error creating server")
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	httpServer := &http.Server{Addr: addr, Handler: srv.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Println()
	fmt.Println("=== Notion Architect Web Server ===")
	fmt.Printf("Server running at: http://%s\n", addr)
	if dryRun {
		fmt.Println("Dry run: pages are built in memory")
	}
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(err, "Error starting server")
	}
}

func runMCP(ctx context.Context, httpAddr string, dryRun bool, sampling llm.Sampling) {
	store, parentID := openStore(dryRun)

	db := openDB()
	defer db.Close()
	idx := openIndex()
	defer idx.Close()

	gen := newGenerator(ctx)
	s := mcp.NewServer(mcp.Deps{
		Controller: newController(gen, store, db, idx, generate.DefaultExamples,
			generate.WithMaxAttempts(defaultMaxAttempts), generate.WithSampling(sampling)),
		Store:      store,
		Index:      idx,
		ParentID:   parentID,
		Log:        logger,
	})

	if httpAddr != "" {
		logger.Info().Str("addr", httpAddr).Msg("starting MCP server over HTTP")
		if err := server.NewStreamableHTTPServer(s).Start(httpAddr); err != nil {
			fatal(err, "MCP server failed")
		}
		return
	}

	logger.Info().Msg("starting MCP server in stdio mode")
	if err := server.ServeStdio(s); err != nil {
		fatal(err, "MCP server failed")
	}
}
