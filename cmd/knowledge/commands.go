package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/knowledge/config"
	"github.com/poiesic/knowledge/core"
	"github.com/poiesic/knowledge/reembed"
	"github.com/poiesic/knowledge/storage/postgres"
	"github.com/urfave/cli/v2"
)

func projectFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "project",
		Aliases:  []string{"p"},
		Usage:    "Project ID",
		Required: true,
	}
}

func (cmds *commands) list() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the HTTP service",
			Action: cmds.serve,
		},
		{
			Name:   "migrate",
			Usage:  "Apply PostgreSQL schema migrations",
			Action: cmds.migrate,
		},
		{
			Name:      "import",
			Usage:     "Create documents from files",
			ArgsUsage: "FILE...",
			Action:    cmds.importFiles,
			Flags: []cli.Flag{
				projectFlag(),
				&cli.BoolFlag{
					Name:  "ingest",
					Usage: "Ingest the documents after creating them",
				},
			},
		},
		{
			Name:      "ingest",
			Usage:     "Ingest stored documents",
			ArgsUsage: "DOCUMENT_ID...",
			Action:    cmds.ingest,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "force",
					Usage: "Take over documents left in processing by an interrupted run",
				},
			},
		},
		{
			Name:      "query",
			Usage:     "Retrieve the chunks most similar to a query",
			ArgsUsage: "QUERY...",
			Action:    cmds.query,
			Flags: []cli.Flag{
				projectFlag(),
				&cli.IntFlag{
					Name:    "k",
					Aliases: []string{"n"},
					Usage:   "Number of chunks to return (0 uses the configured default)",
				},
			},
		},
		{
			Name:   "reembed",
			Usage:  "Re-ingest every document of a project with the configured model",
			Action: cmds.reembed,
			Flags: []cli.Flag{
				projectFlag(),
				&cli.IntFlag{
					Name:  "batch-size",
					Usage: "Number of documents to process in each batch",
					Value: reembed.DefaultBatchSize,
				},
				&cli.IntFlag{
					Name:  "report-interval",
					Usage: "Report progress every N documents",
					Value: reembed.DefaultBatchSize,
				},
				&cli.IntFlag{
					Name:  "max-retries",
					Usage: "Maximum retry attempts for transient failures",
					Value: 3,
				},
				&cli.DurationFlag{
					Name:  "retry-delay",
					Usage: "Base delay for exponential backoff",
					Value: 1 * time.Second,
				},
			},
		},
	}
}

func parseProject(c *cli.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.String("project"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid project id %q: %w", c.String("project"), err)
	}
	return id, nil
}

func (cmds *commands) migrate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Store.Backend != config.BackendPostgres {
		return fmt.Errorf("migrate requires the %s backend, configured backend is %s",
			config.BackendPostgres, cfg.Store.Backend)
	}
	return postgres.Migrate(cfg.Postgres.Dsn(), cfg.Store.Dimensions, nil)
}

// sourceType guesses a document's source type from its file extension.
func sourceType(path string) core.SourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return core.SourceTypeMarkdown
	case ".html", ".htm":
		return core.SourceTypeHTML
	}
	return core.SourceTypeText
}

func (cmds *commands) importFiles(c *cli.Context) error {
	projectID, err := parseProject(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	db, err := cmds.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var ids []uuid.UUID
	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		doc, err := db.Store().CreateDocument(c.Context, &core.Document{
			ProjectID:  projectID,
			Name:       filepath.Base(path),
			SourceType: sourceType(path),
			Content:    string(content),
		})
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", doc.ID, doc.Name)
		ids = append(ids, doc.ID)
	}

	if !c.Bool("ingest") {
		return nil
	}
	return printResults(c, db.Pipeline().ProcessDocumentBatch(c.Context, ids))
}

func (cmds *commands) ingest(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one document id is required")
	}
	ids := make([]uuid.UUID, c.NArg())
	for i, arg := range c.Args().Slice() {
		id, err := uuid.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid document id %q: %w", arg, err)
		}
		ids[i] = id
	}

	db, err := cmds.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if !c.Bool("force") {
		return printResults(c, db.Pipeline().ProcessDocumentBatch(c.Context, ids))
	}

	// forced runs go one at a time so a document is never taken over twice
	results := make([]core.BatchResult, len(ids))
	for i, id := range ids {
		results[i] = db.Pipeline().Reingest(c.Context, id)
	}
	return printResults(c, results)
}

// printResults writes one line per result and fails when any document failed.
func printResults(c *cli.Context, results []core.BatchResult) error {
	failed := 0
	for _, r := range results {
		if r.Succeeded() {
			fmt.Fprintf(c.App.Writer, "%s\t%s\t%d chunks\n", r.DocumentID, r.Status, r.ChunkCount)
			continue
		}
		failed++
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", r.DocumentID, r.Status, r.Error)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func (cmds *commands) query(c *cli.Context) error {
	projectID, err := parseProject(c)
	if err != nil {
		return err
	}
	query := strings.Join(c.Args().Slice(), " ")

	db, err := cmds.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	chunks, err := db.Searcher().Retrieve(c.Context, projectID, query, c.Int("k"))
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		fmt.Fprintln(c.App.Writer, "no matching chunks")
		return nil
	}
	for i, chunk := range chunks {
		fmt.Fprintf(c.App.Writer, "%d. [%.4f] %s#%d\n%s\n\n",
			i+1, chunk.Similarity, chunk.DocumentID, chunk.ChunkIndex, chunk.ChunkText)
	}
	return nil
}

func (cmds *commands) reembed(c *cli.Context) error {
	projectID, err := parseProject(c)
	if err != nil {
		return err
	}

	db, err := cmds.open(c)
	if err != nil {
		return err
	}
	defer db.Close()

	r, err := reembed.NewReembedder(db.Store(), db.Pipeline(),
		reembed.WithBatchSize(c.Int("batch-size")),
		reembed.WithProgressInterval(c.Int("report-interval")),
		reembed.WithMaxRetries(c.Int("max-retries")),
		reembed.WithRetryDelay(c.Duration("retry-delay")),
	)
	if err != nil {
		return err
	}

	result, err := r.Reembed(c.Context, projectID)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "reembedded %d of %d documents (%d failed, %d skipped) in %v\n",
		result.Succeeded, result.Total, result.Failed, result.Skipped, result.Elapsed.Round(time.Millisecond))
	for _, f := range result.Failures {
		fmt.Fprintf(c.App.Writer, "%s\t%s\n", f.DocumentID, f.Error)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d documents failed", result.Failed)
	}
	return nil
}
