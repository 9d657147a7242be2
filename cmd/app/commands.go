package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/studyshelf/internal"
	"github.com/starford/studyshelf/internal/apperr"
	"github.com/starford/studyshelf/internal/catalog"
	"github.com/starford/studyshelf/internal/mcpserver"
	"github.com/starford/studyshelf/internal/models"
	"github.com/starford/studyshelf/internal/render"
	pkgconfig "github.com/starford/studyshelf/pkg/config"
)

const defaultConfigPath = "config/config.yaml"

func newCommand() *cli.Command {
	placement := []cli.Flag{
		&cli.StringFlag{Name: "year", Usage: "Year name", Required: true},
		&cli.StringFlag{Name: "branch", Usage: "Branch name", Required: true},
		&cli.StringFlag{Name: "subject", Usage: "Subject name", Required: true},
		&cli.StringFlag{Name: "title", Usage: "Resource title", Required: true},
	}

	return &cli.Command{
		Name:   "studyshelf",
		Usage:  "Year → Branch → Subject catalog of study links and files",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: defaultConfigPath,
				Value:       defaultConfigPath,
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Run the MCP server on stdio",
				Action: serveMCP,
			},
			{
				Name:  "tree",
				Usage: "Print the catalog tree",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "ids", Usage: "Show node ids"},
				},
				Action: printTree,
			},
			{
				Name:      "search",
				Usage:     "Search resources by title, subject, branch or year; no query prints the tree",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "ids", Usage: "Show resource ids"},
				},
				Action: searchResources,
			},
			{
				Name:  "export",
				Usage: "Write the manifest document as stored",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default stdout)"},
				},
				Action: exportManifest,
			},
			{
				Name:   "add-link",
				Usage:  "Add a link resource",
				Flags:  append(placement, &cli.StringFlag{Name: "url", Usage: "Link target", Required: true}),
				Action: addLink,
			},
			{
				Name:      "add-file",
				Usage:     "Store a local file and add it as a file resource",
				ArgsUsage: "<path>",
				Flags:     append(append([]cli.Flag{}, placement...), &cli.StringFlag{Name: "name", Usage: "Stored file name (default: base name of path)"}),
				Action:    addFile,
			},
			{
				Name:      "rename",
				Usage:     "Rename a node by id",
				ArgsUsage: "<id> <name>",
				Action:    renameNode,
			},
			{
				Name:      "delete",
				Usage:     "Delete a node and everything below it",
				ArgsUsage: "<id>",
				Action:    deleteNode,
			},
		},
	}
}

// loadConfig reads the config file. A missing file at the default location
// falls back to defaults so the CLI works in an empty directory.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if cmd.IsSet("config") {
		if err := pkgconfig.Load(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		return cfg, nil
	}
	if _, err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// stdout is where command output goes; tests swap the root Writer.
func stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// cliLogger logs to stderr so command output on stdout stays clean.
func cliLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

func openCatalog(ctx context.Context, cmd *cli.Command) (*internal.Config, *internal.Catalog, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	cat, err := internal.OpenCatalog(ctx, cfg, cliLogger(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, cat, nil
}

// openWritable is openCatalog for commands that change the catalog.
func openWritable(ctx context.Context, cmd *cli.Command) (*internal.Catalog, error) {
	cfg, cat, err := openCatalog(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Auth.ReadOnly() {
		_ = cat.Close()
		return nil, fmt.Errorf("%w: auth.mode is %s", apperr.ErrReadOnly, cfg.Auth.Mode)
	}
	return cat, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := cliLogger(cfg)
	slog.SetDefault(logger)

	cat, err := internal.OpenCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	srv := mcpserver.New(cat.Service,
		mcpserver.WithReadOnly(cfg.Auth.ReadOnly()),
		mcpserver.WithMaxFileSize(cfg.Catalog.MaxUploadBytes()),
	)
	logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}

func printTree(ctx context.Context, cmd *cli.Command) error {
	_, cat, err := openCatalog(ctx, cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	m, _, err := cat.Service.Manifest(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout(cmd), render.Tree(m, render.TreeOptions{IDs: cmd.Bool("ids")}))
	return err
}

func searchResources(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return printTree(ctx, cmd)
	}
	_, cat, err := openCatalog(ctx, cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	recs, err := cat.Service.Search(ctx, query)
	if err != nil {
		return err
	}
	w := stdout(cmd)
	if len(recs) == 0 {
		_, err = fmt.Fprintln(w, "no resources found")
		return err
	}
	return render.Table(w, recs, cmd.Bool("ids"))
}

func exportManifest(ctx context.Context, cmd *cli.Command) error {
	_, cat, err := openCatalog(ctx, cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	data, _, err := cat.Service.Export(ctx)
	if err != nil {
		return err
	}
	if out := cmd.String("out"); out != "" {
		return os.WriteFile(out, data, 0o644)
	}
	_, err = stdout(cmd).Write(data)
	return err
}

func placementInput(cmd *cli.Command) catalog.AddResourceInput {
	return catalog.AddResourceInput{
		Year:    cmd.String("year"),
		Branch:  cmd.String("branch"),
		Subject: cmd.String("subject"),
		Title:   cmd.String("title"),
	}
}

func addLink(ctx context.Context, cmd *cli.Command) error {
	cat, err := openWritable(ctx, cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	in := placementInput(cmd)
	in.Type = models.TypeLink
	in.URL = cmd.String("url")

	res, err := cat.Service.AddResource(ctx, in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout(cmd), "added %s %q\n", res.ID, res.Title)
	return err
}

func addFile(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: add-file [flags] <path>")
	}
	src := cmd.Args().First()

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	cat, err := openWritable(ctx, cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	in := placementInput(cmd)
	in.Type = models.TypeFile
	in.FileName = cmd.String("name")
	if in.FileName == "" {
		in.FileName = filepath.Base(src)
	}
	in.File = f

	res, err := cat.Service.AddResource(ctx, in)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout(cmd), "added %s %q at %s\n", res.ID, res.Title, res.Path)
	return err
}

func renameNode(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 2 {
		return fmt.Errorf("usage: rename <id> <name>")
	}
	cat, err := openWritable(ctx, cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	node, err := cat.Service.Rename(ctx, cmd.Args().Get(0), cmd.Args().Get(1), "")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout(cmd), "renamed %s %s to %q\n", node.Kind, node.ID, node.Name)
	return err
}

func deleteNode(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: delete <id>")
	}
	cat, err := openWritable(ctx, cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	node, err := cat.Service.Delete(ctx, cmd.Args().First(), "")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout(cmd), "deleted %s %q\n", node.Kind, node.Name)
	return err
}
