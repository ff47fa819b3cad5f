package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	formbuilder "github.com/goliatone/go-formbuilder"
	"github.com/goliatone/go-formbuilder/internal/cli"
	"github.com/goliatone/go-formbuilder/internal/prompt"
	"github.com/goliatone/go-formbuilder/pkg/builder"
	"github.com/goliatone/go-formbuilder/pkg/store"
)

func main() {
	dbPath := flag.String("db", "formbuilder.db", "path to the form collection database")
	formID := flag.String("form", "", "saved form id (preview, export)")
	source := flag.String("source", "", "OpenAPI document path (import)")
	operation := flag.String("operation", "", "operationId whose request body seeds the form (import)")
	output := flag.String("output", "form.json", "schema snapshot path, .json or .yaml (export)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		logger = logger.Level(zerolog.WarnLevel)
	}

	st, err := formbuilder.OpenBoltStore(*dbPath, store.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Str("path", *dbPath).Msg("open store")
	}
	defer st.Close()

	b, err := formbuilder.NewBuilder(st, builder.WithLogger(logger))
	if err != nil {
		logger.Fatal().Err(err).Msg("load form collection")
	}

	app := cli.New(b, prompt.NewSurvey(), cli.WithLogger(logger))
	ctx := context.Background()

	command := flag.Arg(0)
	if command == "" {
		command = "build"
	}

	switch command {
	case "build":
		err = app.Run(ctx)
	case "list":
		err = listForms(b)
	case "preview":
		err = app.RunPreview(ctx, requireFlag(logger, "form", *formID))
	case "import":
		err = importForm(ctx, app, b,
			requireFlag(logger, "source", *source),
			requireFlag(logger, "operation", *operation))
	case "export":
		err = exportForm(b, requireFlag(logger, "form", *formID), *output)
	case "load":
		err = loadSnapshot(ctx, app, b, requireFlag(logger, "source", *source))
	default:
		logger.Fatal().Str("command", command).Msg("unknown command, expected build, list, preview, import, load, or export")
	}
	if err != nil {
		logger.Fatal().Err(err).Str("command", command).Msg("command failed")
	}
}

func listForms(b *builder.Builder) error {
	forms := b.SavedForms()
	if len(forms) == 0 {
		fmt.Println("no saved forms")
		return nil
	}
	for _, form := range forms {
		fmt.Printf("%s  %-30s  %d fields  %s\n",
			form.ID, form.Name, len(form.Schema.Fields), form.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func importForm(ctx context.Context, app *cli.App, b *builder.Builder, source, operation string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	fields, err := formbuilder.ImportOperationFields(ctx, data, operation)
	if err != nil {
		return err
	}
	if err := b.ImportFields(fields); err != nil {
		return err
	}
	fmt.Printf("imported %d fields from %s, continue editing\n", len(fields), operation)
	return app.Run(ctx)
}

func loadSnapshot(ctx context.Context, app *cli.App, b *builder.Builder, source string) error {
	schema, err := store.ReadSchemaFile(source)
	if err != nil {
		return err
	}
	if err := b.ImportFields(schema.Fields); err != nil {
		return err
	}
	fmt.Printf("loaded %d fields from %s, continue editing\n", len(schema.Fields), source)
	return app.Run(ctx)
}

func exportForm(b *builder.Builder, formID, output string) error {
	schema, err := b.LoadFormForPreview(formID)
	if err != nil {
		return err
	}
	if err := store.WriteSchemaFile(output, schema); err != nil {
		return err
	}
	fmt.Printf("schema written to %s\n", output)
	return nil
}

func requireFlag(logger zerolog.Logger, name, value string) string {
	if value == "" {
		logger.Fatal().Msgf("-%s is required for this command", name)
	}
	return value
}
