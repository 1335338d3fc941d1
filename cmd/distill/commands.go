package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tendant/content-distill/pkg/distill"
	"github.com/tendant/content-distill/pkg/distill/config"
	"github.com/tendant/content-distill/pkg/distill/entity"
	"github.com/tendant/content-distill/pkg/distill/export"
	"github.com/tendant/content-distill/pkg/distill/repo/memory"
)

// workspace holds the documents of one input file
type workspace struct {
	repo   *memory.Repository
	loader *entity.RepositoryLoader
	docs   []*entity.Document
}

func loadWorkspace(ctx context.Context, path string) (*workspace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	docs, err := entity.DecodeDocuments(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	repo := memory.New()
	for _, doc := range docs {
		if err := repo.Save(ctx, doc); err != nil {
			return nil, err
		}
	}
	return &workspace{repo: repo, loader: entity.NewRepositoryLoader(repo), docs: docs}, nil
}

// configFromFlags builds the configuration from the environment and the
// persistent flags. Flags win over the environment.
func configFromFlags(cmd *cobra.Command, extra ...config.Option) (*config.Config, error) {
	opts := []config.Option{config.WithEnv()}
	if cmd.Flags().Changed("depth") {
		depth, _ := cmd.Flags().GetInt("depth")
		opts = append(opts, config.WithMaxDepth(depth))
	}
	if cmd.Flags().Changed("file-base-url") {
		baseURL, _ := cmd.Flags().GetString("file-base-url")
		opts = append(opts, config.WithFileBaseURL(baseURL))
	}
	return config.Load(append(opts, extra...)...)
}

// NewExtractCommand creates the extract command
func NewExtractCommand() *cobra.Command {
	var fields []string
	var lang string
	var id string
	var pretty bool

	cmd := &cobra.Command{
		Use:   "extract <file.json>",
		Short: "Distill an entity document",
		Long: `Distill the first entity of the file, or the one selected with --id type/id.
Each --field name[:key] extracts one field, stored under key when given.
Without --field every field is extracted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := configFromFlags(cmd, config.WithLanguage(lang))
			if err != nil {
				return err
			}

			ws, err := loadWorkspace(ctx, args[0])
			if err != nil {
				return err
			}

			entityType, entityID := ws.docs[0].Type, ws.docs[0].ID
			if id != "" {
				var found bool
				entityType, entityID, found = strings.Cut(id, "/")
				if !found {
					return fmt.Errorf("--id must be type/id, got %q", id)
				}
			}

			e, err := ws.loader.Load(ctx, entityType, entityID)
			if err != nil {
				return fmt.Errorf("load %s/%s: %w", entityType, entityID, err)
			}

			d := distill.New(e,
				distill.WithProcessor(cfg.BuildProcessor()),
				distill.WithLanguage(cfg.Language),
			)
			if len(fields) == 0 {
				err = d.ExtractAllFields(ctx)
			}
			for _, f := range fields {
				name, key, _ := strings.Cut(f, ":")
				if err = d.ExtractField(ctx, name, distill.As(key)); err != nil {
					break
				}
			}
			if err != nil {
				return err
			}

			return writeJSON(cmd, d.Values(), pretty)
		},
	}

	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "field to extract as name[:key] (repeatable)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "extraction language")
	cmd.Flags().StringVar(&id, "id", "", "entity to extract as type/id")
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "indent output")

	return cmd
}

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	var storageURL string
	var lang string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "export <file.json>",
		Short: "Distill every entity of a file and write the results to a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			opts := []config.Option{config.WithLanguage(lang)}
			if storageURL != "" {
				opts = append(opts, config.WithStorageURL(storageURL))
			}
			cfg, err := configFromFlags(cmd, opts...)
			if err != nil {
				return err
			}

			store, err := cfg.BuildStore(ctx)
			if err != nil {
				return err
			}

			ws, err := loadWorkspace(ctx, args[0])
			if err != nil {
				return err
			}

			entities := make([]distill.Entity, 0, len(ws.docs))
			for _, doc := range ws.docs {
				entities = append(entities, doc.Build(ws.loader))
			}

			exporter := export.NewExporter(store,
				export.WithDistillOptions(
					distill.WithProcessor(cfg.BuildProcessor()),
					distill.WithLanguage(cfg.Language),
				),
				export.WithConcurrency(concurrency),
			)
			results, err := exporter.ExportAll(ctx, entities)
			if err != nil {
				return err
			}

			for _, r := range results {
				if r.URL != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Key, r.URL)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), r.Key)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&storageURL, "storage", "s", "", "export store (memory://, file:///dir, s3://bucket/prefix)")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "extraction language")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "parallel exports")

	return cmd
}

// NewFieldTypesCommand creates the field-types command
func NewFieldTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "field-types",
		Short: "List the platform field types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			reg := cfg.BuildProcessor()
			for _, t := range reg.SystemFieldTypes() {
				handled := "hook"
				if reg.HasTypeHandler(t) {
					handled = distill.TypeHandlerName(t)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t, handled)
			}
			return nil
		},
	}
}

// NewEnvCommand creates the env command
func NewEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Describe the environment variables",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.EnvUsage())
		},
	}
}

func writeJSON(cmd *cobra.Command, v any, pretty bool) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
