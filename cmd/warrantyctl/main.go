// Command warrantyctl is the operator tool for warranty cards.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-warranty-cards/internal/app"
	"github.com/ariefcatur/go-warranty-cards/internal/config"
	"github.com/ariefcatur/go-warranty-cards/internal/logging"
	"github.com/ariefcatur/go-warranty-cards/internal/postgres"
	"github.com/ariefcatur/go-warranty-cards/internal/render"
)

func main() {
	_ = godotenv.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "warrantyctl",
		Short:         "Operate the warranty card service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(
		newMigrateCmd(),
		newIssueCmd(),
		newRenderCmd(),
		newPDFCmd(),
		newSettingsCmd(),
	)
	return root
}

// withApp builds the shared components for one command run.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	cfg := config.Load()
	log, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log, err := logging.New(cfg)
			if err != nil {
				return err
			}
			if err := postgres.Migrate(cfg.PostgresDSN, log); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newIssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue <order-id>",
		Short: "Issue missing warranty cards for an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				res, err := a.Cards.IssueForOrder(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}
}

func newRenderCmd() *cobra.Command {
	var export, document bool
	cmd := &cobra.Command{
		Use:   "render <card-id>",
		Short: "Print the HTML of a warranty card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			mode := render.Interactive
			if export || document {
				mode = render.Export
			}
			return withApp(cmd, func(a *app.App) error {
				html, err := renderCard(cmd.Context(), a, id, mode, document)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), html)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&export, "export", false, "render the print variant without buttons")
	cmd.Flags().BoolVar(&document, "document", false, "wrap the print variant into a full HTML document")
	return cmd
}

func newPDFCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pdf <card-id>",
		Short: "Write the PDF of a warranty card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCardID(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("warranty-%d.pdf", id)
			}
			return withApp(cmd, func(a *app.App) error {
				doc, err := renderCard(cmd.Context(), a, id, render.Export, true)
				if err != nil {
					return err
				}
				b, err := a.PDF.Render(cmd.Context(), doc)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, b, 0o644); err != nil {
					return err
				}
				a.Log.Info("pdf written", zap.String("file", out), zap.Int("bytes", len(b)))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default warranty-<id>.pdf)")
	return cmd
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change company branding settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Print one setting, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				if len(args) == 1 {
					v, err := a.Settings.Get(cmd.Context(), args[0])
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
					return err
				}
				vals, err := a.Settings.Values(cmd.Context())
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(vals))
				for k := range vals {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, vals[k])
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return a.Settings.Set(cmd.Context(), args[0], args[1], "warrantyctl")
			})
		},
	})
	return cmd
}

func renderCard(ctx context.Context, a *app.App, id int64, mode render.Mode, document bool) (string, error) {
	card, err := a.Cards.Get(ctx, id)
	if err != nil {
		return "", err
	}
	frag, err := a.Renderer.Card(ctx, card, mode)
	if err != nil || !document {
		return frag, err
	}
	return a.Renderer.Document(frag)
}

func parseCardID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid card id %q", s)
	}
	return id, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
