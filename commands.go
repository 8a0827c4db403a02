package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/SachinGupta0206/saas-contracts-dashboard/model"
	"github.com/SachinGupta0206/saas-contracts-dashboard/service"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in; run `dashboard login <username>` first")

// withApp opens the stores for one command and closes them afterwards.
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, a)
}

// withSession is withApp for commands that need a restored session.
func withSession(fn func(ctx context.Context, a *app, identity model.Identity) error) error {
	return withApp(func(ctx context.Context, a *app) error {
		identity, ok := a.sessions.RestoreSession(ctx)
		if !ok {
			return errNotSignedIn
		}
		return fn(ctx, a, identity)
	})
}

// --- session ---

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in and persist the session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		return withApp(func(ctx context.Context, a *app) error {
			identity, err := a.sessions.SignIn(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", identity.Name, identity.Email)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the persisted session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			a.sessions.RestoreSession(ctx)
			if err := a.sessions.SignOut(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		})
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the persisted identity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, a *app, identity model.Identity) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", identity.Name, identity.Email)
			fmt.Fprintf(out, "username: %s\nid:       %s\n", identity.Username, identity.ID)
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().String("password", "", "shared dashboard password")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

// --- contracts ---

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Browse contracts",
}

var contractsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contracts, optionally filtered",
	Long: `List contracts, optionally filtered.

Examples:
  dashboard contracts list
  dashboard contracts list --search "abc corp" --risk High
  dashboard contracts list --status "Renewal Due" --page 2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var patch model.FilterPatch
		for name, field := range map[string]**string{"search": &patch.Search, "status": &patch.Status, "risk": &patch.Risk} {
			if cmd.Flags().Changed(name) {
				v, _ := cmd.Flags().GetString(name)
				*field = &v
			}
		}
		page, _ := cmd.Flags().GetInt("page")

		return withSession(func(ctx context.Context, a *app, _ model.Identity) error {
			if _, err := a.store.ListContracts(ctx); err != nil {
				return err
			}
			a.store.SetFilters(patch)
			a.store.SetPage(page)

			items, total, served := a.store.Page(cfg.Contracts.PageSize)
			printContracts(cmd.OutOrStdout(), items)
			fmt.Fprintf(cmd.OutOrStdout(), "\npage %d, %d of %d contracts\n", served, len(items), total)
			return nil
		})
	},
}

var contractsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one contract with clauses, insights and evidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(ctx context.Context, a *app, _ model.Identity) error {
			detail, found, err := a.store.GetContractDetail(ctx, args[0])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("contract %s not found", args[0])
			}
			printContractDetail(cmd.OutOrStdout(), detail)
			return nil
		})
	},
}

func init() {
	contractsListCmd.Flags().String("search", "", "match name or parties")
	contractsListCmd.Flags().String("status", "", "Active, Expired or Renewal Due")
	contractsListCmd.Flags().String("risk", "", "High, Medium or Low")
	contractsListCmd.Flags().Int("page", 1, "page number")
	contractsCmd.AddCommand(contractsListCmd, contractsShowCmd)
	rootCmd.AddCommand(contractsCmd)
}

func printContracts(w io.Writer, items []model.ContractSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPARTIES\tEXPIRY\tSTATUS\tRISK")
	for _, c := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Parties, c.Expiry, c.Status, c.Risk)
	}
	tw.Flush()
}

func printContractDetail(w io.Writer, d model.ContractDetail) {
	fmt.Fprintf(w, "%s\n%s\n", d.Name, d.Parties)
	fmt.Fprintf(w, "%s to %s  status: %s  risk: %s\n", d.Start, d.Expiry, d.Status, d.Risk)

	if len(d.Clauses) > 0 {
		fmt.Fprintln(w, "\nClauses")
		for _, cl := range d.Clauses {
			fmt.Fprintf(w, "  %s (%d%%): %s\n", cl.Title, model.Percent(cl.Confidence), cl.Summary)
		}
	}
	if len(d.Insights) > 0 {
		fmt.Fprintln(w, "\nInsights")
		for _, in := range d.Insights {
			fmt.Fprintf(w, "  [%s] %s\n", in.Risk, in.Message)
		}
	}
	if len(d.Evidence) > 0 {
		fmt.Fprintln(w, "\nEvidence")
		for _, ev := range d.Evidence {
			fmt.Fprintf(w, "  %s (%d%%): %q\n", ev.Source, model.Percent(ev.Relevance), ev.Snippet)
		}
	}
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <paths...>",
	Short: "Run local files through the simulated upload",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidates := make([]model.FileCandidate, 0, len(args))
		for _, path := range args {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			candidates = append(candidates, model.FileCandidate{Name: filepath.Base(path), Size: info.Size()})
		}

		return withSession(func(ctx context.Context, a *app, _ model.Identity) error {
			return runUpload(ctx, cmd.OutOrStdout(), a.store, candidates)
		})
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}

// runUpload submits candidates and prints every status change until the batch settles.
func runUpload(ctx context.Context, out io.Writer, store *service.ContractsStore, candidates []model.FileCandidate) error {
	updates, cancel := store.SubscribeUploads()
	defer cancel()

	records := store.UploadFiles(candidates)
	if len(records) == 0 {
		return errors.New("no supported files; allowed types are " + strings.Join(cfg.Upload.AllowedExtensions, ", "))
	}
	if skipped := len(candidates) - len(records); skipped > 0 {
		fmt.Fprintf(out, "skipped %d unsupported file(s)\n", skipped)
	}

	seen := make(map[string]model.UploadStatus, len(records))
	for _, rec := range records {
		seen[rec.ID] = model.UploadPending
	}

	var failed int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-updates:
			present, pending := 0, 0
			for _, rec := range snap.Files {
				last, ours := seen[rec.ID]
				if !ours {
					continue
				}
				present++
				if rec.Status != last {
					seen[rec.ID] = rec.Status
					fmt.Fprintf(out, "%s %s (%s) %s\n", rec.Status.Icon(), rec.Name, model.FormatFileSize(rec.Size), rec.Status.Label())
					if rec.Status == model.UploadError {
						failed++
					}
				}
				if !rec.Status.Terminal() {
					pending++
				}
			}
			// Snapshots taken before the batch was enqueued carry none of its records.
			if present > 0 && pending == 0 {
				if failed > 0 {
					return fmt.Errorf("%d of %d upload(s) failed", failed, len(records))
				}
				return nil
			}
		}
	}
}

// --- fixtures ---

var fixturesCmd = &cobra.Command{
	Use:   "fixtures",
	Short: "Manage fixture data",
}

var fixturesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Copy the local fixture files into the MinIO bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Minio.Endpoint == "" {
			return errors.New("minio.endpoint is not configured")
		}
		svc, err := service.NewMinioFixtures(&cfg.Minio)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if err := svc.EnsureBucket(ctx); err != nil {
			return err
		}
		if err := svc.Seed(ctx, cfg.Fixtures.Dir); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %s/%s from %s\n", cfg.Minio.Bucket, cfg.Minio.Prefix, cfg.Fixtures.Dir)
		return nil
	},
}

func init() {
	fixturesCmd.AddCommand(fixturesSeedCmd)
	rootCmd.AddCommand(fixturesCmd)
}
