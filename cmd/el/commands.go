package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"effortline/internal/domain"
	"effortline/internal/engine"
	"effortline/internal/engine/auth"
	"effortline/internal/entry"
	"effortline/internal/repo"
)

func userCmd() *cobra.Command {
	u := &cobra.Command{
		Use:   "user",
		Short: "Manage sign-in identities",
	}
	u.AddCommand(userAddCmd())
	u.AddCommand(userListCmd())
	return u
}

func userAddCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "add <identity>",
		Short: "Register an identity or reset its secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = viper.GetString("secret")
			}
			if secret == "" {
				fmt.Fprint(os.Stderr, "secret: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil && line == "" {
					return err
				}
				secret = strings.TrimRight(line, "\r\n")
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				u, err := auth.Directory{Repo: r}.Register(ctx, args[0], secret)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(u)
				}
				fmt.Println("registered", u.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "sign-in secret (or EFFORTLINE_SECRET, else read from stdin)")
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				users, err := e.Repo.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := newTable(table.Row{"Identity", "Name", "Admin", "Created"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.ID, engine.DisplayName(u.ID), e.Policy.IsAuthorized(ctx, u.ID), u.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func apiKeyCmd() *cobra.Command {
	k := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "API keys authenticate automation with the X-Api-Key header. Each key acts as one identity; only its hash is stored.",
	}
	k.AddCommand(apiKeyCreateCmd())
	k.AddCommand(apiKeyListCmd())
	k.AddCommand(apiKeyDeleteCmd())
	return k
}

func apiKeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create <identity>",
		Short: "Create an API key; the key is printed once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				identity := strings.ToLower(strings.TrimSpace(args[0]))
				if _, err := r.GetUser(ctx, identity); err != nil {
					if errors.Is(err, repo.ErrNotFound) {
						return fmt.Errorf("unknown identity %s (register it with el user add)", identity)
					}
					return err
				}
				secret := "el_" + strings.ReplaceAll(uuid.NewString(), "-", "")
				key := domain.APIKey{
					ID:      uuid.NewString(),
					ActorID: identity,
					Name:    name,
					KeyHash: repo.HashAPIKey(secret),
				}
				if err := r.InsertAPIKey(ctx, key); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": key.ID, "actor_id": identity, "key": secret})
				}
				fmt.Printf("id:  %s\nkey: %s\n", key.ID, secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "label for the key")
	return cmd
}

func apiKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <identity>",
		Short: "List API keys of an identity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, strings.ToLower(strings.TrimSpace(args[0])))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := newTable(table.Row{"ID", "Name", "Created"})
				for _, k := range keys {
					tw.AppendRow(table.Row{k.ID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func apiKeyDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				return r.DeleteAPIKey(ctx, args[0])
			})
		},
	}
}

func submitCmd() *cobra.Command {
	var d domain.DraftEntry
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Validate and submit one entry",
		Long:  "Submits a single entry as --as. Every field is checked first; nothing is stored when any check fails.",
		RunE: func(cmd *cobra.Command, args []string) error {
			analyst, err := actingAs()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Commit(ctx, []domain.DraftEntry{d}, analyst)
				var rej *entry.RejectionError
				if errors.As(err, &rej) && !viper.GetBool("json") {
					printEntryErrors(rej.Errors[0])
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Println(res.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&d.DealName, "deal", "", "deal name")
	cmd.Flags().StringVar(&d.Department, "department", "", "department")
	cmd.Flags().StringVar(&d.Type, "type", "", "entry type")
	cmd.Flags().StringVar(&d.HoursWorked, "hours", "", "hours worked")
	cmd.Flags().StringVar(&d.TaskDate, "date", "", "task date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&d.Description, "description", "", "optional description")
	return cmd
}

func printEntryErrors(errs entry.ErrorMap) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	tw := newTable(table.Row{"Field", "Problem"})
	for _, f := range fields {
		tw.AppendRow(table.Row{f, errs[f]})
	}
	tw.Render()
}

func submissionsCmd() *cobra.Command {
	s := &cobra.Command{
		Use:   "submissions",
		Short: "Inspect committed entries",
	}
	var analyst string
	list := &cobra.Command{
		Use:   "list",
		Short: "List submissions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var subs []domain.Submission
				var err error
				if analyst != "" {
					subs, err = e.MySubmissions(ctx, strings.ToLower(analyst))
				} else {
					subs, err = e.Repo.ListSubmissions(ctx)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(subs)
				}
				printSubmissions(subs)
				return nil
			})
		},
	}
	list.Flags().StringVar(&analyst, "analyst", "", "only this analyst's submissions")
	s.AddCommand(list)
	return s
}

func printSubmissions(subs []domain.Submission) {
	tw := newTable(table.Row{"ID", "Analyst", "Deal", "Department", "Type", "Hours", "Task date", "Submitted"})
	var total float64
	for _, s := range subs {
		tw.AppendRow(table.Row{s.ID, engine.DisplayName(s.Analyst), s.DealName, s.Department, s.Type, s.HoursWorked, s.TaskDate, s.SubmittedAt})
		total += s.HoursWorked
	}
	tw.AppendFooter(table.Row{"", "", "", "", "Total", total, "", ""})
	tw.Render()
}

func ratingsCmd() *cobra.Command {
	r := &cobra.Command{
		Use:   "ratings",
		Short: "Rate submissions (admins only)",
		Long:  "Every ratings subcommand acts as --as, which must be listed under admins in the config.",
	}
	r.AddCommand(ratingsReconcileCmd())
	r.AddCommand(ratingsListCmd())
	r.AddCommand(ratingsRateCmd())
	r.AddCommand(ratingsUpdateCmd())
	return r
}

func ratingsReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Show unrated and rated submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			rater, err := actingAs()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				part, err := e.Reconcile(ctx, rater)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(part)
				}
				fmt.Printf("Unrated (%d)\n", len(part.Unrated))
				printSubmissions(part.Unrated)
				fmt.Printf("\nRated (%d)\n", len(part.Rated))
				tw := newTable(table.Row{"Submission", "Analyst", "Deal", "Hours", "Ratings", "Mine"})
				for _, item := range part.Rated {
					mine := ""
					if item.Mine != nil {
						mine = strconv.Itoa(item.Mine.Value)
					}
					tw.AppendRow(table.Row{item.Submission.ID, item.Submission.AnalystName, item.Submission.DealName,
						item.Submission.HoursWorked, len(item.Ratings), mine})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func ratingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ratings, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			rater, err := actingAs()
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListRatings(ctx, rater)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				printRatings(items)
				return nil
			})
		},
	}
}

func printRatings(items []domain.Rating) {
	tw := newTable(table.Row{"ID", "Submission", "Value", "Rated by", "Analyst", "Deal", "Rated at"})
	for _, rt := range items {
		tw.AppendRow(table.Row{rt.ID, rt.SubmissionID, rt.Value, rt.RatedBy, engine.DisplayName(rt.Analyst), rt.DealName, rt.RatedAt})
	}
	tw.Render()
}

func ratingsRateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rate <submission-id> <value>",
		Short: "Rate a submission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rater, err := actingAs()
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating value must be an integer: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.Rate(ctx, rater, args[0], value)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(res)
				}
				fmt.Printf("%s rating %s: %d\n", res.Transition, res.Rating.ID, res.Rating.Value)
				return nil
			})
		},
	}
}

func ratingsUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <rating-id> <value>",
		Short: "Change the value of a rating",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rater, err := actingAs()
			if err != nil {
				return err
			}
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating value must be an integer: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rt, err := e.UpdateRating(ctx, rater, args[0], value)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rt)
				}
				printRatings([]domain.Rating{rt})
				return nil
			})
		},
	}
}
