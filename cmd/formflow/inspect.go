package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/validation"
)

func newThemeCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "theme <form-id> [form-id...]",
		Short: "Print the merged theme of one or more forms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "css" && format != "yaml" {
				return fmt.Errorf("unknown format %q (css or yaml)", format)
			}
			ctx := cmd.Context()
			rt, err := a.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Themes.Prefetch(ctx, args...); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, formID := range args {
				active := rt.Themes.Apply(ctx, formID)
				if len(args) > 1 {
					if i > 0 {
						fmt.Fprintln(out)
					}
					if format == "css" {
						fmt.Fprintf(out, "/* %s */\n", formID)
					} else {
						fmt.Fprintf(out, "# %s\n", formID)
					}
				}
				if format == "css" {
					fmt.Fprint(out, active.Stylesheet)
					continue
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(active.Config); err != nil {
					return err
				}
				if err := enc.Close(); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "css", "output format: css or yaml")
	return cmd
}

func newStepCmd(a *app) *cobra.Command {
	var withSchema bool
	cmd := &cobra.Command{
		Use:   "step <session-id> <number>",
		Short: "Print a step of a session without answering it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step number %q", args[1])
			}
			ctx := cmd.Context()
			rt, err := a.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			step, err := rt.Client.GetStep(ctx, args[0], n)
			if err != nil {
				page, _ := a.views.Failure(err)
				fmt.Fprint(cmd.OutOrStdout(), page)
				return err
			}

			out := cmd.OutOrStdout()
			header, err := a.views.StepHeader(model.FormDescriptor{}, step)
			if err != nil {
				return err
			}
			fmt.Fprint(out, header)

			schema := validation.Build(step.Questions)
			for _, field := range schema.Fields() {
				q := field.Question
				fmt.Fprintf(out, "  - %s (%s%s)\n", q.ID, q.Type, questionFlags(field.Required, q.Conditional != nil))
			}
			if !withSchema {
				return nil
			}
			doc, err := json.MarshalIndent(schema.OpenAPI(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s\n", doc)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSchema, "schema", false, "also print the step's answer schema as JSON")
	return cmd
}

func questionFlags(required, conditional bool) string {
	var flags []string
	if required {
		flags = append(flags, "required")
	}
	if conditional {
		flags = append(flags, "conditional")
	}
	if len(flags) == 0 {
		return ""
	}
	return ", " + strings.Join(flags, ", ")
}

func newCompletionCmd(a *app) *cobra.Command {
	var htmlOut string
	cmd := &cobra.Command{
		Use:   "completion <session-id>",
		Short: "Show and consume the stored completion of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := a.runtime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			data, err := rt.Completion(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				page, _ := a.views.NotFound("")
				fmt.Fprint(out, page)
				return err
			}
			if err != nil {
				return err
			}

			page, err := a.views.Completion(data)
			if err != nil {
				return err
			}
			fmt.Fprint(out, page)

			if htmlOut != "" {
				html, err := a.views.CompletionPage(data, rt.Themes.Active())
				if err != nil {
					return err
				}
				return os.WriteFile(htmlOut, []byte(html), 0o644)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&htmlOut, "html", "", "also write the completion page to this file")
	return cmd
}
