package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	formflow "github.com/goliatone/go-formflow"
	"github.com/goliatone/go-formflow/pkg/api"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/renderers/tui"
	"github.com/goliatone/go-formflow/pkg/session"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/validation"
)

type runOptions struct {
	sessionID string
	htmlOut   string
	tracking  map[string]string
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run <form-id>",
		Short: "Start or resume a form and answer it step by step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "resume this session id")
	cmd.Flags().StringVar(&opts.htmlOut, "html", "", "also write the completion page to this file")
	cmd.Flags().StringToStringVar(&opts.tracking, "track", nil, "tracking data sent with the session start (key=value)")
	return cmd
}

func (a *app) run(cmd *cobra.Command, formID string, opts *runOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	styles := tui.NewStyles()
	styles.SetInfoPrefix("! ")
	rt, err := a.runtime(ctx, formflow.WithThemeSink(styles))
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			a.logger.Warn("closing runtime", zap.Error(err))
		}
	}()

	prompterOpts := []tui.Option{
		tui.WithOutput(out),
		tui.WithStyles(styles),
		tui.WithEvaluator(rt.Flow.Evaluator()),
	}
	if a.prompts != nil {
		prompterOpts = append(prompterOpts, tui.WithPromptDriver(a.prompts))
	}
	prompter := tui.New(prompterOpts...)

	start := session.StartOptions{SessionID: opts.sessionID, Tracking: model.TrackingData(opts.tracking)}
	snap, err := rt.Flow.Start(ctx, formID, start)
	if errors.Is(err, session.ErrSessionComplete) {
		a.logger.Info("session already complete", zap.String("session_id", snap.Session.SessionID))
		return a.complete(ctx, cmd, rt, snap, opts.htmlOut)
	}
	if err != nil {
		return a.startFailed(cmd, formID, err)
	}
	a.logger.Info("session started",
		zap.String("form_id", formID),
		zap.String("session_id", snap.Session.SessionID),
		zap.Int("step", snap.Step.StepNumber))

	for {
		switch snap.State {
		case session.StateComplete:
			return a.complete(ctx, cmd, rt, snap, opts.htmlOut)

		case session.StateErrored:
			page, _ := a.views.Failure(snap.Err)
			fmt.Fprint(out, page)
			retry, err := prompter.Confirm(ctx, "Start again?", true)
			if err != nil {
				return err
			}
			if !retry {
				return snap.Err
			}
			snap, err = rt.Flow.Start(ctx, formID, session.StartOptions{Tracking: start.Tracking})
			if err != nil {
				return a.startFailed(cmd, formID, err)
			}

		case session.StateAwaitingInput:
			snap, err = a.step(ctx, cmd, rt, prompter, snap)
			if err != nil {
				return err
			}

		default:
			return fmt.Errorf("unexpected state %s", snap.State)
		}
	}
}

// step asks the current step and submits it. Local validation failures and
// server field errors keep the flow on the same step.
func (a *app) step(ctx context.Context, cmd *cobra.Command, rt *formflow.Runtime, prompter *tui.Prompter, snap session.Snapshot) (session.Snapshot, error) {
	header, err := a.views.StepHeader(snap.Form, snap.Step)
	if err != nil {
		return snap, err
	}
	fmt.Fprint(cmd.OutOrStdout(), header)

	answers, err := prompter.AskStep(ctx, snap.Step, rt.Flow.Answers(), api.FieldErrors(snap.Err))
	if err != nil {
		return snap, err
	}
	rt.Flow.SaveProgress(answers)

	action, err := prompter.Navigate(ctx, snap.Step)
	if err != nil {
		return snap, err
	}
	if action == tui.ActionBack {
		// a failed fetch leaves the flow errored, which the caller handles
		back, err := rt.Flow.GoBack(ctx)
		if err != nil {
			a.logger.Debug("go back", zap.Error(err))
		}
		return back, nil
	}

	next, err := rt.Flow.Submit(ctx, answers)
	var verr *validation.Error
	switch {
	case err == nil:
		return next, nil
	case errors.As(err, &verr):
		_ = prompter.Print(ctx, verr.Error())
		return next, nil
	case next.State == session.StateAwaitingInput:
		// server field errors are surfaced on the next ask
		next.Err = err
		return next, nil
	case next.State.Terminal():
		return next, nil
	default:
		return next, err
	}
}

func (a *app) complete(ctx context.Context, cmd *cobra.Command, rt *formflow.Runtime, snap session.Snapshot, htmlOut string) error {
	data, err := rt.Completion(ctx, snap.Session.SessionID)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound) && snap.Completion != nil:
		data = *snap.Completion
	case errors.Is(err, store.ErrNotFound):
		data = model.CompletionData{LeadStatus: model.LeadStatusUnknown}
	default:
		return err
	}

	page, err := a.views.Completion(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), page)

	if htmlOut == "" {
		return nil
	}
	html, err := a.views.CompletionPage(data, rt.Themes.Active())
	if err != nil {
		return err
	}
	if err := os.WriteFile(htmlOut, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", htmlOut, err)
	}
	a.logger.Info("completion page written", zap.String("path", htmlOut))
	return nil
}

func (a *app) startFailed(cmd *cobra.Command, formID string, err error) error {
	var page string
	if errors.Is(err, session.ErrFormNotFound) || errors.Is(err, session.ErrFormIDRequired) {
		page, _ = a.views.NotFound(formID)
	} else {
		page, _ = a.views.Failure(err)
	}
	fmt.Fprint(cmd.OutOrStdout(), page)
	return err
}
