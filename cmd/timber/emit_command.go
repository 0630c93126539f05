package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/timber/internal/logging"
	"github.com/crimson-sun/timber/pkg/timber"
)

func newEmitCommand(ctx *commandContext) *cobra.Command {
	var (
		levelFlag string
		message   string
		errSpecs  []string
		aggregate bool
		fields    []string
		policy    string
	)

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Emit one log call through the configured sinks and send the network buffer",
		Long: `Emit composes one log call and routes the resulting events.

Each --error takes domain:code[:description]. Repeated errors form a cause
chain, outermost first, or with --aggregate a set of independent failures.`,
		Example: `  timber emit -m "upload failed" --level error --error api:500:gateway --error s3:403:denied
  timber emit -m "sync failed" --policy multiple --aggregate --error disk:28 --error net:110`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPtr, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg := *cfgPtr
			if policy != "" {
				cfg.Events.Policy = policy
			}

			level, err := timber.ParseLevel(levelFlag)
			if err != nil {
				return err
			}
			chain, err := buildError(errSpecs, aggregate)
			if err != nil {
				return err
			}
			userInfo, err := parseFields(fields)
			if err != nil {
				return err
			}

			diag := logging.New(cmd.ErrOrStderr(), cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))
			l, err := timber.New(
				timber.WithConfig(cfg),
				timber.WithConsoleWriter(cmd.OutOrStdout()),
				timber.WithLogger(diag),
			)
			if err != nil {
				return err
			}

			opts := []timber.EntryOption{timber.WithUserInfo(userInfo)}
			if chain != nil {
				opts = append(opts, timber.WithError(chain))
			}
			events, emitErr := l.Emit(level, message, opts...)

			out := cmd.ErrOrStderr()
			fmt.Fprintf(out, "timber: emitted %d event(s) with policy=%s\n", len(events), cfg.Events.Policy)
			if emitErr != nil {
				fmt.Fprintf(out, "timber: %v\n", emitErr)
			}

			var sendErr error
			if n := l.Pending(); n > 0 {
				if sendErr = sendNow(cmd.Context(), l); sendErr == nil {
					fmt.Fprintf(out, "timber: sent %d network event(s)\n", n)
				}
			}
			closeErr := l.Close()
			return errors.Join(emitErr, sendErr, closeErr)
		},
	}

	cmd.Flags().StringVarP(&levelFlag, "level", "l", "info", "Level: verbose, debug, info, warning, error")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Log message")
	cmd.Flags().StringArrayVarP(&errSpecs, "error", "e", nil, "Error as domain:code[:description] (repeatable)")
	cmd.Flags().BoolVar(&aggregate, "aggregate", false, "Treat repeated --error values as independent failures")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "User info entry as key=value (repeatable)")
	cmd.Flags().StringVar(&policy, "policy", "", "Override events.policy: single or multiple")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

// sendNow force-sends the network buffer. SIGINT or SIGTERM cancels the send
// in flight instead of killing the process mid-request.
func sendNow(ctx context.Context, l *timber.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	result := l.ForceSend(ctx)
	for {
		select {
		case err := <-result:
			return err
		case sig := <-sigCh:
			fmt.Fprintf(os.Stderr, "\nreceived %v, cancelling send...\n", sig)
			l.Cancel()
		}
	}
}

// buildError turns domain:code[:description] specs into an error chain,
// outermost first, or into an aggregate when aggregate is set.
func buildError(specs []string, aggregate bool) (chain error, err error) {
	if len(specs) == 0 {
		return nil, nil
	}
	type parsed struct {
		domain string
		code   int
		info   map[string]any
	}
	items := make([]parsed, len(specs))
	for i, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid --error %q: want domain:code[:description]", spec)
		}
		code, convErr := strconv.Atoi(strings.TrimSpace(parts[1]))
		if convErr != nil {
			return nil, fmt.Errorf("invalid --error %q: code: %w", spec, convErr)
		}
		var info map[string]any
		if len(parts) == 3 && parts[2] != "" {
			info = map[string]any{"description": parts[2]}
		}
		items[i] = parsed{domain: strings.TrimSpace(parts[0]), code: code, info: info}
	}

	if aggregate {
		errs := make([]error, len(items))
		for i, it := range items {
			errs[i] = timber.NewError(it.domain, it.code, it.info)
		}
		return timber.JoinErrors(errs...), nil
	}

	last := items[len(items)-1]
	chain = timber.NewError(last.domain, last.code, last.info)
	for i := len(items) - 2; i >= 0; i-- {
		chain = timber.WrapError(chain, items[i].domain, items[i].code, items[i].info)
	}
	return chain, nil
}

// parseFields reads key=value pairs. Integer, float and boolean values keep
// their type; everything else is a string.
func parseFields(fields []string) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --field %q: want key=value", f)
		}
		out[key] = typedValue(value)
	}
	return out, nil
}

func typedValue(v string) any {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return v
}
