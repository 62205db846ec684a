package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/buyercheck/backend/internal/domain"
)

var checkFile string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check buyer details from a file against the entity directory",
	Long: "Reads buyer fields (name, tin, type, id, sst, address, email, contactNumber) " +
		"from a YAML or JSON file, runs one matching pass on the server and prints the outcome.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fields, err := readObservation(checkFile)
		if err != nil {
			return err
		}
		view, err := runCheck(cmd.Context(), newClient(), fields)
		if err != nil {
			return err
		}
		return printCheck(cmd.OutOrStdout(), view)
	},
}

func init() {
	checkCmd.Flags().StringVar(&serverURL, "server", "", "server base URL (default http://localhost:<server.port>)")
	checkCmd.Flags().StringVar(&checkFile, "file", "", "path to a YAML or JSON file of buyer fields (required)")
	_ = checkCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(checkCmd)
}

// checkClient is the part of the API client a check uses
type checkClient interface {
	StartSession(ctx context.Context) (*domain.SessionView, error)
	Observe(ctx context.Context, sessionID string, fields domain.Fields) (*domain.SessionView, error)
	EndSession(ctx context.Context, sessionID string) error
}

// readObservation reads a flat key/value document. JSON parses as YAML.
// Unrecognized keys are dropped and null values stay absent.
func readObservation(path string) (domain.Fields, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}

	var raw map[string]*string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrapf(err, "parse %s", path)
	}

	fields := domain.Fields{}
	for k, v := range raw {
		key := domain.FieldKey(k)
		if !key.IsRecognized() {
			zap.L().Warn("ignoring unrecognized field", zap.String("key", k))
			continue
		}
		if v == nil {
			continue
		}
		fields[key] = *v
	}
	return fields, nil
}

// runCheck observes fields in a throwaway session
func runCheck(ctx context.Context, client checkClient, fields domain.Fields) (*domain.SessionView, error) {
	session, err := client.StartSession(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "start session")
	}
	defer func() {
		endCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.EndSession(endCtx, session.ID); err != nil {
			zap.L().Warn("failed to end session", zap.String("session_id", session.ID), zap.Error(err))
		}
	}()

	view, err := client.Observe(ctx, session.ID, fields)
	if err != nil {
		return nil, eris.Wrap(err, "observe")
	}
	return view, nil
}

func printCheck(w io.Writer, view *domain.SessionView) error {
	fmt.Fprintf(w, "phase: %s\n", view.State.Phase)
	if view.Alert != nil {
		fmt.Fprintf(w, "%s: %s\n", view.Alert.Title, view.Alert.Description)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range view.State.Candidates {
		marker := " "
		if i == view.State.Selected {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%d mismatched\n", marker, c.Record.Name, c.Record.IdentityHash, len(c.Discrepancies))
		for _, d := range c.Discrepancies {
			actual := "(missing)"
			if d.Actual != nil {
				actual = *d.Actual
			}
			fmt.Fprintf(tw, "    %s\texpected %q\tgot %q\n", d.Key.Label(), d.Expected, actual)
		}
	}
	return tw.Flush()
}
