package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/buyercheck/backend/internal/domain"
	"github.com/buyercheck/backend/internal/infrastructure/apiclient"
	"github.com/buyercheck/backend/internal/infrastructure/transfer"
)

var (
	serverURL   string
	listQuery   string
	transferIn  string
	transferOut string
	createInput domain.EntityInput
)

var entityCmd = &cobra.Command{
	Use:   "entity",
	Short: "Manage the entity directory of a running server",
}

var entityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entities, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := newClient().ListEntities(cmd.Context(), listQuery)
		if err != nil {
			return eris.Wrap(err, "list entities")
		}
		return printEntities(cmd.OutOrStdout(), records)
	},
}

var entityCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an entity from flags",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rec, err := newClient().CreateEntity(cmd.Context(), createInput)
		if err != nil {
			return eris.Wrap(err, "create entity")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", rec.Name, rec.IdentityHash)
		return nil
	},
}

var entityDeleteCmd = &cobra.Command{
	Use:   "delete HASH",
	Short: "Delete an entity by identity hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteEntity(cmd.Context(), args[0]); err != nil {
			return eris.Wrap(err, "delete entity")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
		return nil
	},
}

var entityImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Create entities from a YAML or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		result, err := importEntities(cmd.Context(), newClient(), transferIn)
		if err != nil {
			return err
		}
		zap.L().Info("import complete",
			zap.String("file", transferIn),
			zap.Int("created", result.Created),
			zap.Int("skipped", result.Skipped))
		fmt.Fprintf(cmd.OutOrStdout(), "created %d, skipped %d\n", result.Created, result.Skipped)
		return nil
	},
}

var entityExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every entity to a YAML or XLSX file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		n, err := exportEntities(cmd.Context(), newClient(), transferOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d entities to %s\n", n, transferOut)
		return nil
	},
}

func init() {
	entityCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server base URL (default http://localhost:<server.port>)")

	entityListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "filter by entity name")

	f := entityCreateCmd.Flags()
	f.StringVar(&createInput.Entity, "entity", "", "entity display name")
	f.StringVar(&createInput.Name, "name", "", "registered buyer name")
	f.StringVar(&createInput.TIN, "tin", "", "tax identification number")
	f.StringVar(&createInput.Type, "type", "", "ID type (BRN, NRIC, PASSPORT, ARMY)")
	f.StringVar(&createInput.ID, "id", "", "registration, identification or passport number")
	f.StringVar(&createInput.SST, "sst", "", "SST registration number")
	f.StringVar(&createInput.Address, "address", "", "comma-separated address")
	f.StringVar(&createInput.Email, "email", "", "e-mail address")
	f.StringVar(&createInput.ContactNumber, "contact", "", "contact number")
	for _, name := range []string{"entity", "name", "tin", "type", "id", "sst", "address", "email", "contact"} {
		_ = entityCreateCmd.MarkFlagRequired(name)
	}

	entityImportCmd.Flags().StringVar(&transferIn, "file", "", "path to .yaml, .yml or .xlsx file (required)")
	_ = entityImportCmd.MarkFlagRequired("file")

	entityExportCmd.Flags().StringVar(&transferOut, "file", "", "path to .yaml, .yml or .xlsx file (required)")
	_ = entityExportCmd.MarkFlagRequired("file")

	entityCmd.AddCommand(entityListCmd, entityCreateCmd, entityDeleteCmd, entityImportCmd, entityExportCmd)
	rootCmd.AddCommand(entityCmd)
}

func newClient() *apiclient.Client {
	url := serverURL
	if url == "" {
		url = "http://localhost:" + cfg.Server.Port
	}
	client := apiclient.NewClient(url, zap.L())
	client.SetDebug(cfg.Server.Environment == "development")
	return client
}

// entityClient is the part of the API client the transfer commands use
type entityClient interface {
	ListEntities(ctx context.Context, query string) ([]domain.EntityRecord, error)
	CreateEntity(ctx context.Context, input domain.EntityInput) (*domain.EntityRecord, error)
}

type importResult struct {
	Created int
	Skipped int
}

// importEntities creates every entity in the file. Rows are sent last to
// first so the file's first row ends up at the front of the directory.
// Duplicates are skipped; any other failure stops the import.
func importEntities(ctx context.Context, client entityClient, path string) (importResult, error) {
	var result importResult

	format, err := transfer.FormatFromPath(path)
	if err != nil {
		return result, err
	}

	file, err := os.Open(path)
	if err != nil {
		return result, eris.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	inputs, err := transfer.Decode(file, format)
	if err != nil {
		return result, eris.Wrapf(err, "read %s", path)
	}

	for i := len(inputs) - 1; i >= 0; i-- {
		_, err := client.CreateEntity(ctx, inputs[i])
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, domain.ErrDuplicateName), errors.Is(err, domain.ErrDuplicateContent):
			zap.L().Warn("skipping duplicate entity", zap.String("entity", inputs[i].Entity), zap.Error(err))
			result.Skipped++
		default:
			return result, eris.Wrapf(err, "create %q", inputs[i].Entity)
		}
	}
	return result, nil
}

// exportEntities writes the directory in store order
func exportEntities(ctx context.Context, client entityClient, path string) (int, error) {
	format, err := transfer.FormatFromPath(path)
	if err != nil {
		return 0, err
	}

	records, err := client.ListEntities(ctx, "")
	if err != nil {
		return 0, eris.Wrap(err, "list entities")
	}

	inputs := make([]domain.EntityInput, 0, len(records))
	for _, rec := range records {
		inputs = append(inputs, domain.InputFromRecord(rec))
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "create %s", path)
	}
	if err := transfer.Encode(file, format, inputs); err != nil {
		file.Close()
		return 0, eris.Wrapf(err, "write %s", path)
	}
	if err := file.Close(); err != nil {
		return 0, eris.Wrapf(err, "close %s", path)
	}
	return len(inputs), nil
}

func printEntities(w io.Writer, records []domain.EntityRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tNAME\tTIN\tHASH")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			rec.Name, rec.Fields[domain.FieldName], rec.Fields[domain.FieldTIN], rec.IdentityHash)
	}
	return tw.Flush()
}
