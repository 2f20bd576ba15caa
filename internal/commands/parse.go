package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/flateze/flateze/internal/extractor"
	"github.com/flateze/flateze/internal/mailbox"
	"github.com/flateze/flateze/internal/model"
)

func newParseCommand(configPath *string) *cobra.Command {
	var asJSON bool
	var markProcessed bool

	cmd := &cobra.Command{
		Use:   "parse <file.eml>...",
		Short: "Extract bills from email files without saving them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ex, err := parseExtractor(*configPath)
			if err != nil {
				return err
			}
			return runParse(cmd.OutOrStdout(), ex, args, asJSON, markProcessed)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON object per file")
	cmd.Flags().BoolVar(&markProcessed, "mark-processed", false, "move files that yield a bill into processed/")

	return cmd
}

// parseExtractor uses the project's rules when a config exists, otherwise
// the built-in rules.
func parseExtractor(configPath string) (*extractor.Extractor, error) {
	rs, err := projectRules(configPath)
	if err != nil {
		return nil, err
	}
	return extractor.New(rs), nil
}

type parseResult struct {
	File   string      `json:"file"`
	Bill   *parsedBill `json:"bill,omitempty"`
	Status string      `json:"status"`
	Error  string      `json:"error,omitempty"`
}

type parsedBill struct {
	Company     string    `json:"company_name"`
	Type        string    `json:"bill_type"`
	Amount      string    `json:"amount"`
	DueDate     string    `json:"due_date,omitempty"`
	BillDate    time.Time `json:"bill_date"`
	ReferenceID string    `json:"reference_id,omitempty"`
}

func newParsedBill(eb *model.ExtractedBill) *parsedBill {
	b := &parsedBill{
		Company:     eb.Company,
		Type:        string(eb.Type),
		Amount:      eb.Amount.StringFixed(2),
		BillDate:    eb.BillDate,
		ReferenceID: eb.ReferenceID,
	}
	if eb.DueDate != nil {
		b.DueDate = eb.DueDate.Format("2006-01-02")
	}
	return b
}

func runParse(w io.Writer, ex *extractor.Extractor, files []string, asJSON, markProcessed bool) error {
	enc := json.NewEncoder(w)
	var failed int

	for _, f := range files {
		res := parseFile(ex, f)
		if res.Status == "error" {
			failed++
		}
		if res.Bill != nil && markProcessed {
			d := mailbox.DirDialer{Dir: filepath.Dir(f)}
			if err := d.MarkProcessed(filepath.Base(f)); err != nil {
				return err
			}
		}

		if asJSON {
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			continue
		}
		switch res.Status {
		case "bill":
			b := res.Bill
			fmt.Fprintf(w, "%s: %s %s $%s billed %s", f, b.Company, b.Type, b.Amount, b.BillDate.Format("2006-01-02"))
			if b.DueDate != "" {
				fmt.Fprintf(w, " due %s", b.DueDate)
			}
			if b.ReferenceID != "" {
				fmt.Fprintf(w, " ref %s", b.ReferenceID)
			}
			fmt.Fprintln(w)
		case "no_bill":
			fmt.Fprintf(w, "%s: no bill\n", f)
		default:
			fmt.Fprintf(w, "%s: error: %s\n", f, res.Error)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be parsed", failed, len(files))
	}
	return nil
}

func parseFile(ex *extractor.Extractor, path string) parseResult {
	res := parseResult{File: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		res.Status, res.Error = "error", err.Error()
		return res
	}
	fallback := time.Now()
	if info, err := os.Stat(path); err == nil {
		fallback = info.ModTime()
	}

	eb, ok, err := ex.ExtractRaw(raw, fallback)
	switch {
	case err != nil:
		res.Status, res.Error = "error", err.Error()
	case !ok:
		res.Status = "no_bill"
	default:
		res.Status = "bill"
		res.Bill = newParsedBill(eb)
	}
	return res
}
