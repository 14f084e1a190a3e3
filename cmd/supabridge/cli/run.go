package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/supabridge/supabridge/internal/batch"
	"github.com/supabridge/supabridge/internal/model"
)

// batchFile is the on-disk batch format. YAML is a superset of JSON, so
// one decoder handles both.
type batchFile struct {
	Items           []batchItem `yaml:"items" json:"items"`
	ContinueOnFail  bool        `yaml:"continueOnFail" json:"continueOnFail"`
	StrictOperators bool        `yaml:"strictOperators" json:"strictOperators"`
}

type batchItem struct {
	Resource  string         `yaml:"resource" json:"resource"`
	Operation string         `yaml:"operation" json:"operation"`
	Params    map[string]any `yaml:"parameters" json:"parameters"`
}

func newRunCmd() *cobra.Command {
	var (
		file            string
		continueOnFail  bool
		strictOperators bool
		outputFile      string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch of operations from a file",
		Long: `Run a batch of database and storage operations described in a YAML or
JSON file. Items execute sequentially in declaration order; each item names
a resource, an operation, and the operation's parameters.`,
		Example: `  supabridge run -f batch.yaml
  supabridge run -f batch.yaml --continue-on-fail
  supabridge run -f batch.json -o results.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, file, continueOnFail, strictOperators, outputFile)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "batch file to execute (YAML or JSON)")
	cmd.Flags().BoolVar(&continueOnFail, "continue-on-fail", false, "record per-item errors and keep going instead of aborting")
	cmd.Flags().BoolVar(&strictOperators, "strict-operators", false, "reject unrecognized filter operators instead of falling back to eq")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "write results to file instead of stdout")
	cmd.MarkFlagRequired("file")

	return cmd
}

func runBatch(cmd *cobra.Command, file string, continueOnFail, strictOperators bool, outputFile string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}

	var bf batchFile
	if err := yaml.Unmarshal(raw, &bf); err != nil {
		return fmt.Errorf("parse batch file: %w", err)
	}
	if len(bf.Items) == 0 {
		return fmt.Errorf("batch file has no items")
	}

	items := make([]model.OperationRequest, 0, len(bf.Items))
	for i, item := range bf.Items {
		resource, err := model.ParseResource(item.Resource)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		op, err := model.ParseOperation(resource, item.Operation)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		items = append(items, model.OperationRequest{
			Resource:  resource,
			Operation: op,
			Params:    model.Params(item.Params),
		})
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	results, err := batch.Run(cmd.Context(), client, items, batch.Options{
		ContinueOnFail:  continueOnFail || bf.ContinueOnFail,
		StrictOperators: strictOperators || bf.StrictOperators,
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if outputFile != "" {
		return os.WriteFile(outputFile, append(out, '\n'), 0644)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
