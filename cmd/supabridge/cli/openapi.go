package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/supabridge/supabridge/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		baseURL    string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long:  "Generate the OpenAPI 3.1 specification for the Supabridge HTTP API.",
		Example: `  supabridge openapi
  supabridge openapi --base-url https://bridge.example.com -o spec.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := openapi.Generate(baseURL)
			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("encode spec: %w", err)
			}
			if outputFile != "" {
				return os.WriteFile(outputFile, append(out, '\n'), 0644)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "Server URL to embed in the document")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")

	return cmd
}
