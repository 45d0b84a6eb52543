package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/your-org/docflow/pkg/xmldoc"
)

var (
	decodeFormat   string
	decodeEncoding string
)

var decodeCmd = &cobra.Command{
	Use:   "decode FILE|-",
	Short: "Decode an XML payload and print its element tree",
	Long: `Decode the XML payload in FILE (or stdin when FILE is "-") with the same decoder
the ingestion worker uses, and print the resulting tree as JSON or YAML.

Use --encoding to inflate a compressed payload first (gzip, zstd or xz).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		r, err := xmldoc.NewReader(decodeEncoding, in)
		if err != nil {
			return err
		}
		defer r.Close()

		payload, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read payload: %w", err)
		}

		doc, err := xmldoc.Decode(payload)
		if err != nil {
			return err
		}
		return writeDocument(cmd.OutOrStdout(), doc, decodeFormat)
	},
}

func init() {
	decodeCmd.Flags().StringVarP(&decodeFormat, "format", "f", "json", "output format: json, yaml or xml")
	decodeCmd.Flags().StringVarP(&decodeEncoding, "encoding", "e", "", "content encoding of the input (gzip, zstd, xz)")
	rootCmd.AddCommand(decodeCmd)
}

func writeDocument(w io.Writer, doc *xmldoc.Document, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "xml":
		_, err := fmt.Fprintf(w, "%s\n", xmldoc.Marshal(doc))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
