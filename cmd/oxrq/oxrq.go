package main

import (
	goflag "flag"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/niklasl/oxrq/clog"
	"github.com/niklasl/oxrq/internal"
	"github.com/niklasl/oxrq/version"

	// Route logging through glog.
	_ "github.com/niklasl/oxrq/clog/glog"

	// Load all supported RDF formats.
	_ "github.com/cayleygraph/quad/jsonld"
	_ "github.com/cayleygraph/quad/nquads"
	_ "github.com/niklasl/oxrq/rdf/rdfxml"
	_ "github.com/niklasl/oxrq/rdf/turtle"
)

// NewCmd creates the command
func NewCmd() *cobra.Command {
	var opts internal.Options
	var repl bool
	var verbosity int

	cmd := &cobra.Command{
		Use:     "oxrq [query] [file...]",
		Short:   "Run a SPARQL query or update over RDF data from stdin and files.",
		Version: version.Version,
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbosity > 0 {
				goflag.Set("v", strconv.Itoa(verbosity))
				clog.SetV(verbosity)
			}
			opts.InputFormat = viper.GetString("input-format")
			opts.OutputFormat = viper.GetString("output-format")
			opts.BaseIRI = viper.GetString("base-iri")
			if repl {
				return internal.Repl(opts, args)
			}
			return internal.Run(opts, args, cmd.InOrStdin(), cmd.OutOrStdout())
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringP("input-format", "i", "", "format of data read from stdin (default turtle)")
	cmd.Flags().StringP("output-format", "o", "", "output format (default tsv for query results, trig for RDF)")
	cmd.Flags().StringP("base-iri", "b", "", "base IRI for parsing data and query")
	cmd.Flags().BoolVarP(&opts.FileQuery, "file-query", "f", false, "treat the query argument as a file path")
	cmd.Flags().BoolVarP(&opts.NoStdin, "no-stdin", "n", false, "do not read from stdin when files are given (unless '-' is a file)")
	cmd.Flags().BoolVarP(&repl, "repl", "r", false, "read queries interactively after loading data")
	cmd.Flags().IntVarP(&verbosity, "verbosity", "v", 0, "log verbosity level")

	viper.SetEnvPrefix("oxrq")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlag("input-format", cmd.Flags().Lookup("input-format"))
	viper.BindPFlag("output-format", cmd.Flags().Lookup("output-format"))
	viper.BindPFlag("base-iri", cmd.Flags().Lookup("base-iri"))

	return cmd
}

func main() {
	goflag.Set("logtostderr", "true")
	cmd := NewCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
