// Package internal drives the oxrq pipeline: classifying command line
// arguments, loading RDF sources into the dataset, dispatching the
// SPARQL operation and serializing whatever comes back.
package internal

import "strings"

// Options mirror the command line surface of the tool.
type Options struct {
	// InputFormat applies to standard input only; files resolve their
	// format from the extension.
	InputFormat  string
	OutputFormat string
	BaseIRI      string
	// FileQuery treats the query positional as a file path.
	FileQuery bool
	// NoStdin suppresses reading standard input when data files are
	// given.
	NoStdin bool
}

// Job is the outcome of argument classification: what the query text
// is (or where it comes from), which files carry data, and whether
// standard input participates.
type Job struct {
	QueryBody string
	QueryFile string
	DataFiles []string
	UseStdin  bool
}

// Collect decides the role of every positional argument. The first
// positional is the query body unless FileQuery reinterprets it as a
// file; any file ending in .rq is the query file (the last one wins);
// a literal "-" forces standard input even under NoStdin.
func Collect(opts Options, args []string) Job {
	var job Job
	files := args
	if len(args) > 0 {
		job.QueryBody = args[0]
		files = args[1:]
	}
	if opts.FileQuery && job.QueryBody != "" {
		files = append(append([]string{}, files...), job.QueryBody)
		job.QueryBody = ""
	}

	forceStdin := false
	for _, path := range files {
		if path == "-" {
			forceStdin = true
			continue
		}
		if strings.HasSuffix(path, ".rq") {
			job.QueryFile = path
			continue
		}
		job.DataFiles = append(job.DataFiles, path)
	}

	job.UseStdin = !(opts.NoStdin && len(job.DataFiles) > 0) || forceStdin
	return job
}
