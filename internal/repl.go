// Copyright 2014 The Cayley Authors. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/cayleygraph/quad/nquads"
	"github.com/peterh/liner"

	"github.com/niklasl/oxrq/clog"
	"github.com/niklasl/oxrq/rdf"
	"github.com/niklasl/oxrq/sparql"
	"github.com/niklasl/oxrq/sparql/results"
)

const (
	ps1 = "oxrq> "
	ps2 = "...   "

	history = ".oxrq_history"
)

func trace(s string) (string, time.Time) {
	return s, time.Now()
}

func un(s string, startTime time.Time) {
	endTime := time.Now()

	fmt.Printf(s, float64(endTime.UnixNano()-startTime.UnixNano())/float64(1e6))
}

// Repl loads every data source and then reads SPARQL operations
// interactively, executing each against the in-memory dataset. Updates
// mutate the dataset for subsequent queries. Standard input belongs to
// the terminal here, so it never participates as a data source.
func Repl(opts Options, args []string) error {
	job := Collect(opts, args)
	ds := rdf.NewDataset()
	state := &rdf.ParseState{BaseOverride: opts.BaseIRI}

	for _, path := range job.DataFiles {
		if err := LoadFile(ds, state, path); err != nil {
			if errors.Is(err, rdf.ErrUnknownFormat) || errors.Is(err, rdf.ErrMissingExtension) {
				return err
			}
			clog.Errorf("Error in file %q: %v", path, err)
		}
	}

	term, err := terminal(history)
	if os.IsNotExist(err) {
		fmt.Printf("creating new history file: %q\n", history)
	}
	defer persist(term, history)

	var code string

	for {
		prompt := ps1
		if len(code) > 0 {
			prompt = ps2
		}
		line, err := term.Prompt(prompt)
		if err != nil {
			if err == io.EOF {
				fmt.Println()
				return nil
			}
			return err
		}

		term.AppendHistory(line)

		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		if code == "" {
			cmd, cmdArgs := splitLine(line)

			switch cmd {
			case ":debug":
				cmdArgs = strings.TrimSpace(cmdArgs)
				debug, err := strconv.ParseBool(cmdArgs)
				if err != nil {
					fmt.Printf("Error: cannot parse %q as a boolean\n", cmdArgs)
					continue
				}
				if debug {
					clog.SetV(2)
				} else {
					clog.SetV(0)
				}
				fmt.Printf("Debug set to %t\n", debug)
				continue

			case ":a":
				q, err := nquads.Parse(cmdArgs)
				if err != nil {
					fmt.Printf("Error: not a valid quad: %v\n", err)
					continue
				}
				ds.AddQuad(q)
				continue

			case ":d":
				q, err := nquads.Parse(cmdArgs)
				if err != nil {
					fmt.Printf("Error: not a valid quad: %v\n", err)
					continue
				}
				ds.DeleteQuad(q)
				continue

			case "help":
				fmt.Printf("Help\n\texit // Exit\n\thelp // this help\n\t:a <quad> // add quad\n\t:d <quad> // delete quad\n\t:debug [t|f]\n")
				continue

			case "exit", ":quit":
				return nil

			default:
				if cmd[0] == ':' {
					fmt.Printf("Unknown command: %q\n", cmd)
					continue
				}
			}
		}

		code += line + "\n"
		if unclosed(code) > 0 {
			// collect more input
			continue
		}

		if err := runOnce(ds, state, state.PrefixLines()+code, opts.OutputFormat); err != nil {
			fmt.Println("Error: ", err)
		}
		code = ""
	}
}

// runOnce executes one interactive operation. Updates mutate the
// dataset silently; a constructed graph is printed without replacing
// the loaded data.
func runOnce(ds *rdf.Dataset, state *rdf.ParseState, text, outFormat string) error {
	q, qerr := sparql.ParseQuery(text, state.Base())
	if qerr != nil {
		u, uerr := sparql.ParseUpdate(text, state.Base())
		if uerr != nil {
			return fmt.Errorf("invalid SPARQL query: %v", qerr)
		}
		return u.Apply(ds)
	}

	startTrace, startTime := trace("Elapsed time: %g ms\n\n")
	res, err := q.Execute(ds, true)
	if err != nil {
		return err
	}
	switch r := res.(type) {
	case *sparql.Solutions:
		if err := writeSolutions(os.Stdout, r, outFormat); err != nil {
			return err
		}
		if n := r.Len(); n > 0 {
			rs := "Result"
			if n > 1 {
				rs += "s"
			}
			fmt.Printf("-----------\n%d %s\n", n, rs)
			un(startTrace, startTime)
		}
	case sparql.Boolean:
		f, err := results.Resolve(outFormat)
		if err != nil {
			return err
		}
		return f.Boolean(os.Stdout, bool(r))
	case *sparql.Graph:
		out := rdf.NewDataset()
		if _, err := out.LoadFrom(r); err != nil {
			return err
		}
		return DumpDataset(os.Stdout, out, state, outFormat)
	}
	return nil
}

// unclosed counts bracket groups still open in code, used to decide
// whether an interactive operation is complete.
func unclosed(code string) int {
	depth := 0
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '{', '(', '[':
			depth++
		case '}', ')', ']':
			depth--
		case '<':
			for i++; i < len(code) && code[i] != '>' && code[i] != '\n'; i++ {
			}
		case '#':
			for i++; i < len(code) && code[i] != '\n'; i++ {
			}
		}
	}
	return depth
}

// Splits a line into a command and its arguments
// e.g. ":a <s> <p> <o> ." will be split into ":a" and " <s> <p> <o> ."
func splitLine(line string) (string, string) {
	var command, arguments string

	line = strings.TrimSpace(line)

	if len(line) > 0 {
		command = strings.Fields(line)[0]

		if len(line) > len(command) {
			arguments = line[len(command):]
		}
	}

	return command, arguments
}

func terminal(path string) (*liner.State, error) {
	term := liner.NewLiner()

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c

		err := persist(term, history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to properly clean up terminal: %v\n", err)
			os.Exit(1)
		}

		os.Exit(0)
	}()

	f, err := os.Open(path)
	if err != nil {
		return term, err
	}
	defer f.Close()
	_, err = term.ReadHistory(f)
	return term, err
}

func persist(term *liner.State, path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0666)
	if err != nil {
		return fmt.Errorf("could not open %q to append history: %v", path, err)
	}
	defer f.Close()
	_, err = term.WriteHistory(f)
	if err != nil {
		return fmt.Errorf("could not write history to %q: %v", path, err)
	}
	return term.Close()
}
