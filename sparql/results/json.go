package results

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cayleygraph/quad"
)

type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

func termJSON(v quad.Value) jsonTerm {
	switch t := v.(type) {
	case quad.IRI:
		return jsonTerm{Type: "uri", Value: string(t)}
	case quad.BNode:
		return jsonTerm{Type: "bnode", Value: string(t)}
	case quad.String:
		return jsonTerm{Type: "literal", Value: string(t)}
	case quad.LangString:
		return jsonTerm{Type: "literal", Value: string(t.Value), Lang: t.Lang}
	case quad.TypedString:
		return jsonTerm{Type: "literal", Value: string(t.Value), Datatype: string(t.Type)}
	}
	return jsonTerm{Type: "literal", Value: plainText(v)}
}

type jsonWriter struct {
	w     io.Writer
	vars  []string
	first bool
	err   error
}

func newJSONWriter(w io.Writer, vars []string) (SolutionWriter, error) {
	head, err := json.Marshal(map[string]interface{}{"vars": vars})
	if err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintf(w, `{"head":%s,"results":{"bindings":[`, head); err != nil {
		return nil, err
	}
	return &jsonWriter{w: w, vars: vars, first: true}, nil
}

func (j *jsonWriter) WriteRow(row []quad.Value) error {
	if j.err != nil {
		return j.err
	}
	b := make(map[string]jsonTerm, len(row))
	for i, v := range row {
		if v == nil || i >= len(j.vars) {
			continue
		}
		b[j.vars[i]] = termJSON(v)
	}
	data, err := json.Marshal(b)
	if err != nil {
		j.err = err
		return err
	}
	sep := ","
	if j.first {
		sep = ""
		j.first = false
	}
	if _, err := fmt.Fprintf(j.w, "%s%s", sep, data); err != nil {
		j.err = err
		return err
	}
	return nil
}

func (j *jsonWriter) Close() error {
	if j.err != nil {
		return j.err
	}
	_, err := io.WriteString(j.w, "]}}\n")
	return err
}

func writeJSONBoolean(w io.Writer, value bool) error {
	_, err := fmt.Fprintf(w, `{"head":{},"boolean":%v}`+"\n", value)
	return err
}
