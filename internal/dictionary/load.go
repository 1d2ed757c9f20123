package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/datastore/internal/ir"
)

// LoadError reports a dictionary file that could not be read.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Supported reports whether path has a dictionary file extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

// LoadFile reads the dictionaries in one file.
//
// JSON and YAML files hold a single dictionary. CUE files hold any number
// under a top-level "dictionary" struct keyed by ID:
//
//	dictionary: trees: {
//		title: "Street trees"
//		fields: [{name: "planted", type: "date", format: "%m/%d/%Y"}]
//	}
func LoadFile(path string) ([]ir.DataDictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read dictionary %s", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var d ir.DataDictionary
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, &LoadError{Path: path, Message: err.Error()}
		}
		return []ir.DataDictionary{d}, nil
	case ".yaml", ".yml":
		var d ir.DataDictionary
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, &LoadError{Path: path, Message: err.Error()}
		}
		return []ir.DataDictionary{d}, nil
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		return CompileCUE(v)
	}
	return nil, &LoadError{Path: path, Message: "unsupported dictionary file type"}
}

// CompileCUE extracts every dictionary under the "dictionary" struct.
func CompileCUE(v cue.Value) ([]ir.DataDictionary, error) {
	if err := v.Err(); err != nil {
		return nil, &LoadError{Message: err.Error(), Pos: v.Pos()}
	}

	dictsVal := v.LookupPath(cue.ParsePath("dictionary"))
	if !dictsVal.Exists() {
		return nil, &LoadError{Message: "no dictionary struct found", Pos: v.Pos()}
	}

	iter, err := dictsVal.Fields()
	if err != nil {
		return nil, &LoadError{Message: err.Error(), Pos: dictsVal.Pos()}
	}

	var out []ir.DataDictionary
	for iter.Next() {
		d, err := compileDictionary(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func compileDictionary(id string, v cue.Value) (ir.DataDictionary, error) {
	d := ir.DataDictionary{ID: id}

	if titleVal := v.LookupPath(cue.ParsePath("title")); titleVal.Exists() {
		title, err := titleVal.String()
		if err != nil {
			return d, &LoadError{Message: fmt.Sprintf("dictionary.%s.title: %v", id, err), Pos: titleVal.Pos()}
		}
		d.Title = title
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return d, &LoadError{Message: fmt.Sprintf("dictionary.%s: fields are required", id), Pos: v.Pos()}
	}
	iter, err := fieldsVal.List()
	if err != nil {
		return d, &LoadError{Message: fmt.Sprintf("dictionary.%s.fields: %v", id, err), Pos: fieldsVal.Pos()}
	}
	for iter.Next() {
		var f ir.DictionaryField
		if err := iter.Value().Decode(&f); err != nil {
			return d, &LoadError{Message: fmt.Sprintf("dictionary.%s.fields[%s]: %v", id, iter.Label(), err), Pos: iter.Value().Pos()}
		}
		d.Fields = append(d.Fields, f)
	}
	return d, nil
}
