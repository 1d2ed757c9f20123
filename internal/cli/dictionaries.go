package cli

import (
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/roach88/datastore/internal/dictionary"
)

// DictionaryInfo summarizes one loaded dictionary.
type DictionaryInfo struct {
	ID     string `json:"id"`
	Title  string `json:"title,omitempty"`
	Fields int    `json:"fields"`
}

// DictionariesResult lists the dictionaries of a directory.
type DictionariesResult struct {
	Dir          string           `json:"dir"`
	Dictionaries []DictionaryInfo `json:"dictionaries"`
}

func (r DictionariesResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%d dictionaries in %s\n", len(r.Dictionaries), r.Dir)
	for _, d := range r.Dictionaries {
		fmt.Fprintf(w, "  %s (%d fields)", d.ID, d.Fields)
		if d.Title != "" {
			fmt.Fprintf(w, " %s", d.Title)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// NewDictionariesCommand creates the dictionaries command.
func NewDictionariesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dictionaries <dir>",
		Short: "Validate and list data dictionaries",
		Long: `Load every .json, .yaml, .yml and .cue dictionary under a directory,
validate it, and list the dictionary IDs available to reference mode.

Example:
  datastore dictionaries ./dictionaries`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDictionaries(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDictionaries(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	registry := dictionary.NewRegistry()
	if err := registry.LoadDir(dir); err != nil {
		var loadErr *dictionary.LoadError
		if errors.As(err, &loadErr) {
			if err := formatter.Error(ErrCodeDictionary, loadErr.Error(), nil); err != nil {
				return err
			}
			return WrapExitError(ExitFailure, "invalid dictionary", err)
		}
		return formatter.Fail(ErrCodeDictionary, ExitFailure, "invalid dictionary", err)
	}

	result := DictionariesResult{Dir: dir, Dictionaries: []DictionaryInfo{}}
	for _, id := range registry.IDs() {
		d, _ := registry.Get(id)
		result.Dictionaries = append(result.Dictionaries, DictionaryInfo{ID: d.ID, Title: d.Title, Fields: len(d.Fields)})
	}
	return formatter.Success(result)
}
