package dictionary

import (
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/ir"
	"github.com/roach88/datastore/internal/postimport"
)

// Mode selects where a resource's dictionary comes from.
type Mode string

const (
	ModeNone      Mode = "none"
	ModeInline    Mode = "inline"
	ModeReference Mode = "reference"
)

// ParseMode validates a configured mode. Empty means ModeNone.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeNone:
		return ModeNone, nil
	case ModeInline, ModeReference:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown dictionary mode %q (want none, inline or reference)", s)
}

// Discovery resolves the dictionary of a resource.
type Discovery struct {
	mode     Mode
	registry *Registry
}

// NewDiscovery creates a discovery for mode. registry may be nil unless
// mode is ModeReference.
func NewDiscovery(mode Mode, registry *Registry) *Discovery {
	return &Discovery{mode: mode, registry: registry}
}

// Mode returns the configured mode.
func (d *Discovery) Mode() Mode {
	return d.mode
}

// Dictionary returns the dictionary for res.
//
// Returns an error wrapping postimport.ErrSkipped in ModeNone and a
// *postimport.NoDictionaryError when the resource has none.
func (d *Discovery) Dictionary(res ir.Resource) (*ir.DataDictionary, error) {
	noDict := &postimport.NoDictionaryError{ResourceID: res.ID, Version: res.Version}

	switch d.mode {
	case ModeInline:
		if res.Dictionary == nil {
			return nil, noDict
		}
		return res.Dictionary, nil

	case ModeReference:
		if res.DescribedBy == "" || d.registry == nil {
			return nil, noDict
		}
		dict, ok := d.registry.Get(res.DescribedBy)
		if !ok {
			return nil, noDict
		}
		return &dict, nil

	default:
		return nil, errors.Wrap(postimport.ErrSkipped, "dictionary mode none")
	}
}
