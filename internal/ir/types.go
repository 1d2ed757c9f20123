package ir

// Resource is a single external data file that is imported into a datastore table.
type Resource struct {
	ID       string `json:"id"`
	Version  string `json:"version,omitempty"`
	FilePath string `json:"file_path,omitempty"`
	MimeType string `json:"mime_type,omitempty"`

	// DescribedBy references a dictionary by ID (reference mode).
	DescribedBy string `json:"described_by,omitempty"`

	// Dictionary carries an inline dictionary (inline mode).
	Dictionary *DataDictionary `json:"dictionary,omitempty"`
}

// Identifier returns the key used for the resource's table and stored results.
// Format: "<id>__<version>", or just "<id>" when the resource is unversioned.
func (r Resource) Identifier() string {
	if r.Version == "" {
		return r.ID
	}
	return r.ID + "__" + r.Version
}

// DataDictionary describes the expected column types of a resource.
type DataDictionary struct {
	ID     string            `json:"id" yaml:"id"`
	Title  string            `json:"title,omitempty" yaml:"title,omitempty"`
	Fields []DictionaryField `json:"fields" yaml:"fields"`
}

// DictionaryField is one column of a data dictionary (frictionless table schema style).
type DictionaryField struct {
	Name        string `json:"name" yaml:"name"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Type        string `json:"type" yaml:"type"`
	Format      string `json:"format,omitempty" yaml:"format,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// ValidDictionaryTypes lists the field types a dictionary may declare.
var ValidDictionaryTypes = map[string]bool{
	"string":   true,
	"number":   true,
	"integer":  true,
	"date":     true,
	"datetime": true,
	"time":     true,
	"boolean":  true,
	"year":     true,
}

// PostImportStatus is the outcome of one post-import stage or run.
type PostImportStatus string

const (
	StatusDone    PostImportStatus = "done"
	StatusError   PostImportStatus = "error"
	StatusSkipped PostImportStatus = "skipped"
)
