// Package importer loads CSV and TSV resources into datastore tables.
//
// Every column is imported as TEXT next to the synthetic row id; typing
// is left to the dictionary enforcer that runs after import.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/datastore"
	"github.com/roach88/datastore/internal/ir"
)

// DefaultBatchSize is the number of rows per insert.
const DefaultBatchSize = 500

// TableProvider resolves table handles. *datastore.Store implements it.
type TableProvider interface {
	StorageMap(identifiers []string) datastore.StorageMap
}

// Enqueuer accepts resources for post-import processing.
// *postimport.Queue implements it.
type Enqueuer interface {
	Enqueue(res ir.Resource) bool
}

// Summary describes a finished import.
type Summary struct {
	Identifier string   `json:"identifier"`
	Table      string   `json:"table"`
	Columns    []string `json:"columns"`
	Rows       int      `json:"rows"`
	Queued     bool     `json:"queued"`
}

// Importer creates and fills datastore tables.
type Importer struct {
	tables    TableProvider
	queue     Enqueuer
	batchSize int
}

// Option configures an Importer.
type Option func(*Importer)

// WithQueue hands every imported resource to q for post-import processing.
func WithQueue(q Enqueuer) Option {
	return func(i *Importer) {
		i.queue = q
	}
}

// WithBatchSize sets the number of rows per insert.
func WithBatchSize(n int) Option {
	return func(i *Importer) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// New creates an importer.
func New(tables TableProvider, opts ...Option) *Importer {
	i := &Importer{tables: tables, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import reads res.FilePath into the resource's table.
func (i *Importer) Import(ctx context.Context, res ir.Resource) (*Summary, error) {
	if res.FilePath == "" {
		return nil, errors.Newf("resource %s has no file path", res.ID)
	}
	f, err := os.Open(res.FilePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", res.FilePath)
	}
	defer f.Close()
	return i.ImportReader(ctx, res, f)
}

// ImportReader reads delimited data from r into the resource's table. An
// existing table is replaced. The header row names the columns.
func (i *Importer) ImportReader(ctx context.Context, res ir.Resource, r io.Reader) (*Summary, error) {
	comma, err := delimiter(res)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.Newf("resource %s is empty", res.ID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", res.ID)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	columns := datastore.ColumnNames(header)

	identifier := res.Identifier()
	table := i.tables.StorageMap([]string{identifier})[identifier]
	if table == nil {
		return nil, errors.Newf("no table handle for %s", identifier)
	}
	if err := table.Drop(ctx); err != nil && !errors.Is(err, datastore.ErrTableNotFound) {
		return nil, errors.Wrapf(err, "replace table of %s", identifier)
	}
	if err := table.Create(ctx, datastore.TextSchema(columns)); err != nil {
		return nil, err
	}

	summary := &Summary{Identifier: identifier, Table: table.Name(), Columns: columns}
	batch := make([][]any, 0, i.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := table.Insert(ctx, columns, batch); err != nil {
			return err
		}
		summary.Rows += len(batch)
		batch = batch[:0]
		return nil
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrapf(err, "read %s line %d", res.ID, line)
		}
		if len(record) > len(columns) {
			return nil, errors.Newf("%s line %d: %d values for %d columns", res.ID, line, len(record), len(columns))
		}
		if isBlank(record) {
			continue
		}

		row := make([]any, len(columns))
		for j := range columns {
			if j < len(record) {
				row[j] = record[j]
			}
		}
		batch = append(batch, row)
		if len(batch) == i.batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if i.queue != nil {
		summary.Queued = i.queue.Enqueue(res)
	}

	slog.Info("resource imported",
		"resource", identifier,
		"table", summary.Table,
		"columns", len(columns),
		"rows", summary.Rows,
		"queued", summary.Queued,
	)
	return summary, nil
}

func delimiter(res ir.Resource) (rune, error) {
	mime := strings.ToLower(res.MimeType)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "", "text/csv", "application/csv":
		if strings.HasSuffix(strings.ToLower(res.FilePath), ".tsv") {
			return '\t', nil
		}
		return ',', nil
	case "text/tab-separated-values":
		return '\t', nil
	}
	return 0, errors.Newf("unsupported mime type %q for resource %s", res.MimeType, res.ID)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
