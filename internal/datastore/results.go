package datastore

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/ir"
)

// NextSeq returns the sequence number for the next post-import run of a
// resource. Each resource is processed by one worker at a time, so the
// read-then-write is not raced.
func (s *Store) NextSeq(ctx context.Context, identifier string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COALESCE(MAX(seq), 0) + 1
		FROM post_import_results
		WHERE identifier = ?
	`), identifier).Scan(&seq)
	if err != nil {
		return 0, errors.Wrapf(err, "next seq for %s", identifier)
	}
	return seq, nil
}

// WriteResult persists one post-import record. Stages are stored as
// canonical JSON.
func (s *Store) WriteResult(ctx context.Context, rec ir.PostImportRecord) error {
	stages, err := marshalStages(rec.Stages)
	if err != nil {
		return errors.Wrap(err, "write result")
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO post_import_results
		(id, identifier, resource_id, resource_version, run_id, seq, status, message, stages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		rec.ID,
		rec.Identifier(),
		rec.ResourceID,
		rec.ResourceVersion,
		rec.RunID,
		rec.Seq,
		string(rec.Status),
		rec.Message,
		stages,
	)
	if err != nil {
		return errors.Wrapf(err, "write result for %s", rec.Identifier())
	}
	return nil
}

// ReadResults returns every stored run for a resource, oldest first.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ReadResults(ctx context.Context, identifier string) ([]ir.PostImportRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, resource_id, resource_version, run_id, seq, status, message, stages
		FROM post_import_results
		WHERE identifier = ?
		ORDER BY seq ASC, id ASC
	`), identifier)
	if err != nil {
		return nil, errors.Wrapf(err, "query results for %s", identifier)
	}
	defer rows.Close()

	records := []ir.PostImportRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "iterate results for %s", identifier)
	}
	return records, nil
}

// LatestResult returns the most recent run for a resource, or
// (nil, nil) when the resource was never processed.
func (s *Store) LatestResult(ctx context.Context, identifier string) (*ir.PostImportRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, resource_id, resource_version, run_id, seq, status, message, stages
		FROM post_import_results
		WHERE identifier = ?
		ORDER BY seq DESC
		LIMIT 1
	`), identifier)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (ir.PostImportRecord, error) {
	var (
		rec    ir.PostImportRecord
		status string
		stages string
	)
	if err := row.Scan(&rec.ID, &rec.ResourceID, &rec.ResourceVersion, &rec.RunID,
		&rec.Seq, &status, &rec.Message, &stages); err != nil {
		return rec, errors.Wrap(err, "scan result")
	}
	rec.Status = ir.PostImportStatus(status)
	if err := json.Unmarshal([]byte(stages), &rec.Stages); err != nil {
		return rec, errors.Wrapf(err, "decode stages of %s", rec.ID)
	}
	return rec, nil
}

func marshalStages(stages []ir.StageRecord) (string, error) {
	arr := make(ir.IRArray, len(stages))
	for i, st := range stages {
		obj := ir.IRObject{
			"processor": ir.IRString(st.Processor),
			"status":    ir.IRString(string(st.Status)),
		}
		if st.Message != "" {
			obj["message"] = ir.IRString(st.Message)
		}
		arr[i] = obj
	}
	b, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
