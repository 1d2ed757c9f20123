package query

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/roach88/datastore/internal/ir"
)

// WriteCSV writes the result rows as CSV with a header of output keys.
func (r *Response) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	record := make([]string, len(r.Columns))
	for i, row := range r.Results {
		for j, v := range row.Values {
			s, err := csvValue(v)
			if err != nil {
				return errors.Wrapf(err, "row %d", i)
			}
			record[j] = s
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "write csv row %d", i)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func csvValue(v ir.IRValue) (string, error) {
	switch val := v.(type) {
	case nil, ir.IRNull:
		return "", nil
	case ir.IRString:
		return string(val), nil
	case ir.IRInt:
		return strconv.FormatInt(int64(val), 10), nil
	case ir.IRBool:
		return strconv.FormatBool(bool(val)), nil
	default:
		b, err := ir.MarshalIRValue(v)
		return string(b), err
	}
}
