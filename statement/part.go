package statement

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// Sqlizer is the interface that wraps the ToSQL method.
//
// ToSQL returns a SQL representation of the Sqlizer, along with a slice of
// args as passed to e.g. database/sql.Exec. It can also return an error.
type Sqlizer interface {
	ToSQL() (string, []interface{}, error)
}

// expr is a raw SQL fragment with args.
type expr struct {
	sql  string
	args []interface{}
}

// expression builds an expr from a SQL fragment and args.
func expression(sql string, args ...interface{}) expr {
	return expr{sql: sql, args: args}
}

func (e expr) ToSQL() (string, []interface{}, error) {
	return e.sql, e.args, nil
}

type exprs []expr

func (es exprs) AppendToSQL(w io.Writer, sep string, args []interface{}) ([]interface{}, error) {
	for i, e := range es {
		if i > 0 {
			if _, err := io.WriteString(w, sep); err != nil {
				return nil, err
			}
		}
		if _, err := io.WriteString(w, e.sql); err != nil {
			return nil, err
		}
		args = append(args, e.args...)
	}
	return args, nil
}

// wherePart is a condition in a WHERE or IF clause. The predicate may be a
// raw SQL string with args, a column to value map, or another Sqlizer.
type wherePart struct {
	pred interface{}
	args []interface{}
}

func newWherePart(pred interface{}, args ...interface{}) Sqlizer {
	return &wherePart{pred: pred, args: args}
}

func (p *wherePart) ToSQL() (string, []interface{}, error) {
	switch pred := p.pred.(type) {
	case Sqlizer:
		return pred.ToSQL()
	case map[string]interface{}:
		return equalityMap(pred)
	case string:
		return pred, p.args, nil
	case nil:
		return "", nil, nil
	default:
		return "", nil, errors.Errorf("expected string-keyed map or string, not %T", pred)
	}
}

// equalityMap renders a column to value map as ANDed equality conditions,
// sorted by column name for determinism.
func equalityMap(m map[string]interface{}) (string, []interface{}, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sql string
	var args []interface{}
	for i, k := range keys {
		if i > 0 {
			sql += " AND "
		}
		sql += fmt.Sprintf("%s = ?", k)
		args = append(args, m[k])
	}
	return sql, args, nil
}

func appendToSQL(parts []Sqlizer, w io.Writer, sep string, args []interface{}) ([]interface{}, error) {
	for i, p := range parts {
		partSQL, partArgs, err := p.ToSQL()
		if err != nil {
			return nil, err
		} else if len(partSQL) == 0 {
			continue
		}

		if i > 0 {
			if _, err := io.WriteString(w, sep); err != nil {
				return nil, err
			}
		}
		if _, err := io.WriteString(w, partSQL); err != nil {
			return nil, err
		}
		args = append(args, partArgs...)
	}
	return args, nil
}
