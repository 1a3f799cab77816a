package statement

import (
	"strings"

	"github.com/helenus-driver/helenus-sub004/api"
)

// Raw wraps literal CQL text with bound args. Its kind is inferred from the
// leading keyword so batches can apply their add-time validation to raw
// statements too (a raw batch, for one, cannot be nested in a batch).
type Raw struct {
	cql  string
	args []interface{}
	kind api.StmtType
}

// NewRaw wraps literal CQL text.
func NewRaw(cql string, args ...interface{}) *Raw {
	return &Raw{cql: cql, args: args, kind: inferKind(cql)}
}

func inferKind(cql string) api.StmtType {
	fields := strings.Fields(strings.ToUpper(cql))
	if len(fields) == 0 {
		return api.UnknownStmtType
	}
	switch fields[0] {
	case "SELECT":
		return api.SelectStmtType
	case "INSERT":
		return api.InsertStmtType
	case "UPDATE":
		return api.UpdateStmtType
	case "DELETE":
		return api.DeleteStmtType
	case "BEGIN":
		return api.BatchStmtType
	default:
		return api.RawStmtType
	}
}

// ToUql returns the wrapped text and args unchanged.
func (r *Raw) ToUql() (string, []interface{}, map[string]interface{}, error) {
	return r.cql, r.args, map[string]interface{}{}, nil
}

// StmtType returns the kind inferred from the text.
func (r *Raw) StmtType() api.StmtType { return r.kind }
