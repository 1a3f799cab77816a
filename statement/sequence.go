package statement

import (
	"bytes"

	"go.uber.org/yarpc/yarpcerrors"

	"github.com/helenus-driver/helenus-sub004/api"
)

// Sequence aggregates statements to be executed one after another, without
// the atomicity of a batch. Its rendered text is the concatenation of its
// children's text.
type Sequence struct {
	stmts    []api.Statement
	handlers []ErrorHandler
}

// NewSequence returns an empty sequence.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Add appends a statement to the sequence. SELECT statements are rejected;
// batches and nested sequences are permitted.
func (s *Sequence) Add(stmt api.Statement) error {
	if stmt == nil {
		return yarpcerrors.InvalidArgumentErrorf("cannot add a nil statement to a sequence")
	}
	switch stmt.StmtType() {
	case api.InsertStmtType, api.UpdateStmtType, api.DeleteStmtType,
		api.BatchStmtType, api.SequenceStmtType, api.RawStmtType:
	case api.SelectStmtType:
		return yarpcerrors.InvalidArgumentErrorf("select statements cannot join a sequence")
	default:
		return yarpcerrors.InvalidArgumentErrorf("statement kind %d not recognized", stmt.StmtType())
	}
	s.stmts = append(s.stmts, stmt)
	return nil
}

// Size returns the number of leaf statements in the sequence, flattening
// nested composites.
func (s *Sequence) Size() int {
	n := 0
	for _, st := range s.stmts {
		switch c := st.(type) {
		case *Batch:
			n += c.Size()
		case *Sequence:
			n += c.Size()
		default:
			n++
		}
	}
	return n
}

// Statements returns the contained statements in order.
func (s *Sequence) Statements() []api.Statement {
	return append([]api.Statement(nil), s.stmts...)
}

// objectStatements enumerates the object statements staged in the sequence.
func (s *Sequence) objectStatements() []api.ObjectStatement {
	var out []api.ObjectStatement
	for _, st := range s.stmts {
		if os, ok := st.(api.ObjectStatement); ok {
			out = append(out, os)
		}
		if src, ok := st.(objectSource); ok {
			out = append(out, src.objectStatements()...)
		}
	}
	return out
}

// OnError registers a post-commit error handler.
func (s *Sequence) OnError(h ErrorHandler) *Sequence {
	s.handlers = append(s.handlers, h)
	return s
}

// RunErrorHandlers invokes local handlers then recurses into children.
func (s *Sequence) RunErrorHandlers(err error) {
	for _, h := range s.handlers {
		runErrorHandler(h, err)
	}
	for _, st := range s.stmts {
		if runner, ok := st.(interface{ RunErrorHandlers(error) }); ok {
			runner.RunErrorHandlers(err)
		}
	}
}

// ToUql renders the sequence as the concatenation of its children. An empty
// sequence renders to an empty string.
func (s *Sequence) ToUql() (query string, args []interface{},
	options map[string]interface{}, err error) {
	options = map[string]interface{}{"IsSequence": true}
	if len(s.stmts) == 0 {
		return "", nil, options, nil
	}
	sql := &bytes.Buffer{}
	for _, st := range s.stmts {
		childQuery, childArgs, _, childErr := st.ToUql()
		if childErr != nil {
			return "", nil, nil, childErr
		}
		if len(childQuery) == 0 {
			continue
		}
		if sql.Len() > 0 {
			sql.WriteString(" ")
		}
		sql.WriteString(childQuery)
		args = append(args, childArgs...)
	}
	return sql.String(), args, options, nil
}

// StmtType returns api.SequenceStmtType.
func (s *Sequence) StmtType() api.StmtType { return api.SequenceStmtType }
