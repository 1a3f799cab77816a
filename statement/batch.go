package statement

import (
	"bytes"
	"sync/atomic"

	"go.uber.org/yarpc/yarpcerrors"

	"github.com/helenus-driver/helenus-sub004/api"
)

// counter-mode of a batch, fixed by the first added statement.
const (
	modeUnset int32 = iota
	modeSimple
	modeCounter
)

// Batch aggregates statements into one atomic wire-level batch. A batch is
// built by a single logical caller and is mutable until executed; the
// parent back-reference and the nested flag are published through atomics
// so a background executor reading a finalized batch sees a consistent
// view. Concurrent Add calls are not serialized.
type Batch struct {
	logged bool
	stmts  []api.Statement
	mode   int32
	nested atomic.Bool
	usings exprs

	recorder Recorder
	handlers []ErrorHandler
	parent   atomic.Pointer[Batch]
}

// NewBatch returns an empty logged batch reporting to recorder. A nil
// recorder is permitted.
func NewBatch(recorder Recorder) *Batch {
	return &Batch{logged: true, recorder: recorder}
}

// NewUnloggedBatch returns an empty unlogged batch reporting to recorder.
func NewUnloggedBatch(recorder Recorder) *Batch {
	return &Batch{logged: false, recorder: recorder}
}

// objectSource is implemented by composites that can enumerate the object
// statements already staged inside them.
type objectSource interface {
	objectStatements() []api.ObjectStatement
}

// Add stages a statement into the batch.
//
// Validation happens at add time: only recognized statement kinds are
// accepted, SELECT is rejected, a raw batch cannot be nested, and the
// counter mode fixed by the first added statement must match across the
// batch and every batch it has been adopted into. Adding a
// nested batch adopts it and eagerly replays its already-recorded object
// statements to this batch's recorder chain; adding an object statement
// notifies the recorder chain immediately.
func (b *Batch) Add(stmt api.Statement) error {
	if stmt == nil {
		return yarpcerrors.InvalidArgumentErrorf("cannot add a nil statement to a batch")
	}

	var child *Batch
	switch stmt.StmtType() {
	case api.InsertStmtType, api.UpdateStmtType, api.DeleteStmtType,
		api.SequenceStmtType, api.RawStmtType:
	case api.SelectStmtType:
		return yarpcerrors.InvalidArgumentErrorf("select statements cannot join a batch")
	case api.BatchStmtType:
		nested, ok := stmt.(*Batch)
		if !ok {
			return yarpcerrors.InvalidArgumentErrorf("a raw batch cannot be nested in a batch")
		}
		child = nested
	default:
		return yarpcerrors.InvalidArgumentErrorf("statement kind %d not recognized", stmt.StmtType())
	}

	mode := modeSimple
	if child != nil {
		mode = atomic.LoadInt32(&child.mode)
	} else if cs, ok := stmt.(api.CounterStatement); ok && cs.IsCounterOp() {
		mode = modeCounter
	}
	if err := b.adoptMode(mode); err != nil {
		return err
	}

	if child != nil {
		b.nested.Store(true)
		child.parent.Store(b)
		for _, os := range child.objectStatements() {
			b.record(os)
		}
	} else if src, ok := stmt.(objectSource); ok {
		for _, os := range src.objectStatements() {
			b.record(os)
		}
	}

	b.stmts = append(b.stmts, stmt)

	if os, ok := stmt.(api.ObjectStatement); ok {
		b.record(os)
	}
	return nil
}

// adoptMode fixes or checks the counter mode of the batch and of every
// ancestor it has been adopted into. An unset mode (an empty nested batch)
// constrains nothing. The whole chain is checked before any level is fixed,
// so a rejected statement leaves no mode behind.
func (b *Batch) adoptMode(mode int32) error {
	if mode == modeUnset {
		return nil
	}
	for cur := b; cur != nil; cur = cur.parent.Load() {
		if m := atomic.LoadInt32(&cur.mode); m != modeUnset && m != mode {
			return yarpcerrors.InvalidArgumentErrorf(
				"cannot mix counter and non-counter statements in a batch")
		}
	}
	for cur := b; cur != nil; cur = cur.parent.Load() {
		atomic.CompareAndSwapInt32(&cur.mode, modeUnset, mode)
	}
	return nil
}

// record notifies this batch's recorder and every ancestor's recorder about
// a staged object statement. Failing listeners are isolated.
func (b *Batch) record(stmt api.ObjectStatement) {
	notifyRecorded(b.recorder, stmt)
	if p := b.parent.Load(); p != nil {
		p.record(stmt)
	}
}

// objectStatements enumerates the object statements staged in the batch,
// recursing into nested composites.
func (b *Batch) objectStatements() []api.ObjectStatement {
	var out []api.ObjectStatement
	for _, s := range b.stmts {
		if os, ok := s.(api.ObjectStatement); ok {
			out = append(out, os)
		}
		if src, ok := s.(objectSource); ok {
			out = append(out, src.objectStatements()...)
		}
	}
	return out
}

// Size returns the number of leaf statements in the batch. With no nested
// batches it is the flat count; otherwise it recursively sums nested batch
// sizes plus one per non-batch statement.
func (b *Batch) Size() int {
	if !b.nested.Load() {
		return len(b.stmts)
	}
	n := 0
	for _, s := range b.stmts {
		if child, ok := s.(*Batch); ok {
			n += child.Size()
		} else {
			n++
		}
	}
	return n
}

// Clear resets the contained statements, the nested flag and the counter
// mode. Usings, error handlers and the recorder are preserved.
func (b *Batch) Clear() {
	b.stmts = nil
	b.nested.Store(false)
	atomic.StoreInt32(&b.mode, modeUnset)
}

// Using adds an option expression to the batch.
func (b *Batch) Using(sql string, args ...interface{}) *Batch {
	b.usings = append(b.usings, expression(sql, args...))
	return b
}

// OnError registers a handler invoked by RunErrorHandlers after a failed
// commit. Registration is independent of execution.
func (b *Batch) OnError(h ErrorHandler) *Batch {
	b.handlers = append(b.handlers, h)
	return b
}

// RunErrorHandlers invokes every locally registered handler, then recurses
// into contained composites. Each handler's own failure is swallowed and
// logged.
func (b *Batch) RunErrorHandlers(err error) {
	for _, h := range b.handlers {
		runErrorHandler(h, err)
	}
	for _, s := range b.stmts {
		if runner, ok := s.(interface{ RunErrorHandlers(error) }); ok {
			runner.RunErrorHandlers(err)
		}
	}
}

// Duplicate produces a batch sharing the same statement list contents and
// usings, with its own error-handler list seeded from the original's and
// the same recorder. The original is never mutated.
func (b *Batch) Duplicate() *Batch {
	return b.DuplicateWithRecorder(b.recorder)
}

// DuplicateWithRecorder duplicates the batch with a different recorder.
func (b *Batch) DuplicateWithRecorder(recorder Recorder) *Batch {
	d := &Batch{
		logged:   b.logged,
		stmts:    append([]api.Statement(nil), b.stmts...),
		mode:     atomic.LoadInt32(&b.mode),
		usings:   append(exprs(nil), b.usings...),
		recorder: recorder,
		handlers: append([]ErrorHandler(nil), b.handlers...),
	}
	d.nested.Store(b.nested.Load())
	return d
}

// ToUql renders the batch. An empty batch renders to an empty string:
// callers must treat that as nothing to execute, not as an error.
func (b *Batch) ToUql() (query string, args []interface{},
	options map[string]interface{}, err error) {
	options = map[string]interface{}{
		"IsBatch": true,
		"Counter": atomic.LoadInt32(&b.mode) == modeCounter,
	}
	if len(b.stmts) == 0 {
		return "", nil, options, nil
	}

	sql := &bytes.Buffer{}
	sql.WriteString("BEGIN ")
	if atomic.LoadInt32(&b.mode) == modeCounter {
		sql.WriteString("COUNTER ")
	} else if !b.logged {
		sql.WriteString("UNLOGGED ")
	}
	sql.WriteString("BATCH ")

	args, err = b.appendLeafText(sql, args)
	if err != nil {
		return "", nil, nil, err
	}

	if len(b.usings) > 0 {
		sql.WriteString("USING ")
		args, _ = b.usings.AppendToSQL(sql, " AND ", args)
		sql.WriteString(" ")
	}

	sql.WriteString("APPLY BATCH;")
	return sql.String(), args, options, nil
}

// appendLeafText renders the batch's leaf statements into sql, flattening
// nested batches: the wire protocol has no nested-batch construct, so only
// the outermost wrapper emits BEGIN/APPLY and nested batches contribute
// their contained statements' text.
func (b *Batch) appendLeafText(sql *bytes.Buffer, args []interface{}) ([]interface{}, error) {
	for _, s := range b.stmts {
		if child, ok := s.(*Batch); ok {
			var err error
			args, err = child.appendLeafText(sql, args)
			if err != nil {
				return nil, err
			}
			continue
		}
		childQuery, childArgs, _, err := s.ToUql()
		if err != nil {
			return nil, err
		}
		if len(childQuery) == 0 {
			continue
		}
		sql.WriteString(childQuery)
		sql.WriteString(" ")
		args = append(args, childArgs...)
	}
	return args, nil
}

// StmtType returns api.BatchStmtType.
func (b *Batch) StmtType() api.StmtType { return api.BatchStmtType }

// IsCounterOp reports whether the batch carries counter statements.
func (b *Batch) IsCounterOp() bool {
	return atomic.LoadInt32(&b.mode) == modeCounter
}
