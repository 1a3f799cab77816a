package statement

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/helenus-driver/helenus-sub004/api"
)

// fakeObjectStatement is a minimal object-bound statement for recorder tests.
type fakeObjectStatement struct {
	object interface{}
}

func (f *fakeObjectStatement) ToUql() (string, []interface{}, map[string]interface{}, error) {
	return "INSERT INTO t (id) VALUES (?);", []interface{}{1}, map[string]interface{}{}, nil
}

func (f *fakeObjectStatement) StmtType() api.StmtType { return api.InsertStmtType }

func (f *fakeObjectStatement) Object() interface{} { return f.object }

func TestBatchToUql(t *testing.T) {
	b := NewBatch(nil)
	assert.NoError(t, b.Add(NewInsert("users").Columns("id").Values(1)))
	assert.NoError(t, b.Add(NewInsert("users").Columns("id").Values(2)))

	query, args, options, err := b.ToUql()
	assert.NoError(t, err)
	assert.Equal(t,
		"BEGIN BATCH "+
			"INSERT INTO users (id) VALUES (?); "+
			"INSERT INTO users (id) VALUES (?); "+
			"APPLY BATCH;",
		query)
	assert.Equal(t, []interface{}{1, 2}, args)
	assert.Equal(t, true, options["IsBatch"].(bool))
	assert.Equal(t, false, options["Counter"].(bool))
}

func TestUnloggedBatchToUql(t *testing.T) {
	b := NewUnloggedBatch(nil)
	assert.NoError(t, b.Add(NewInsert("users").Columns("id").Values(1)))

	query, _, _, err := b.ToUql()
	assert.NoError(t, err)
	assert.Equal(t,
		"BEGIN UNLOGGED BATCH INSERT INTO users (id) VALUES (?); APPLY BATCH;",
		query)
}

func TestEmptyBatchRendersNothing(t *testing.T) {
	query, args, options, err := NewBatch(nil).ToUql()
	assert.NoError(t, err)
	assert.Equal(t, "", query)
	assert.Nil(t, args)
	assert.Equal(t, true, options["IsBatch"].(bool))
}

func TestBatchUsing(t *testing.T) {
	b := NewBatch(nil).Using("TIMESTAMP ?", int64(42))
	assert.NoError(t, b.Add(NewInsert("users").Columns("id").Values(1)))

	query, args, _, err := b.ToUql()
	assert.NoError(t, err)
	assert.Equal(t,
		"BEGIN BATCH INSERT INTO users (id) VALUES (?); USING TIMESTAMP ? APPLY BATCH;",
		query)
	assert.Equal(t, []interface{}{1, int64(42)}, args)
}

func TestCounterBatchToUql(t *testing.T) {
	b := NewBatch(nil)
	assert.NoError(t, b.Add(NewUpdate("stats").Counter().Add("hits", 1).Where("id = ?", "x")))

	query, _, options, err := b.ToUql()
	assert.NoError(t, err)
	assert.Equal(t,
		"BEGIN COUNTER BATCH UPDATE stats SET hits = hits + ? WHERE id = ?; APPLY BATCH;",
		query)
	assert.Equal(t, true, options["Counter"].(bool))
	assert.True(t, b.IsCounterOp())
}

func TestBatchRejectsMixedCounterModes(t *testing.T) {
	b := NewBatch(nil)
	assert.NoError(t, b.Add(NewUpdate("stats").Counter().Add("hits", 1)))
	err := b.Add(NewInsert("users").Columns("id").Values(1))
	assert.Error(t, err)

	b = NewBatch(nil)
	assert.NoError(t, b.Add(NewInsert("users").Columns("id").Values(1)))
	err = b.Add(NewUpdate("stats").Counter().Add("hits", 1))
	assert.Error(t, err)
}

func TestNestedBatchRendersFlattened(t *testing.T) {
	inner := NewBatch(nil)
	assert.NoError(t, inner.Add(NewInsert("t2").Columns("id").Values(2)))

	deeper := NewBatch(nil)
	assert.NoError(t, deeper.Add(NewInsert("t3").Columns("id").Values(3)))
	assert.NoError(t, inner.Add(deeper))

	outer := NewBatch(nil)
	assert.NoError(t, outer.Add(NewInsert("t1").Columns("id").Values(1)))
	assert.NoError(t, outer.Add(inner))

	query, args, _, err := outer.ToUql()
	assert.NoError(t, err)
	assert.Equal(t,
		"BEGIN BATCH "+
			"INSERT INTO t1 (id) VALUES (?); "+
			"INSERT INTO t2 (id) VALUES (?); "+
			"INSERT INTO t3 (id) VALUES (?); "+
			"APPLY BATCH;",
		query)
	assert.Equal(t, []interface{}{1, 2, 3}, args)
}

func TestCounterModePropagatesThroughAdoptedChild(t *testing.T) {
	outer := NewBatch(nil)
	assert.NoError(t, outer.Add(NewInsert("users").Columns("id").Values(1)))

	child := NewBatch(nil)
	assert.NoError(t, outer.Add(child))

	// the adopted child inherits the ancestor's fixed mode
	err := child.Add(NewUpdate("stats").Counter().Add("hits", 1))
	assert.Error(t, err)
	assert.False(t, child.IsCounterOp())

	query, _, _, err := outer.ToUql()
	assert.NoError(t, err)
	assert.NotContains(t, query, "COUNTER")

	// and the reverse: a counter added to the child fixes the ancestors
	outer = NewBatch(nil)
	child = NewBatch(nil)
	assert.NoError(t, outer.Add(child))
	assert.NoError(t, child.Add(NewUpdate("stats").Counter().Add("hits", 1)))
	assert.True(t, outer.IsCounterOp())
	assert.Error(t, outer.Add(NewInsert("users").Columns("id").Values(1)))
}

func TestEmptyNestedBatchConstrainsNothing(t *testing.T) {
	b := NewBatch(nil)
	assert.NoError(t, b.Add(NewBatch(nil)))
	assert.NoError(t, b.Add(NewUpdate("stats").Counter().Add("hits", 1)))
}

func TestBatchRejectsInvalidStatements(t *testing.T) {
	b := NewBatch(nil)
	assert.Error(t, b.Add(nil))
	assert.Error(t, b.Add(NewRaw("SELECT * FROM users")))
	assert.Error(t, b.Add(NewRaw("BEGIN BATCH APPLY BATCH;")))
	assert.NoError(t, b.Add(NewRaw("INSERT INTO users (id) VALUES (?)", 1)))
}

func TestBatchSize(t *testing.T) {
	b := NewBatch(nil)
	assert.Equal(t, 0, b.Size())
	assert.NoError(t, b.Add(NewInsert("users").Columns("id").Values(1)))
	assert.Equal(t, 1, b.Size())

	nested := NewBatch(nil)
	assert.NoError(t, nested.Add(NewInsert("users").Columns("id").Values(2)))
	assert.NoError(t, nested.Add(NewInsert("users").Columns("id").Values(3)))
	assert.NoError(t, b.Add(nested))
	assert.Equal(t, 3, b.Size())
}

func TestBatchClear(t *testing.T) {
	b := NewBatch(nil).Using("TTL ?", 10)
	assert.NoError(t, b.Add(NewUpdate("stats").Counter().Add("hits", 1)))
	b.Clear()
	assert.Equal(t, 0, b.Size())
	assert.False(t, b.IsCounterOp())

	// mode resets, usings survive
	assert.NoError(t, b.Add(NewInsert("users").Columns("id").Values(1)))
	query, _, _, err := b.ToUql()
	assert.NoError(t, err)
	assert.Contains(t, query, "USING TTL ?")
}

func TestBatchRecordsObjectStatements(t *testing.T) {
	var seen []api.ObjectStatement
	b := NewBatch(RecorderFunc(func(stmt api.ObjectStatement) {
		seen = append(seen, stmt)
	}))

	os := &fakeObjectStatement{object: "o1"}
	assert.NoError(t, b.Add(os))
	assert.Len(t, seen, 1)
	assert.Equal(t, os, seen[0])

	// plain statements are not reported
	assert.NoError(t, b.Add(NewInsert("users").Columns("id").Values(1)))
	assert.Len(t, seen, 1)
}

func TestNestedBatchReplaysToParentRecorder(t *testing.T) {
	var parentSeen, childSeen []api.ObjectStatement
	parent := NewBatch(RecorderFunc(func(stmt api.ObjectStatement) {
		parentSeen = append(parentSeen, stmt)
	}))
	child := NewBatch(RecorderFunc(func(stmt api.ObjectStatement) {
		childSeen = append(childSeen, stmt)
	}))

	pre := &fakeObjectStatement{object: "pre"}
	assert.NoError(t, child.Add(pre))
	assert.Len(t, childSeen, 1)
	assert.Len(t, parentSeen, 0)

	// adoption replays already-staged object statements upward
	assert.NoError(t, parent.Add(child))
	assert.Len(t, parentSeen, 1)
	assert.Equal(t, pre, parentSeen[0])

	// later additions to the child propagate up the parent chain
	post := &fakeObjectStatement{object: "post"}
	assert.NoError(t, child.Add(post))
	assert.Len(t, childSeen, 2)
	assert.Len(t, parentSeen, 2)
}

func TestPanickingRecorderIsIsolated(t *testing.T) {
	b := NewBatch(RecorderFunc(func(stmt api.ObjectStatement) {
		panic("listener bug")
	}))
	assert.NoError(t, b.Add(&fakeObjectStatement{object: "o1"}))
	assert.Equal(t, 1, b.Size())
}

func TestBatchDuplicate(t *testing.T) {
	b := NewBatch(nil).Using("TTL ?", 10)
	assert.NoError(t, b.Add(NewInsert("users").Columns("id").Values(1)))

	d := b.Duplicate()
	assert.NoError(t, d.Add(NewInsert("users").Columns("id").Values(2)))
	assert.Equal(t, 1, b.Size())
	assert.Equal(t, 2, d.Size())

	query, _, _, err := d.ToUql()
	assert.NoError(t, err)
	assert.Contains(t, query, "USING TTL ?")
}

func TestBatchErrorHandlers(t *testing.T) {
	var calls []string
	b := NewBatch(nil).OnError(func(err error) {
		calls = append(calls, "outer:"+err.Error())
	})
	nested := NewBatch(nil).OnError(func(err error) {
		calls = append(calls, "nested:"+err.Error())
	})
	assert.NoError(t, nested.Add(NewInsert("users").Columns("id").Values(1)))
	assert.NoError(t, b.Add(nested))

	b.OnError(func(err error) { panic("handler bug") })
	b.RunErrorHandlers(errors.New("boom"))
	assert.Equal(t, []string{"outer:boom", "nested:boom"}, calls)
}
