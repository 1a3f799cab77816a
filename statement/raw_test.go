package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/helenus-driver/helenus-sub004/api"
)

func TestRawKindInference(t *testing.T) {
	testCases := []struct {
		cql  string
		kind api.StmtType
	}{
		{"SELECT * FROM users", api.SelectStmtType},
		{"insert into users (id) values (?)", api.InsertStmtType},
		{"UPDATE users SET a = ?", api.UpdateStmtType},
		{"DELETE FROM users WHERE id = ?", api.DeleteStmtType},
		{"BEGIN BATCH APPLY BATCH;", api.BatchStmtType},
		{"TRUNCATE users", api.RawStmtType},
		{"", api.UnknownStmtType},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.kind, NewRaw(tc.cql).StmtType(), tc.cql)
	}
}

func TestRawPassthrough(t *testing.T) {
	r := NewRaw("INSERT INTO users (id) VALUES (?)", 7)
	query, args, _, err := r.ToUql()
	assert.NoError(t, err)
	assert.Equal(t, "INSERT INTO users (id) VALUES (?)", query)
	assert.Equal(t, []interface{}{7}, args)
}
