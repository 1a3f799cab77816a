package cassandra

import (
	"reflect"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/pborman/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewClusterDefaults(t *testing.T) {
	cluster := newCluster(&CassandraConn{
		ContactPoints: []string{"127.0.0.1"},
	})

	assert.Equal(t, gocql.LocalQuorum, cluster.Consistency)
	assert.Equal(t, defaultTimeout, cluster.Timeout)
	assert.Equal(t, defaultConnectionsPerHost, cluster.NumConns)
	assert.Equal(t, defaultProtoVersion, cluster.ProtoVersion)
	assert.Equal(t, defaultSocketKeepAlive, cluster.SocketKeepalive)
	assert.Equal(t, defaultPageSize, cluster.PageSize)
	assert.Equal(t, defaultPort, cluster.Port)
	assert.Equal(t, &gocql.SimpleRetryPolicy{NumRetries: 3}, cluster.RetryPolicy)
}

func TestNewClusterOverrides(t *testing.T) {
	cluster := newCluster(&CassandraConn{
		ContactPoints: []string{"10.0.0.1"},
		Port:          9999,
		Consistency:   "ONE",
		Timeout:       5 * time.Second,
		RetryCount:    7,
		HostPolicy:    "TokenAwareHostPolicy",
		CQLVersion:    "3.4.4",
	})

	assert.Equal(t, gocql.One, cluster.Consistency)
	assert.Equal(t, 9999, cluster.Port)
	assert.Equal(t, 5*time.Second, cluster.Timeout)
	assert.Equal(t, &gocql.SimpleRetryPolicy{NumRetries: 7}, cluster.RetryPolicy)
	assert.Equal(t, "3.4.4", cluster.CQLVersion)
}

func TestConvertArgs(t *testing.T) {
	id := uuid.NewRandom()
	args := []interface{}{id, "plain", 7}
	convertArgs(args)

	g, ok := args[0].(gocql.UUID)
	assert.True(t, ok)
	assert.Equal(t, id.String(), g.String())
	assert.Equal(t, "plain", args[1])
	assert.Equal(t, 7, args[2])
}

func TestNativeType(t *testing.T) {
	testCases := []struct {
		cql  gocql.Type
		want reflect.Type
	}{
		{gocql.TypeText, reflect.TypeOf("")},
		{gocql.TypeBoolean, reflect.TypeOf(false)},
		{gocql.TypeInt, reflect.TypeOf(int(0))},
		{gocql.TypeBigInt, reflect.TypeOf(int64(0))},
		{gocql.TypeDouble, reflect.TypeOf(float64(0))},
		{gocql.TypeBlob, reflect.TypeOf([]byte(nil))},
		{gocql.TypeTimestamp, reflect.TypeOf(time.Time{})},
		{gocql.TypeUUID, reflect.TypeOf(gocql.UUID{})},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, nativeType(gocql.NewNativeType(3, tc.cql, "")))
	}
}

func TestResultSetCASRow(t *testing.T) {
	rs := &ResultSet{
		applied: false,
		casRow:  map[string]interface{}{"id": "x"},
	}
	row := rs.One()
	assert.NotNil(t, row)
	assert.Equal(t, "x", row.Value("id"))
	assert.Nil(t, rs.One())
	assert.False(t, rs.Applied())
	assert.NoError(t, rs.Close())
}
