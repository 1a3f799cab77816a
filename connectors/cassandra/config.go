// Package cassandra implements the executor collaborator over a gocql
// session. It accepts rendered statement trees from the mapping core, sends
// them over the wire and returns row-oriented results; it is the only place
// I/O happens.
package cassandra

import (
	"time"
)

// CassandraConn describes the properties to manage a Cassandra connection.
type CassandraConn struct {
	ContactPoints      []string      `yaml:"contactPoints"`
	Port               int           `yaml:"port"`
	Username           string        `yaml:"username"`
	Password           string        `yaml:"password"`
	Consistency        string        `yaml:"consistency"`
	ConnectionsPerHost int           `yaml:"connectionsPerHost"`
	Timeout            time.Duration `yaml:"timeout"`
	SocketKeepalive    time.Duration `yaml:"socketKeepalive"`
	ProtoVersion       int           `yaml:"protoVersion"`
	TTL                time.Duration `yaml:"ttl"`
	DataCenter         string        `yaml:"dataCenter"` // data center filter
	PageSize           int           `yaml:"pageSize"`
	RetryCount         int           `yaml:"retryCount"`
	HostPolicy         string        `yaml:"hostPolicy"`
	MaxGoRoutines      int           `yaml:"maxGoroutines"` // a capacity limit
	CQLVersion         string        `yaml:"cqlVersion"`    // set only on C* 3.x
}

// Config is the top level configuration for the connector.
type Config struct {
	CassandraConn *CassandraConn `yaml:"connection"`
	StoreName     string         `yaml:"store_name" validate:"nonzero"`
	// MaxBatchSize bounds the number of statements sent in one batch RPC to
	// stay below the server's batch size fail threshold. Zero means
	// unbounded.
	MaxBatchSize int `yaml:"max_batch_size_rows"`
}
