package cassandra

import (
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally"

	"github.com/helenus-driver/helenus-sub004/api"
)

const (
	defaultConnectionsPerHost = 3
	defaultTimeout            = 1000 * time.Millisecond
	defaultProtoVersion       = 3
	defaultConsistency        = "LOCAL_QUORUM"
	defaultSocketKeepAlive    = 30 * time.Second
	defaultPageSize           = 1000
	defaultConcurrency        = 1000
	defaultPort               = 9042
)

// Store wraps one gocql session plus the metrics and safeguards around it.
type Store struct {
	keySpace       string
	cSession       *gocql.Session
	scope          tally.Scope
	concurrency    int32
	maxConcurrency int32
	closed         int32
	metrics        *Metrics
}

// CreateStore connects to the cluster and returns a Store scoped to the
// configured keyspace.
func CreateStore(storeConfig *CassandraConn, keySpace string, scope tally.Scope) (*Store, error) {
	cluster := newCluster(storeConfig)
	cluster.Keyspace = keySpace

	if len(storeConfig.Username) != 0 {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: storeConfig.Username,
			Password: storeConfig.Password,
		}
	}

	cSession, err := cluster.CreateSession()
	if err != nil {
		log.Error("Fail to create session: ", err.Error())
		return nil, api.ErrConnection
	}
	storeScope := scope.Tagged(map[string]string{"store": keySpace})
	maxConcurrency := int32(storeConfig.MaxGoRoutines)
	if maxConcurrency == 0 {
		maxConcurrency = defaultConcurrency
	}
	s := &Store{
		keySpace:       keySpace,
		cSession:       cSession,
		scope:          storeScope,
		concurrency:    0,
		maxConcurrency: maxConcurrency,
		metrics:        NewMetrics(storeScope),
	}
	log.WithFields(log.Fields{
		"key_space":      keySpace,
		"cassandra_port": storeConfig.Port,
	}).Info("C* Session Created.")
	return s, nil
}

// Close shuts the session down. Further calls fail with api.ErrClosed.
func (s *Store) Close() {
	if atomic.CompareAndSwapInt32(&s.closed, 0, 1) {
		s.cSession.Close()
	}
}

func (s *Store) isClosed() bool {
	return atomic.LoadInt32(&s.closed) == 1
}

func (s *Store) String() string {
	return "store:" + s.keySpace
}

func (s *Store) sendLatency(name string, d time.Duration) {
	if s.scope == nil {
		return
	}
	s.scope.Timer(name).Record(d)
}

// newCluster returns a clusterConfig object
func newCluster(storeConfig *CassandraConn) *gocql.ClusterConfig {

	config := storeConfig
	cluster := gocql.NewCluster(config.ContactPoints...)

	consistency := config.Consistency
	if consistency == "" {
		consistency = defaultConsistency
	}
	cluster.Consistency = gocql.ParseConsistency(consistency)

	cluster.Timeout = config.Timeout
	if cluster.Timeout == 0 {
		cluster.Timeout = defaultTimeout
	}

	cluster.NumConns = config.ConnectionsPerHost
	if cluster.NumConns == 0 {
		cluster.NumConns = defaultConnectionsPerHost
	}

	cluster.ProtoVersion = config.ProtoVersion
	if cluster.ProtoVersion == 0 {
		cluster.ProtoVersion = defaultProtoVersion
	}

	cluster.SocketKeepalive = config.SocketKeepalive
	if cluster.SocketKeepalive == 0 {
		cluster.SocketKeepalive = defaultSocketKeepAlive
	}

	cluster.PageSize = config.PageSize
	if cluster.PageSize == 0 {
		cluster.PageSize = defaultPageSize
	}

	cluster.Port = config.Port
	if cluster.Port == 0 {
		cluster.Port = defaultPort
	}

	if config.HostPolicy == "TokenAwareHostPolicy" {
		cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	} else {
		cluster.PoolConfig.HostSelectionPolicy = gocql.RoundRobinHostPolicy()
	}

	if len(config.CQLVersion) > 0 {
		cluster.CQLVersion = config.CQLVersion
	}

	if config.RetryCount != 0 {
		cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: config.RetryCount}
	} else {
		cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 3}
	}

	if dc := config.DataCenter; dc != "" {
		cluster.HostFilter = gocql.DataCentreHostFilter(dc)
	}

	return cluster
}
