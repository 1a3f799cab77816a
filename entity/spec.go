// Package entity implements the metadata model mapping typed domain objects
// onto tables of the store. Descriptors are registered ahead of time from
// plain structural data (table names, column specs, key roles) and validated
// once; there is no runtime annotation discovery. The model is a closed set
// of kinds: a Root descriptor for an abstract base with concrete subtypes
// selected by a discriminator column, a Type descriptor for one such
// subtype, and an Embeddable descriptor for a structured value with no
// table of its own.
package entity

import "reflect"

// Kind is the closed set of descriptor kinds.
type Kind int

const (
	// KindRoot describes an abstract base entity owning concrete subtypes.
	KindRoot Kind = iota
	// KindType describes one concrete subtype of a root.
	KindType
	// KindEmbeddable describes a structured value with no independent table.
	KindEmbeddable
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindType:
		return "type"
	case KindEmbeddable:
		return "embeddable"
	}
	return "unknown"
}

// Column is the structural description of one mapped column.
type Column struct {
	// Name of the column in the store.
	Name string
	// Type is the Go type of the mapped field.
	Type reflect.Type
	// Field is the struct field holding the value. Empty for the
	// discriminator column, whose value comes from the subtype descriptor.
	Field string

	// PartitionKey marks a partition key column.
	PartitionKey bool
	// ClusteringKey marks a clustering key column.
	ClusteringKey bool
	// Descending sets the clustering order.
	Descending bool
	// MultiKey marks a key column whose value is a set; each element
	// produces a distinct generated statement.
	MultiKey bool
	// Mandatory marks a non-null column.
	Mandatory bool
	// Discriminator marks the column whose value selects the subtype.
	Discriminator bool
	// Indexed requests a secondary index on the column.
	Indexed bool
}

// IsKey returns true for partition and clustering key columns.
func (c Column) IsKey() bool { return c.PartitionKey || c.ClusteringKey }

// Table is the structural description of one mapped table.
type Table struct {
	Name    string
	Columns []Column
}

// Spec is the ahead-of-time registered structural description of an entity.
// It is plain configuration data; validation happens when the descriptor is
// built from it.
type Spec struct {
	// Name identifies the entity. Registry keys on it.
	Name string
	// Keyspace qualifies generated statements; may be empty.
	Keyspace string
	// Kind of the descriptor built from this spec.
	Kind Kind
	// Abstract is permitted only on roots.
	Abstract bool
	// Factory produces a new instance of the concrete object. Nil for
	// abstract roots.
	Factory func() interface{}
	// Tables declared for the entity. Embeddables use a single backing
	// column group that is never exposed as a real table.
	Tables []Table

	// DiscriminatorValue selects this subtype; KindType only.
	DiscriminatorValue string
	// Subtypes are the concrete variants of a root; KindRoot only.
	Subtypes []*Spec
}
