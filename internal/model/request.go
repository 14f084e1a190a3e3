// Package model defines the request and response shapes shared by the
// dispatch layer: operation enums, per-item parameter bags, result items,
// and the error types callers branch on. Nothing in this package performs
// I/O; every value is built fresh for a single dispatch and discarded.
package model

import "fmt"

// Resource is the top-level operation category.
type Resource string

const (
	ResourceDatabase Resource = "database"
	ResourceStorage  Resource = "storage"
)

// ParseResource validates a resource string from external input.
func ParseResource(s string) (Resource, error) {
	switch Resource(s) {
	case ResourceDatabase, ResourceStorage:
		return Resource(s), nil
	default:
		return "", fmt.Errorf("unknown resource %q (expected %q or %q)", s, ResourceDatabase, ResourceStorage)
	}
}

// Operation identifies a single backend action scoped to a resource.
// The same string may appear under both resources ("delete"); validity is
// always judged for a (resource, operation) pair.
type Operation string

// Database operations.
const (
	OpCreate      Operation = "create"
	OpRead        Operation = "read"
	OpUpdate      Operation = "update"
	OpDelete      Operation = "delete"
	OpUpsert      Operation = "upsert"
	OpCreateTable Operation = "createTable"
	OpDropTable   Operation = "dropTable"
	OpAddColumn   Operation = "addColumn"
	OpDropColumn  Operation = "dropColumn"
	OpCreateIndex Operation = "createIndex"
	OpDropIndex   Operation = "dropIndex"
	OpCustomQuery Operation = "customQuery"
)

// Storage operations.
const (
	OpUpload          Operation = "upload"
	OpDownload        Operation = "download"
	OpList            Operation = "list"
	OpMove            Operation = "move"
	OpCopy            Operation = "copy"
	OpCreateBucket    Operation = "createBucket"
	OpDeleteBucket    Operation = "deleteBucket"
	OpListBuckets     Operation = "listBuckets"
	OpGetBucket       Operation = "getBucket"
	OpGetFileInfo     Operation = "getFileInfo"
	OpCreateSignedURL Operation = "createSignedUrl"
)

// DatabaseOperations lists every valid database operation in a stable order.
var DatabaseOperations = []Operation{
	OpCreate, OpRead, OpUpdate, OpDelete, OpUpsert,
	OpCreateTable, OpDropTable, OpAddColumn, OpDropColumn,
	OpCreateIndex, OpDropIndex, OpCustomQuery,
}

// StorageOperations lists every valid storage operation in a stable order.
var StorageOperations = []Operation{
	OpUpload, OpDownload, OpList, OpDelete, OpMove, OpCopy,
	OpCreateBucket, OpDeleteBucket, OpListBuckets, OpGetBucket,
	OpGetFileInfo, OpCreateSignedURL,
}

var (
	databaseOps = opSet(DatabaseOperations)
	storageOps  = opSet(StorageOperations)
)

func opSet(ops []Operation) map[Operation]bool {
	m := make(map[Operation]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

// ParseOperation validates an operation string against the set allowed for
// the given resource. Unknown combinations are a fatal error for the item.
func ParseOperation(resource Resource, s string) (Operation, error) {
	op := Operation(s)
	switch resource {
	case ResourceDatabase:
		if databaseOps[op] {
			return op, nil
		}
	case ResourceStorage:
		if storageOps[op] {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q for resource %q", s, resource)
}

// Valid reports whether op belongs to the enumerated set for resource.
func (op Operation) Valid(resource Resource) bool {
	_, err := ParseOperation(resource, string(op))
	return err == nil
}

// OperationRequest is one unit of work: a resource/operation selection plus
// the loosely-typed named parameters resolved for this input item.
type OperationRequest struct {
	Resource  Resource  `json:"resource" yaml:"resource"`
	Operation Operation `json:"operation" yaml:"operation"`
	ItemIndex int       `json:"itemIndex" yaml:"itemIndex"`
	Params    Params    `json:"parameters" yaml:"parameters"`
}
