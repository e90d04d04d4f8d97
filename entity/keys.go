package entity

import (
	"github.com/emberhall/fieldvault/ident"
)

// Shared-cache key layout. Every key the engine writes is assembled here,
// so the wire-visible schema lives in one place:
//
//	model:<collection>:<idHex>:<logicalField>   field value
//	model:<collection>:<idHex>:exists           identity-existence probe
//	model:<collection>:<idHex>:*                one handle's keys
//	model:<collection>:*                        one type's keys
const (
	keyPrefix    = "model:"
	keySeparator = ":"
	existsSuffix = "exists"
	wildcard     = "*"
)

// FieldKey builds the shared-cache key of one field value.
func FieldKey(collection string, id ident.ID, field string) string {
	return keyPrefix + collection + keySeparator + id.Hex() + keySeparator + field
}

// ExistsKey builds the shared-cache key of the identity-existence probe.
func ExistsKey(collection string, id ident.ID) string {
	return keyPrefix + collection + keySeparator + id.Hex() + keySeparator + existsSuffix
}

// HandlePattern matches every shared-cache key of one identity.
func HandlePattern(collection string, id ident.ID) string {
	return keyPrefix + collection + keySeparator + id.Hex() + keySeparator + wildcard
}

// TypePattern matches every shared-cache key of one entity type.
func TypePattern(collection string) string {
	return keyPrefix + collection + keySeparator + wildcard
}
