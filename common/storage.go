package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/native/crypto"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// SetSerialized serializes data and puts it into contract storage.
func SetSerialized(ctx storage.Context, key any, value any) {
	data := std.Serialize(value)
	storage.Put(ctx, key, data)
}

// GetSerialized returns deserialized value stored by the key or nil if there
// is no such value.
func GetSerialized(ctx storage.Context, key any) any {
	data := storage.Get(ctx, key)
	if data == nil {
		return nil
	}
	return std.Deserialize(data.([]byte))
}

// HashedKey returns storage key made of the prefix and SHA-256 of the id. It
// keeps keys within the storage key size limit for ids of any length.
func HashedKey(prefix byte, id []byte) []byte {
	return append([]byte{prefix}, crypto.Sha256(id)...)
}
