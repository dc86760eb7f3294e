package bptree

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Key is the set of key types a tree can be instantiated with. Both types
// are totally ordered by the builtin comparison operators (int32 numerically,
// string bytewise-lexicographically), which is all the tree relies on.
type Key interface {
	int32 | string
}

// Key type tags as stored in the snapshot header.
const (
	keyKindInt32  int32 = 0
	keyKindString int32 = 1
)

// keyKindOf returns the snapshot tag for the instantiated key type.
func keyKindOf[K Key]() (int32, error) {
	var zero K
	switch any(zero).(type) {
	case int32:
		return keyKindInt32, nil
	case string:
		return keyKindString, nil
	default:
		return 0, ErrUnknownKeyType
	}
}

// writeKey encodes a key in little-endian form: int32 keys as their raw 4
// bytes, string keys as an int32 length followed by the bytes.
func writeKey[K Key](w io.Writer, key K) error {
	switch k := any(key).(type) {
	case int32:
		return binary.Write(w, binary.LittleEndian, k)
	case string:
		if err := binary.Write(w, binary.LittleEndian, int32(len(k))); err != nil {
			return err
		}
		_, err := io.WriteString(w, k)
		return err
	default:
		return ErrUnknownKeyType
	}
}

// readKey decodes a key written by writeKey.
func readKey[K Key](r io.Reader) (K, error) {
	var zero K
	switch any(zero).(type) {
	case int32:
		var k int32
		if err := binary.Read(r, binary.LittleEndian, &k); err != nil {
			return zero, err
		}
		return any(k).(K), nil
	case string:
		var length int32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return zero, err
		}
		if length < 0 {
			return zero, fmt.Errorf("%w: negative key length %d", ErrCorruption, length)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return zero, err
		}
		return any(string(buf)).(K), nil
	default:
		return zero, ErrUnknownKeyType
	}
}
