package herdcache

import (
	"bytes"
	"encoding/gob"
	"hash/fnv"
	"io"
	"reflect"
	"strconv"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec serializes values for remote storage.
type Codec interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// MsgpackCodec encodes values with MessagePack.
type MsgpackCodec struct{}

// Marshal encodes value.
func (MsgpackCodec) Marshal(v interface{}) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes value.
func (MsgpackCodec) Unmarshal(data []byte, v interface{}) error {
	return msgpack.Unmarshal(data, v)
}

// KeyPrefixer is an optional Codec capability, the prefix is added to remote keys
// so that values written in an incompatible format are not read.
type KeyPrefixer interface {
	KeyPrefix() string
}

// GobCodec encodes values with encoding/gob.
//
// Interface values require registration of concrete types with GobRegister,
// fingerprint of registered types is used as remote key prefix.
type GobCodec struct{}

var _ KeyPrefixer = GobCodec{}

// Marshal encodes value.
func (GobCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer

	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes value.
func (GobCodec) Unmarshal(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// KeyPrefix returns fingerprint of registered types, empty if none are registered.
func (GobCodec) KeyPrefix() string {
	h := GobTypesHash()
	if h == 0 {
		return ""
	}

	return "gob" + strconv.FormatUint(h, 36) + ":"
}

var gobTypes struct {
	sync.Mutex
	hash uint64
}

// GobTypesHashReset forgets fingerprint of registered types, registrations in encoding/gob are kept.
func GobTypesHashReset() {
	gobTypes.Lock()
	defer gobTypes.Unlock()

	gobTypes.hash = 0
}

// GobTypesHash returns a fingerprint of structure of types registered with GobRegister.
func GobTypesHash() uint64 {
	gobTypes.Lock()
	defer gobTypes.Unlock()

	return gobTypes.hash
}

// GobRegister registers concrete types of interface values and adds them to fingerprint.
func GobRegister(values ...interface{}) {
	gobTypes.Lock()
	defer gobTypes.Unlock()

	for _, value := range values {
		t := reflect.TypeOf(value)
		h := fnv.New64a()

		_, _ = io.WriteString(h, t.PkgPath()+"."+t.String())
		fingerprint(h, t, map[reflect.Type]bool{})

		gobTypes.hash ^= h.Sum64()

		gob.Register(value)
	}
}

// fingerprint writes structure of exported fields, so that field changes alter the hash.
func fingerprint(w io.Writer, t reflect.Type, seen map[reflect.Type]bool) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if seen[t] {
		return
	}

	seen[t] = true

	switch t.Kind() { //nolint:exhaustive
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}

			_, _ = io.WriteString(w, f.Name)
			fingerprint(w, f.Type, seen)
		}
	case reflect.Map:
		_, _ = io.WriteString(w, "map")
		fingerprint(w, t.Key(), seen)
		fingerprint(w, t.Elem(), seen)
	case reflect.Slice, reflect.Array:
		_, _ = io.WriteString(w, "[]")
		fingerprint(w, t.Elem(), seen)
	default:
		_, _ = io.WriteString(w, t.Kind().String())
	}
}
