package process

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

var errNotPOD = errors.New("type contains pointers")

// Read reads a single value of type T from memory.
// T must be plain old data (fixed size, no pointers); the bytes are copied
// in host byte order, which matches the little-endian targets we read from.
func Read[T any](mem RemoteMemory, addr ProcessMemoryAddress) (T, error) {
	var t T
	if typeHasPointers(reflect.TypeOf(&t).Elem()) {
		return t, fmt.Errorf("read %T: %w", t, errNotPOD)
	}

	size := ProcessMemorySize(unsafe.Sizeof(t))
	if size == 0 {
		return t, nil
	}

	data, err := mem.ReadMemory(addr, size)
	if err != nil {
		return t, err
	}
	if ProcessMemorySize(len(data)) < size {
		return t, fmt.Errorf("read %s at %s: got %d bytes: %w", size.ToString(), addr.ToString(), len(data), ErrShortRead)
	}

	copyTo(&t, data)
	return t, nil
}

// copyTo copies bytes to *T
func copyTo[T any](dst *T, src []byte) {
	size := int(unsafe.Sizeof(*dst))
	if len(src) < size {
		return
	}

	dstBytes := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size)
	copy(dstBytes, src)
}

// typeHasPointers reports whether rt (recursively) contains any pointer-like fields.
func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
