package reader

import (
	"context"
	"fmt"
	"unsafe"

	"github.com/spacemeshos/go-ssc/common/types"
)

// bytesOf views elements as raw bytes in native layout.
func bytesOf[T types.Element](elements []T) []byte {
	if len(elements) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(elements))), len(elements)*int(unsafe.Sizeof(zero)))
}

func (r *Reader) checkType(name string, dtype types.DataType) error {
	for i := range r.read {
		if r.read[i].Name != name {
			continue
		}
		if !r.read[i].Type.Compatible(dtype) {
			return fmt.Errorf("get %s: selected as %s, destination is %s", name, r.read[i].Type, dtype)
		}
		return nil
	}
	return fmt.Errorf("%w: variable %s is not selected", types.ErrNotFound, name)
}

// Get reads the selection of the variable into dst.
func Get[T types.Element](ctx context.Context, r *Reader, name string, dst []T) error {
	if err := r.active("get " + name); err != nil {
		return err
	}
	if err := r.checkType(name, types.TypeOf[T]()); err != nil {
		return err
	}
	return r.engine.FetchSync(ctx, name, bytesOf(dst))
}

// GetDeferred issues reads of the variable into dst. dst must not be used until PerformGets or
// EndStep returned.
func GetDeferred[T types.Element](ctx context.Context, r *Reader, name string, dst []T) error {
	if err := r.active("get " + name); err != nil {
		return err
	}
	if err := r.checkType(name, types.TypeOf[T]()); err != nil {
		return err
	}
	return r.engine.FetchDeferred(ctx, name, bytesOf(dst))
}
