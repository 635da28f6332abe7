/*
   Copyright The Soci Snapshotter Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package decode

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

const (
	structTagKey = "toml"

	// Limits recursion on malformed or hostile input. Policy statements and
	// plugin settings are only a few levels deep.
	maxRecursionDepth = 50
)

var (
	ErrDstNotStruct     = errors.New("dst must be a pointer to a struct")
	ErrCannotCast       = errors.New("cannot cast value")
	ErrExceededMaxDepth = fmt.Errorf("exceeded maximum recursion depth of %d", maxRecursionDepth)
)

// Decoder is implemented by types that decode themselves from a generic value.
type Decoder interface {
	DecodeValue(src any) error
}

// Decode copies the entries of src into the fields of the struct pointed to
// by dst. Keys with no matching field are ignored; fields with no matching key
// keep their value.
func Decode(dst any, src map[string]any) error {
	return decodeWithDepth(dst, src, 0)
}

func decodeWithDepth(dst any, src map[string]any, depth int) error {
	if dst == nil || src == nil {
		return errors.New("src and dst must not be nil")
	}

	if depth > maxRecursionDepth {
		return ErrExceededMaxDepth
	}

	dstVal := reflect.ValueOf(dst)
	if dstVal.Kind() != reflect.Ptr || dstVal.IsNil() {
		return ErrDstNotStruct
	}
	dstVal = dstVal.Elem()
	if dstVal.Kind() != reflect.Struct {
		// [reflect.Type].NumField() panics if the type is not a struct.
		return ErrDstNotStruct
	}

	dstType := dstVal.Type()
	for i := 0; i < dstType.NumField(); i++ {
		fieldType := dstType.Field(i)
		if !fieldType.IsExported() {
			continue
		}
		fieldVal := dstVal.Field(i)

		name := tagName(fieldType)
		if name == "-" {
			continue
		}
		if name == "" {
			// An untagged embedded struct holds more fields at the same map level.
			if fieldType.Anonymous && fieldType.Type.Kind() == reflect.Struct {
				if err := decodeWithDepth(fieldVal.Addr().Interface(), src, depth+1); err != nil {
					return err
				}
			}
			continue
		}

		srcAnyVal, ok := src[name]
		if !ok {
			continue
		}
		if err := setField(fieldVal, srcAnyVal, depth+1); err != nil {
			return fmt.Errorf("error decoding %q: %w", name, err)
		}
	}

	return nil
}

func tagName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get(structTagKey), ",")
	return strings.TrimSpace(name)
}

// setField decodes src into dst, which must be addressable.
func setField(dst reflect.Value, src any, depth int) error {
	if depth > maxRecursionDepth {
		return ErrExceededMaxDepth
	}

	if dst.CanAddr() {
		if d, ok := dst.Addr().Interface().(Decoder); ok {
			return d.DecodeValue(src)
		}
	}

	if src == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	switch dst.Kind() {
	case reflect.Struct:
		srcMap, ok := src.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %T to %s", ErrCannotCast, src, dst.Type())
		}
		return decodeWithDepth(dst.Addr().Interface(), srcMap, depth)
	case reflect.Map:
		srcMap, ok := src.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %T to %s", ErrCannotCast, src, dst.Type())
		}
		return handleMap(dst, srcMap, depth)
	case reflect.Slice:
		srcSlice, ok := src.([]any)
		if !ok {
			return fmt.Errorf("%w: %T to %s", ErrCannotCast, src, dst.Type())
		}
		return handleSlice(dst, srcSlice, depth)
	default:
		return setValue(dst, src)
	}
}

// handleMap decodes every entry of srcMap into a fresh map assigned to dst.
func handleMap(dst reflect.Value, srcMap map[string]any, depth int) error {
	keyType := dst.Type().Key()
	if keyType.Kind() != reflect.String {
		return fmt.Errorf("%w: map key to %s", ErrCannotCast, keyType)
	}
	elemType := dst.Type().Elem()

	newMap := reflect.MakeMapWithSize(dst.Type(), len(srcMap))
	for k, v := range srcMap {
		elem := reflect.New(elemType).Elem()
		if err := setField(elem, v, depth+1); err != nil {
			return fmt.Errorf("error decoding key %q: %w", k, err)
		}
		newMap.SetMapIndex(reflect.ValueOf(k).Convert(keyType), elem)
	}
	dst.Set(newMap)
	return nil
}

// handleSlice decodes every item of srcSlice into a fresh slice assigned to dst.
func handleSlice(dst reflect.Value, srcSlice []any, depth int) error {
	newSlice := reflect.MakeSlice(dst.Type(), len(srcSlice), len(srcSlice))
	for i, v := range srcSlice {
		if err := setField(newSlice.Index(i), v, depth+1); err != nil {
			return fmt.Errorf("error decoding index %d: %w", i, err)
		}
	}
	dst.Set(newSlice)
	return nil
}

// setValue sets a scalar field, converting between numeric types. Numbers
// are never converted to strings.
func setValue(dst reflect.Value, src any) error {
	srcVal := reflect.ValueOf(src)
	dstType := dst.Type()

	if srcVal.Type().AssignableTo(dstType) {
		dst.Set(srcVal)
		return nil
	}

	if dstType.Kind() == reflect.String && srcVal.Kind() != reflect.String {
		return fmt.Errorf("%w: %T to %s", ErrCannotCast, src, dstType)
	}

	if srcVal.Type().ConvertibleTo(dstType) {
		dst.Set(srcVal.Convert(dstType))
		return nil
	}

	return fmt.Errorf("%w: %T to %s", ErrCannotCast, src, dstType)
}
