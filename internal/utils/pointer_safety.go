package utils

import (
	"net/url"
	"strconv"
)

// Value dereferences v, returning the zero value for nil.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}

// SetString adds key to q when v is non-empty.
func SetString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}

// SetInt adds key to q when v is positive. Page numbers and ids are never zero.
func SetInt(q url.Values, key string, v int64) {
	if v > 0 {
		q.Set(key, strconv.FormatInt(v, 10))
	}
}

// SetBool adds key to q when v is set.
func SetBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}
