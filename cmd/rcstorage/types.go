package main

import (
	"time"

	"github.com/baraverkstad/rcstorage"
)

// typeRegistry is the CLI's rcstorage.TypeRegistry: every declared type
// activates as a plain *rcstorage.BaseObject, giving command output the
// lifecycle-stamped dictionary without requiring domain-specific Go
// types to be registered up front.
type typeRegistry struct{}

func (typeRegistry) Constructor(_ string) (func(d rcstorage.Dictionary) rcstorage.StorableObject, bool) {
	return func(d rcstorage.Dictionary) rcstorage.StorableObject {
		return rcstorage.NewBaseObject(d, func() any { return nowStamp() })
	}, true
}

func nowStamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
