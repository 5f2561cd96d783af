package utils

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

var ulidMutex sync.Mutex

// GenerateULID returns a new ULID string. ulid.Make is not safe for
// concurrent use with the default entropy source, so generation is
// serialized here.
func GenerateULID() string {
	ulidMutex.Lock()
	defer ulidMutex.Unlock()
	return ulid.Make().String()
}
