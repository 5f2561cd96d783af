package paths

import (
	"net/url"
	"strings"

	"github.com/gear6io/strata/pkg/errors"
	"github.com/gear6io/strata/server/partition"
)

// NullPartitionValue is the on-disk sentinel for a null (empty) partition
// value. It is a bit-exact external contract: the reader side decodes the
// same token. Values are percent-encoded, so a column value can never
// collide with a path separator or the '=' separator.
const NullPartitionValue = "__NULL__"

// sentinelShape marks tokens reserved for special on-disk meanings
func sentinelShape(s string) bool {
	return len(s) > 4 && strings.HasPrefix(s, "__") && strings.HasSuffix(s, "__")
}

// Fragment computes the canonical relative path fragment for a partition
// spec over the declared column order: "col1=val1/col2=val2/...". A null
// (empty) value maps to NullPartitionValue; only that token ever appears
// on disk in sentinel shape. Pure function, total for any well-formed
// spec, and ParseFragment inverts it exactly.
func Fragment(spec partition.Spec, order []string) string {
	segments := make([]string, 0, len(order))
	for _, col := range order {
		value, ok := spec[col]
		if !ok {
			continue
		}
		encoded := NullPartitionValue
		if value != "" {
			encoded = url.QueryEscape(value)
			// A real value that merely looks like a sentinel must not
			// reach the disk in sentinel shape, or the reader would
			// reject it. Percent-encoding the underscores keeps the
			// segment a plain decodable value.
			if sentinelShape(encoded) {
				encoded = strings.ReplaceAll(encoded, "_", "%5F")
			}
		}
		segments = append(segments, url.QueryEscape(col)+"="+encoded)
	}
	return strings.Join(segments, "/")
}

// ParseFragment is the inverse of Fragment. It fails with
// paths.malformed_partition_path if a segment lacks the '=' separator or
// carries an unrecognized sentinel token.
func ParseFragment(fragment string) (partition.Spec, error) {
	spec := make(partition.Spec)
	if fragment == "" {
		return spec, nil
	}

	for _, segment := range strings.Split(fragment, "/") {
		idx := strings.Index(segment, "=")
		if idx < 1 {
			return nil, errors.New(ErrMalformedPartitionPath, "partition path segment lacks '=' separator", nil).
				AddContext("segment", segment).
				AddContext("fragment", fragment)
		}

		col, err := url.QueryUnescape(segment[:idx])
		if err != nil {
			return nil, errors.New(ErrMalformedPartitionPath, "partition column name is not decodable", err).
				AddContext("segment", segment)
		}

		raw := segment[idx+1:]
		if raw == NullPartitionValue {
			spec[col] = ""
			continue
		}
		if sentinelShape(raw) {
			return nil, errors.New(ErrMalformedPartitionPath, "unrecognized partition value sentinel", nil).
				AddContext("segment", segment).
				AddContext("sentinel", raw)
		}

		value, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, errors.New(ErrMalformedPartitionPath, "partition value is not decodable", err).
				AddContext("segment", segment)
		}
		spec[col] = value
	}

	return spec, nil
}
