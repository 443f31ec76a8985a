// Package checksum produces the content identifier used to deduplicate
// field instances in the offset table. It wraps crypto/sha256, the
// reference implementation's leaf hash primitive.
package checksum

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// Of renders the SHA-256 digest of data as the uppercase hex token used
// throughout the offset table.
//
// The reference serializer formats each digest byte with an unpadded
// hex specifier (`std::hex << std::uppercase`), so a byte like 0x0A
// renders as a single character "A" rather than "0A". That quirk is
// preserved here: callers persisting or comparing checksums must treat
// the token as an opaque string, never assume a fixed 64-character
// length.
func Of(data []byte) string {
	sum := sha256.Sum256(data)

	var b strings.Builder
	b.Grow(64)
	for _, v := range sum {
		fmt.Fprintf(&b, "%X", v)
	}
	return b.String()
}
