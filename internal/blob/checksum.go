package blob

import "github.com/cespare/xxhash/v2"

// Fingerprint returns the xxHash64 of the header followed by the body.
// The body must be host readable.
func (b *Blob) Fingerprint() uint64 {
	d := xxhash.New()
	_, _ = d.Write(b.header)
	_, _ = d.Write(b.body)
	return d.Sum64()
}

// HeaderFingerprint returns the xxHash64 of the header alone.
func (b *Blob) HeaderFingerprint() uint64 {
	return xxhash.Sum64(b.header)
}
