package domain

import "strconv"

// fingerprintHead bounds how much document text feeds the fingerprint.
// Hashing the head plus the total length catches both edits near the top
// and any change in document size without rereading megabytes.
const fingerprintHead = 16 * 1024

// Fingerprint computes a fast, non-cryptographic content hash (djb2) over
// the title, the first 16 KB of text and the total text length.
// It is deterministic across runs and used for cache revalidation only.
func Fingerprint(title, text string) uint64 {
	h := uint64(5381)
	h = djb2(h, title)
	head := text
	if len(head) > fingerprintHead {
		head = head[:fingerprintHead]
	}
	h = djb2(h, head)
	h = djb2(h, strconv.Itoa(len(text)))
	return h
}

func djb2(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h = h*33 + uint64(s[i])
	}
	return h
}
