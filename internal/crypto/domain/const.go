package domain

// Algorithm represents the authenticated cipher a master key is used with.
//
// Both supported algorithms take a 256-bit key, a 96-bit nonce and produce a
// 128-bit tag, so values sealed by either share one wire format.
type Algorithm string

const (
	// AESGCM represents AES-256-GCM. This is the default for new keys.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents ChaCha20-Poly1305, for hosts without AES hardware acceleration.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	return a == AESGCM || a == ChaCha20
}

// Wire format sizes for EncryptedValue blobs.
const (
	// KeySize is the required master key length in bytes.
	KeySize = 32
	// NonceSize is the per-encryption random nonce length in bytes.
	NonceSize = 12
	// TagSize is the authentication tag length in bytes.
	TagSize = 16
	// MinCiphertextSize is the shortest decodable blob: nonce plus tag of an empty plaintext.
	MinCiphertextSize = NonceSize + TagSize
)
