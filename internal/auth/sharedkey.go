package auth

import "crypto/subtle"

// KeyMatches compares the key a client presented with the relay's shared key,
// byte for byte, in constant time.
func KeyMatches(presented, shared string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), []byte(shared)) == 1
}
