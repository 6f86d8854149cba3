package utils

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
)

func ToNullString(str string) sql.NullString {
	if str == "" {
		return sql.NullString{
			String: str,
			Valid:  false,
		}
	}
	return sql.NullString{
		String: str,
		Valid:  true,
	}
}

// GenerateRandomString returns a URL-safe random string built from n bytes
// of a cryptographically secure source.
func GenerateRandomString(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failing means the process cannot do anything
		// security-relevant at all
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
