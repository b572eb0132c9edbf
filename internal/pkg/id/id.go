package id

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New generates a new ULID string used as the user identifier in both the
// DynamoDB partition key and the Mongo _id.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
