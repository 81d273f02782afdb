package models

import (
	"strings"

	"github.com/google/uuid"
)

// idNamespace scopes generated identifiers so they never collide with random UUIDs.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://campus-sim.local/entities"))

// NewID derives a stable identifier from an entity kind and its natural key parts.
func NewID(kind string, parts ...string) string {
	name := kind + ":" + strings.Join(parts, "/")
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
