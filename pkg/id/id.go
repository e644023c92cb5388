package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string. ULIDs are time-sortable, which keeps request
// ids in access logs naturally ordered by arrival.
func New() string {
	return ulid.Make().String()
}
