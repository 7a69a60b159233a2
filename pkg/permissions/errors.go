package permissions

import (
	"errors"
	"fmt"
)

// ErrUnknownPermission is returned when a permission id is not present in the
// catalog. It indicates bad input from an administrative caller, never a
// normal deny, and must not be masked as one.
var ErrUnknownPermission = errors.New("unknown permission")

// Validate checks that every id is known, returning ErrUnknownPermission
// (wrapped with the offending id) on the first unknown entry. Used by role
// editing surfaces to reject bad permission lists before they are stored.
func (c *Catalog) Validate(ids ...ID) error {
	for _, id := range ids {
		if !c.IsKnown(id) {
			return fmt.Errorf("%q: %w", id, ErrUnknownPermission)
		}
	}
	return nil
}
