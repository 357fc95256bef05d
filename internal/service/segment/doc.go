// Package segment implements segment lifecycle management.
//
// The service layer owns all business rules for creating, updating, and
// deleting audience segments: rule validation, preview-count computation,
// and the referenced-by-campaign delete guard. It depends on repository
// interfaces defined in this package and should never import from api/.
//
// Repository implementations live in repository/postgres/ and
// repository/memory/.
package segment
