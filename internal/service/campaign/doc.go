// Package campaign implements campaign launch and history logic.
//
// The service layer owns the launch pipeline: it persists the campaign,
// materializes the segment's audience, renders one message per customer,
// and writes the pending communication log in a single batch. It depends
// on repository interfaces defined in this package and should never import
// from api/.
//
// Repository implementations live in repository/postgres/ and, for tests,
// in-package fakes.
package campaign
