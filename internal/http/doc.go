// Package http provides HTTP handlers and middleware for the facility
// scheduler API.
//
// The router exposes the following endpoints:
//   - GET /spaces, POST /spaces, GET /spaces/{id}, PUT /spaces/{id},
//     DELETE /spaces/{id}: space catalog endpoints exchanging the `spaceDTO`
//     payload defined in space_handler.go. Listing and reads are open while
//     mutations require the admin token.
//   - GET /spaces/{id}/windows, PUT /spaces/{id}/windows: availability window
//     endpoints. PUT replaces the full window set for a space and requires the
//     admin token.
//   - POST /reservations: validates a batch reservation request (recurrence
//     expansion, availability fit, conflict detection) and persists every
//     occurrence in one transaction when accepted. A rejected request returns
//     422 with the reason kind and the bounded offender list.
//   - POST /reservations/preview: runs the same validation pipeline without
//     persisting anything.
//   - GET /recurrence/preview: expands a recurrence rule supplied via query
//     parameters for calendar pre-flight.
//   - GET /reservations?space=&from=&to=: lists confirmed occurrences.
//   - DELETE /reservations/{id}, DELETE /reservations/batches/{id}: cancels
//     one occurrence or a whole batch, freeing the slots.
//   - GET /rentals, POST /rentals, DELETE /rentals/{id}: external rental
//     ledger endpoints exchanging the `rentalDTO` payload defined in
//     rental_handler.go.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
