// Package http provides HTTP handlers and middleware for the agenda booking API.
//
// Public endpoints need no session; their requests are rate limited per
// client address:
//   - GET /public/agendas/{slug}: agenda card with services, capacity and
//     whether a booking password is required.
//   - GET /public/agendas/{slug}/days: dates currently open for booking.
//   - GET /public/agendas/{slug}/slots?date=YYYY-MM-DD&service=NAME: free times.
//   - POST /public/agendas/{slug}/appointments: books a slot and returns the
//     confirmation code.
//   - GET, PUT and DELETE /public/appointments/{code}: lookup, in place
//     edit under the same code, and cancellation.
//
// Staff endpoints require a session token sent as `Authorization: Bearer` or
// the `session_token` cookie issued by POST /sessions:
//   - POST /sessions; GET, PUT (token rotation) and DELETE /sessions/current.
//   - /agendas, /agendas/{id}: agenda management (writes are admin only).
//   - /services, /services/{name}, /addresses, /addresses/{id}: shared catalog.
//   - /users, /users/{id}: administrator controlled accounts.
//   - GET /reports/appointments?agenda_ids=&from=&to=&format=json|pdf.
//   - GET /data: administrative snapshot of every stored record.
//
// GET /healthz answers 204 while storage responds and 503 otherwise.
//
// Failures are JSON objects {"error_code","message","errors"} with messages in
// Brazilian Portuguese. Request/response DTOs live alongside their handlers.
package http
