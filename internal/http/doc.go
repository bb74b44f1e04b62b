// Package http exposes the room booking API over JSON.
//
// Public endpoints:
//   - POST /sessions: unified login, admin roster first and then regular users. Body
//     {"email","password"}. Response {"token","expires_at","account"}; the token is also
//     returned in the `X-Session-Token` header and a `session_token` cookie.
//   - POST /users/register: self registration of a regular user.
//   - GET /healthz, GET /readyz: liveness and readiness probes.
//
// Every other endpoint requires a session token in the Authorization bearer header or the
// session cookie:
//   - DELETE /sessions/current: logout.
//   - GET /slots, GET /slots/start-times: the booking grid.
//   - GET /availability?date&room&start&end: whether one interval is free.
//   - GET /availability/end-times?date&room&start&seq&form: end times reachable from start.
//     Requests are tracked per account and form; a response overtaken by a newer request for
//     the same form reports "stale": true and no end times.
//   - GET /availability/day?date&room: free start times for a whole day.
//   - GET /rooms, GET /classes: the booking catalogue.
//   - POST /reservations, GET /reservations/mine, GET /reservations/calendar?month=YYYY-MM,
//     PATCH /reservations/{id}/cancel.
//
// Admins and super admins additionally reach GET /reservations?search&status&sort,
// PATCH /reservations/{id}/status and DELETE /reservations/{id}. Super admins manage
// /admins, read /users and /dashboard/stats, and download GET /exports/reservations?format=csv|json.
//
// Request and response DTOs live alongside their handlers. Errors are returned as
// {"error_code","message","errors","conflicts"} with the status chosen by errorBody.
package http
