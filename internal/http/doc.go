// Package http exposes the campus yoga schedule as a JSON API on gin.
//
// Callers identify themselves with a bearer JWT issued by the campus identity provider;
// requests without a token are served anonymously where the route allows it.
//
// Public routes:
//   - GET /calendar/month?month=YYYY-MM: month grid. Repeated `expand` and `show_past`
//     parameters (YYYY-MM-DD) carry the per-day cell toggles.
//   - GET /calendar/week?date=YYYY-MM-DD: Sunday-start week grid with pixel placement.
//   - GET /calendar.ics: iCalendar feed of recent and upcoming classes.
//   - GET /classes?from=YYYY-MM-DD&until=YYYY-MM-DD, GET /classes/{id}: listings and the
//     class detail view including the caller's registration status.
//   - GET /buildings, GET /buildings/{id}: location catalog.
//   - GET /healthz, GET /metrics.
//
// Signed-in routes:
//   - GET|POST|DELETE /classes/{id}/registration.
//   - GET /me/classes/upcoming, GET /me/classes/past.
//
// Admin routes live under /admin: class create/update/cancel/uncancel/delete, series
// create/list/get/patch/delete with cancel-future and delete-future, POST /admin/series/extend,
// and PUT /admin/buildings/{id}.
//
// Request/response DTOs live in dto.go and alongside their handlers.
package http
