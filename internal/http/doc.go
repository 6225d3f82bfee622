// Package http exposes the wavemeet services as a JSON API on fiber.
//
// Every route except /healthz requires an HS256 bearer token whose `sub` claim
// identifies the caller. Routes live under /api/v1:
//   - PUT /presence, GET /presence, DELETE /presence: the caller's availability
//     broadcast. GET /presence/nearby?lat=&lng=&radius_km=&limit= lists other
//     broadcasts nearest first; GET /presence/:userID reads one user's broadcast.
//   - POST /matches, GET /matches: respond to a broadcast and list buddy matches.
//   - POST /waves, GET /waves/nearby, GET /waves/:id, DELETE /waves/:id and
//     POST/DELETE /waves/:id/participants: the wave lifecycle.
//   - GET /chats, GET /chats/:id/members, GET/POST /chats/:id/messages: crew and
//     buddy chats.
//   - PUT /profile, POST /blocks: directory data used to present members and
//     filter messages.
//   - GET /activities: the activity catalogue with labels, icons and prompts.
//   - GET /ws: websocket stream of chat.message, wave.unlocked and buddy.matched
//     events. Browsers may pass the token as ?access_token= on this route.
//
// Errors are returned as {"error_code","message","errors"} where error_code is
// one of UNAUTHENTICATED, NOT_FOUND, EXPIRED, CONFLICT, PERMISSION_DENIED,
// INVALID_ARGUMENT or INTERNAL.
//
// Request/response DTOs live alongside their respective handlers.
package http
