// Package requests implements the blueprint request workflow.
//
// Users open a request for a blueprint type; managers approve or deny it.
// Requests carry a public uuid reference, transition only out of the open
// status, and keep their decision metadata (who, when, notes).
//
// # HTTP Endpoints
//
//   - POST /requests                       : create a request
//   - GET  /requests?character_id=        : a character's own requests
//   - GET  /requests/open                 : manager queue, oldest first
//   - POST /requests/:reference/approve   : approve an open request
//   - POST /requests/:reference/deny      : deny an open request
package requests
