// Package dto contains Data Transfer Objects for HTTP requests and responses.
//
// DTOs are separate from domain entities so the API controls what is exposed
// (a user's session id and block list never leave the server) and so request
// binding rules live next to the wire names.
//
// Naming convention:
//   - Request types: <Action><Resource>Request (e.g., CreateLobbyRequest)
//   - Response types: <Resource>Response (e.g., UserResponse)
package dto
