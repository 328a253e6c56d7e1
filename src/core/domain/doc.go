// Package domain contains the core model of the party game: users, lobbies,
// games, rounds and guesses, together with the error kinds every layer uses.
//
// Rules for this package:
//   - No infrastructure concerns (database, HTTP, schedulers)
//   - Entities validate their own invariants and state transitions
//   - Methods mutate the receiver; callers hold the per-lobby or per-game
//     lock and persist the result
//
// Lobby lifecycle:
//
//	WAITING -> IN_PROGRESS -> FINISHED
//	WAITING | IN_PROGRESS -> CLOSED
//
// Round lifecycle (forward only):
//
//	WAITING_FOR_PROMPT -> GENERATING_IMAGE -> WAITING_FOR_GUESSES
//	    -> EVALUATING_GUESSES -> COMPLETED
package domain
