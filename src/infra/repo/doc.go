// Package repo contains the storage adapters for the ports in src/core/ports.
//
// Two backends implement ports.Store:
//   - PostgresRepository: pgx over the schema in src/infra/db/migrations.
//     Users and lobbies are relational rows; games are a JSONB document.
//   - MemoryRepository: a mutex-guarded in-process store used by tests and
//     by APP_STORAGE=memory for local play.
//
// Both return domain.ErrNotFound for missing rows and domain.ErrAlreadyExists
// for unique violations; every other failure is returned wrapped and is
// classified as unavailable by the use cases.
package repo
