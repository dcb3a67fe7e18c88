package repository

import "go-crash/internal/repository/mysql"

// Store bundles the round repository and the transactional game store into
// the single persistence surface the engine consumes.
type Store struct {
	*RoundRepository
	*GameStore
}

func NewStore(dbhandler mysql.Handler) *Store {
	return &Store{
		RoundRepository: NewRoundRepository(dbhandler),
		GameStore:       NewGameStore(dbhandler),
	}
}
