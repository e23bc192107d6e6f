package diff

// MigrationPair holds the previous and next side of one entity
type MigrationPair[T any] struct {
	Previous T
	Next     T
}

// NewMigrationPair creates a new MigrationPair
func NewMigrationPair[T any](previous, next T) MigrationPair[T] {
	return MigrationPair[T]{Previous: previous, Next: next}
}

// MapPair applies f to both sides of a pair
func MapPair[T, U any](p MigrationPair[T], f func(T) U) MigrationPair[U] {
	return MigrationPair[U]{Previous: f(p.Previous), Next: f(p.Next)}
}

// indexPair is one pairing index entry; -1 marks an absent side
type indexPair struct {
	prev int
	next int
}

func newIndexPair() indexPair { return indexPair{prev: -1, next: -1} }
