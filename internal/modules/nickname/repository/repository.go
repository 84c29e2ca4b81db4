package repository

// Repository defines the interface for tracked-nickname persistence.
// The list is ordered and case-preserving.
type Repository interface {
	// GetAll returns the tracked nicknames in insertion order. A missing
	// file yields an empty list, not an error.
	GetAll() ([]string, error)
	// SaveAll overwrites the tracked-nickname list wholesale.
	SaveAll(nicknames []string) error
	// Path returns the location of the backing file, for change watching.
	Path() string
	// Invalidate drops any in-process cache so the next GetAll re-reads disk.
	Invalidate()
}
