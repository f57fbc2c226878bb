package utils

// -----------------------------------------------------------------------------

const (
	// ActivityLogCapacity is how many activity entries are kept.
	ActivityLogCapacity = 50
)
