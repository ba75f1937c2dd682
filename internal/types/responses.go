package types

// ------------------------------
// Response Types
// ------------------------------

// LoadResult is everything the loader assembles in one pass: normalized
// rows plus the directory, current user, and parent snapshot the normalizer
// and the forms depend on.
type LoadResult struct {
	Rows        []HistoryRow
	Owners      []OwnerEntry
	CurrentUser *OwnerEntry
	Parent      *ParentRecord
	TypeCatalog []string
}

// ReloadAck acknowledges that a background reconciliation reload was
// accepted by the executor. The reload itself completes asynchronously.
type ReloadAck struct {
	ParentID string `json:"parentId"`
	Status   string `json:"status"`
}

// WriteResult reports the outcome of a record mutation, including how many
// junction writes succeeded (junction failures are best-effort and do not
// fail the mutation).
type WriteResult struct {
	ID              string
	JunctionsOK     int
	JunctionsFailed int
}
