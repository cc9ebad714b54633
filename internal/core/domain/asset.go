package domain

import "time"

// AssetRef points at a stored binary object.
type AssetRef struct {
	// Locator is the durable public URL of the object.
	Locator string `json:"locator"`
	// DisplayName is the original filename as chosen by the user.
	DisplayName string `json:"display_name"`
	// Bucket and Path identify the object inside the store.
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
}

// Document is an uploaded PDF attached to an owner (usually a trip).
type Document struct {
	ID        string
	OwnerID   string
	Asset     AssetRef
	CreatedAt time.Time
}

// OrphanedObject is a stored object that no record points at anymore and
// whose removal failed. It is retried by the pruner.
type OrphanedObject struct {
	ID        string
	Bucket    string
	Path      string
	Reason    string
	Attempts  int
	CreatedAt time.Time
}
