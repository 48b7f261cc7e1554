package catalog

import "context"

// Project is a cost/destination bucket entries must be assigned to before
// they can be confirmed.
type Project struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Location is a physical receiving site. Every upload targets one.
type Location struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// PartNumber is a catalog item line mappings resolve against.
type PartNumber struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// Lookup provides read access to the reference catalog. Implementations must
// be safe for concurrent use.
type Lookup interface {
	ActiveProjects(ctx context.Context) ([]Project, error)
	ActiveLocations(ctx context.Context) ([]Location, error)
	// FindProject returns nil when no active project matches the id.
	FindProject(ctx context.Context, id string) (*Project, error)
	// FindLocation returns nil when no active location matches the id.
	FindLocation(ctx context.Context, id string) (*Location, error)
	// PartNumbers returns a snapshot of active part numbers for mapping
	// resolution. The slice is owned by the caller.
	PartNumbers(ctx context.Context) ([]PartNumber, error)
}
