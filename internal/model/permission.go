package model

// Permission represents a string code for a specific staff action.
type Permission string

const (
	// PermissionResultsRead allows listing exam results for declaration.
	PermissionResultsRead Permission = "results:read"

	// PermissionExamsMonitor allows attaching to the live session monitor.
	PermissionExamsMonitor Permission = "exams:monitor"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionResultsRead,
	PermissionExamsMonitor,
}
