package repository

const (
	tableNetworks    = "networks"
	tableSightings   = "sightings"
	tableSessions    = "sessions"
	tableRoutePoints = "route_points"
	tableIRKs        = "irks"
)

// Tables lists every table in child-first order, the order rows must be
// deleted in when clearing the store.
func Tables() []string {
	return []string{tableSightings, tableRoutePoints, tableNetworks, tableSessions, tableIRKs}
}
