package entities

// All returns every model in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Network{},
		&Sighting{},
		&Session{},
		&RoutePoint{},
		&IRK{},
	}
}
