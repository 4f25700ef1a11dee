package scheduler

// Config holds the intervals (in minutes) of the periodic sync tasks.
// Zero disables a task.
type Config struct {
	// BlueprintsInterval is the blueprint sync interval.
	BlueprintsInterval int `mapstructure:"blueprints_interval" default:"30"`
	// JobsInterval is the industry job sync interval.
	JobsInterval int `mapstructure:"jobs_interval" default:"10"`
	// LocationsInterval is the location name resolution interval.
	LocationsInterval int `mapstructure:"locations_interval" default:"60"`
	// TypesInterval is the type name enrichment interval.
	TypesInterval int `mapstructure:"types_interval" default:"60"`
}
