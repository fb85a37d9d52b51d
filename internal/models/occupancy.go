package models

// OccupancySnapshot is the canonical shape of the get_library_status()
// aggregate. Available is reported as computed server-side and is never
// recomputed from Occupied and TotalSeats.
type OccupancySnapshot struct {
	Occupied   int `json:"current_occupied"`
	TotalSeats int `json:"total_seats"`
	Available  int `json:"available"`
}

// OccupancyView adds the derived capacity percentage for display.
type OccupancyView struct {
	OccupancySnapshot
	Percent int `json:"percent"`
}
