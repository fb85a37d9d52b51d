package models

// CreateStudentRequest is the admin account-provisioning payload. It creates
// the auth identity, the profile and the optional assigned time slots in one
// call.
type CreateStudentRequest struct {
	Email          string            `json:"email" validate:"required,email"`
	Password       string            `json:"password" validate:"required,min=8"`
	FullName       string            `json:"full_name" validate:"required"`
	StudentID      string            `json:"student_id"`
	Phone          string            `json:"phone"`
	SeatNumber     string            `json:"seat_number"`
	AttendanceGoal int               `json:"attendance_goal" validate:"omitempty,min=1"`
	TimeSlots      []TimeSlotRequest `json:"time_slots" validate:"omitempty,dive"`
}

// UpdateStudentRequest is the admin-side profile edit payload. Unlike the
// student self-edit, it also covers student id and seat assignment.
type UpdateStudentRequest struct {
	FullName       string  `json:"full_name" validate:"required"`
	Phone          *string `json:"phone"`
	StudentID      *string `json:"student_id"`
	SeatNumber     *string `json:"seat_number"`
	AttendanceGoal *int    `json:"attendance_goal" validate:"omitempty,min=1"`
}

// StudentDetail joins a student's profile with their assigned slots.
type StudentDetail struct {
	Profile   Profile    `json:"profile"`
	TimeSlots []TimeSlot `json:"time_slots"`
}
