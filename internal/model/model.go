package model

import "time"

// School is a tenant account.
type School struct {
	ID           string    `json:"id"`
	SchoolName   string    `json:"school_name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	AdminName    string    `json:"admin_name"`
	SchoolImage  string    `json:"school_image,omitempty"` // Cloudinary URL
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Teacher belongs to exactly one school.
type Teacher struct {
	ID            string    `json:"id"`
	SchoolID      string    `json:"school_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Qualification string    `json:"qualification"`
	Age           int       `json:"age"`
	Gender        string    `json:"gender"`
	TeacherImage  string    `json:"teacher_image,omitempty"` // Cloudinary URL
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Student belongs to exactly one school and one class of that school.
type Student struct {
	ID            string    `json:"id"`
	SchoolID      string    `json:"school_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	ClassID       string    `json:"student_class"`
	Age           int       `json:"age"`
	Gender        string    `json:"gender"`
	Guardian      string    `json:"guardian"`
	GuardianPhone string    `json:"guardian_phone"`
	PasswordHash  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// Class is a tenant-scoped class, unique by number within its school.
type Class struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"school_id"`
	ClassText   string    `json:"class_text"`
	ClassNumber int       `json:"class_number"`
	AttendeeID  *string   `json:"attendee,omitempty"` // class teacher
	CreatedAt   time.Time `json:"created_at"`
}

// Subject is unique within its school by name and by codename.
type Subject struct {
	ID              string    `json:"id"`
	SchoolID        string    `json:"school_id"`
	SubjectName     string    `json:"subject_name"`
	SubjectCodename string    `json:"subject_codename"`
	CreatedAt       time.Time `json:"created_at"`
}

// AttendanceStatus is the outcome recorded for a student.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// Attendance is one recorded status for a student in a class and subject.
type Attendance struct {
	ID          string           `json:"id"`
	SchoolID    string           `json:"school_id"`
	StudentID   string           `json:"student_id"`
	StudentName string           `json:"student_name,omitempty"` // joined from students
	ClassID     string           `json:"class_id"`
	SubjectID   string           `json:"subject_id"`
	SubjectName string           `json:"subject_name,omitempty"` // joined from subjects
	Date        time.Time        `json:"date"`
	Status      AttendanceStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}
