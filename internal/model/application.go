package model

import "time"

// Application statuses stored in hostel_applications.approval_status.
const (
    ApplicationPending  = "Pending"
    ApplicationApproved = "Approved"
    ApplicationRejected = "Rejected"
)

// Application is a student's request for a hostel seat.  RefNumber is the
// reference shown to the student ("REF" + six digits).  HostelName and
// RoomNo mirror the current allocation and stay empty until one exists.
type Application struct {
    ID              uint64    `json:"application_id"`
    RefNumber       string    `json:"ref_number"`
    RollNo          string    `json:"roll_no"`
    FullName        string    `json:"full_name"`
    Email           string    `json:"email"`
    Contact         string    `json:"contact"`
    Course          string    `json:"course"`
    Branch          string    `json:"branch"`
    Year            string    `json:"year"`
    Gender          string    `json:"gender"`
    FoodPreference  string    `json:"food_preference"`
    ApplicationType string    `json:"application_type"`
    DistanceKm      *int      `json:"distance_km"`
    HostelName      string    `json:"hostel_name"`
    RoomNo          string    `json:"room_no"`
    Status          string    `json:"approval_status"`
    RejectionReason string    `json:"rejection_reason,omitempty"`
    AppliedAt       time.Time `json:"application_date"`
}

// Announcement is an admin notice listed on every dashboard.
type Announcement struct {
    ID        uint64    `json:"id"`
    Title     string    `json:"title"`
    Message   string    `json:"message"`
    CreatedAt time.Time `json:"created_at"`
}

// Complaint statuses stored in complaints.status.
const (
    ComplaintPending    = "Pending"
    ComplaintInProgress = "In Progress"
    ComplaintResolved   = "Resolved"
)

// Complaint is a maintenance or conduct issue raised by a student.  RollNo
// and StudentName are filled from users on the admin listing only.
type Complaint struct {
    ID            uint64    `json:"complaint_id"`
    StudentID     uint64    `json:"student_id"`
    RollNo        string    `json:"roll_no,omitempty"`
    StudentName   string    `json:"student_name,omitempty"`
    ComplaintType string    `json:"complaint_type"`
    Description   string    `json:"description"`
    Status        string    `json:"status"`
    CreatedAt     time.Time `json:"created_at"`
    UpdatedAt     time.Time `json:"updated_at"`
}
