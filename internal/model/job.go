package model

import "time"

// Job is one tracked job application, owned by exactly one user.
//
// The JSON field names are the frontend's space-delimited column headers
// ("Source Link", "Hiring Mgr", ...): the table component renders whatever
// keys it receives, so the API speaks the frontend's vocabulary directly.
type Job struct {
	ID          string    `json:"id"            db:"id"`
	UserID      string    `json:"-"             db:"user_id"`
	Date        string    `json:"Date"          db:"date"`
	Role        string    `json:"Role"          db:"role"`
	Company     string    `json:"Company"       db:"company"`
	SourceLink  string    `json:"Source Link"   db:"source_link"`
	CompanyLink string    `json:"Company Link"  db:"company_link"`
	Resume      bool      `json:"Resume"        db:"resume"`
	CoverLetter bool      `json:"Cover Letter"  db:"cover_letter"`
	Status      string    `json:"Status"        db:"status"`
	Recruiter   string    `json:"Recruiter"     db:"recruiter"`
	HiringMgr   string    `json:"Hiring Mgr"    db:"hiring_mgr"`
	Panel       string    `json:"Panel"         db:"panel"`
	HR          string    `json:"HR"            db:"hr"`
	Comments    string    `json:"Comments"      db:"comments"`
	CreatedAt   time.Time `json:"-"             db:"created_at"`
	UpdatedAt   time.Time `json:"-"             db:"updated_at"`
}

// DefaultJobStatus is applied when a new record arrives without one.
const DefaultJobStatus = "Applied"
