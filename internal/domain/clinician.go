package domain

// ClinicianProfile 临床人员档案（对应 clinician_profiles 表）
// Links an auth-provider user id to the hospital/service the clinician works in.
type ClinicianProfile struct {
	ProfileID string `db:"profile_id"` // UUID, PRIMARY KEY
	UserID    string `db:"user_id"`    // UUID, NOT NULL, UNIQUE (auth provider user)
	FullName  string `db:"full_name"`  // VARCHAR(200), NOT NULL
	Hospital  string `db:"hospital"`   // VARCHAR(200), NOT NULL
	Service   string `db:"service"`    // VARCHAR(200), NOT NULL
}
