package model

import "time"

// Role values stored in users.role.  Regular users book rooms; admins
// additionally manage rooms, users and reservation approvals.
const (
    RoleUser  = "USER"
    RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table.  Each field corresponds to a column in the
// database.  The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address (stored lowercase).
//  Name         – display name shown on reservations.
//  PasswordHash – bcrypt hashed password; never compared in plaintext.
//  Role         – USER or ADMIN.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    Name         string    // users.name
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
