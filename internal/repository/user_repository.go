package repository

import (
    "context"
    "database/sql"
    "errors"
    "strings"

    "github.com/mkarwowski/room-reservation/internal/model"
    "github.com/mkarwowski/room-reservation/internal/utils"
)

// UserRepo persists application users. Emails are normalized to
// lowercase before storage and lookup so uniqueness is case-insensitive.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// Create hashes the password, inserts the user and returns its ID.
// The MySQL duplicate-key error on the unique email index maps to
// ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, email, name, password, role string, cost int) (uint64, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    hash, err := utils.HashPassword(password, cost)
    if err != nil {
        return 0, err
    }
    res, err := r.DB.ExecContext(ctx,
        "INSERT INTO users (email, name, password_hash, role) VALUES (?,?,?,?)",
        email, name, hash, role)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return 0, ErrEmailExists
        }
        return 0, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
    email = strings.ToLower(strings.TrimSpace(email))
    var u model.User
    err := r.DB.QueryRowContext(ctx,
        "SELECT id,email,name,password_hash,role,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
        email).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
    var u model.User
    err := r.DB.QueryRowContext(ctx,
        "SELECT id,email,name,password_hash,role,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
        id).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
    return u, err
}

// List returns all users, newest first. Password hashes are included
// on the model; handlers must not serialize them.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
    rows, err := r.DB.QueryContext(ctx,
        "SELECT id,email,name,password_hash,role,is_active,created_at,updated_at FROM users ORDER BY created_at DESC")
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    users := make([]model.User, 0)
    for rows.Next() {
        var u model.User
        if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
            return nil, err
        }
        users = append(users, u)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return users, nil
}
