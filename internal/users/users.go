package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// InsertUser hashes the password and creates the user row.
func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hashing password: %w", err)
	}

	user := User{
		ID:        uuid.NewString(),
		Name:      nu.Name,
		Email:     nu.Email,
		Age:       nu.Age,
		Gender:    nu.Gender,
		Mobile:    nu.Mobile,
		Address:   nu.Address,
		Role:      "user",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	query := `
		INSERT INTO users (id, name, email, age, gender, mobile, address, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (email) DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.Age, user.Gender,
		user.Mobile, user.Address, string(hash), user.Role,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return User{}, fmt.Errorf("inserting user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return User{}, ErrDuplicateEmail
	}
	return user, nil
}

// Authenticate checks the password against the stored hash and returns the
// user on success.
func (c *Conf) Authenticate(ctx context.Context, email, password string) (User, error) {
	var user User
	var hash string
	query := `
		SELECT id, name, email, age, gender, mobile, address, password_hash, role, created_at, updated_at
		FROM users WHERE email = $1
	`
	err := c.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID, &user.Name, &user.Email, &user.Age, &user.Gender,
		&user.Mobile, &user.Address, &hash, &user.Role,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("querying user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, fmt.Errorf("password mismatch: %w", err)
	}
	return user, nil
}

func (c *Conf) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return c.getUser(ctx, "email", email)
}

func (c *Conf) GetUserByID(ctx context.Context, id string) (User, error) {
	return c.getUser(ctx, "id", id)
}

func (c *Conf) getUser(ctx context.Context, column, value string) (User, error) {
	var user User
	query := fmt.Sprintf(`
		SELECT id, name, email, age, gender, mobile, address, role, created_at, updated_at
		FROM users WHERE %s = $1
	`, column)
	err := c.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Name, &user.Email, &user.Age, &user.Gender,
		&user.Mobile, &user.Address, &user.Role,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("querying user by %s: %w", column, err)
	}
	return user, nil
}

// UpdatePassword hashes and stores a new password for the user.
func (c *Conf) UpdatePassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	res, err := c.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		string(hash), userID,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile applies the mutable profile fields. Empty strings and zero
// values leave the column unchanged.
func (c *Conf) UpdateProfile(ctx context.Context, userID string, nu NewUser) (User, error) {
	query := `
		UPDATE users SET
			name    = COALESCE(NULLIF($1, ''), name),
			age     = CASE WHEN $2 > 0 THEN $2 ELSE age END,
			gender  = COALESCE(NULLIF($3, ''), gender),
			mobile  = COALESCE(NULLIF($4, ''), mobile),
			address = COALESCE(NULLIF($5, ''), address),
			updated_at = NOW()
		WHERE id = $6
	`
	res, err := c.db.ExecContext(ctx, query, nu.Name, nu.Age, nu.Gender, nu.Mobile, nu.Address, userID)
	if err != nil {
		return User{}, fmt.Errorf("updating profile: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return User{}, ErrNotFound
	}
	return c.GetUserByID(ctx, userID)
}

func (c *Conf) DeleteUser(ctx context.Context, userID string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
