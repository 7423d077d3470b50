package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/event-booking/internal/model"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// UserRepo persists users in the `users` table.  Email comparison is
// exact: the column uses a binary collation so lookups are case-sensitive.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// CreateUser inserts a user and returns it with its generated id.
func (r *UserRepo) CreateUser(ctx context.Context, name, email, passwordHash string, role model.Role) (model.User, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, passwordHash, role)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return model.User{ID: uint64(id), Name: name, Email: email, PasswordHash: passwordHash, Role: role}, nil
}

// GetUserByEmail fetches a user by exact email.
func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "SELECT id,name,email,password_hash,role FROM users WHERE email=? LIMIT 1", email)
}

// GetUserByID fetches a user by id.
func (r *UserRepo) GetUserByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getOne(ctx, "SELECT id,name,email,password_hash,role FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
