package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgconn"
	"github.com/vlab-edu/vlab-backend/internal/infrastructure/driver"
	"github.com/vlab-edu/vlab-backend/internal/infrastructure/uuid"
)

// UserRepositoryImpl SQL backed user repository
type UserRepositoryImpl struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
}

var _ UserRepository = &UserRepositoryImpl{}

// NewUserRepository ...
func NewUserRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *UserRepositoryImpl {
	return &UserRepositoryImpl{
		Conn:          Conn,
		UUIDGenerator: UUIDGenerator,
	}
}

// FindByCredential query user with provided credential
func (repo *UserRepositoryImpl) FindByCredential(ctx context.Context, post *UserModel) (*UserModel, error) {
	conn := repo.Conn
	username := post.Username
	email := post.Email
	row, err := conn.QueryContext(ctx, `SELECT id, username, password, email, login_retry
	FROM user WHERE username=$1 OR email=$2`, username, email)
	if err != nil {
		return nil, err
	}
	defer row.Close()

	if row.Next() {
		user := new(UserModel)
		if err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email, &user.LoginRetry); err != nil {
			return nil, err
		}
		return user, nil
	}
	return nil, nil
}

// SaveUser insert a user record, a generated nanoid becomes its ID
func (repo *UserRepositoryImpl) SaveUser(ctx context.Context, post *UserModel) error {
	conn := repo.Conn
	UUIDGenerator := repo.UUIDGenerator
	if uid, err := UUIDGenerator.Generate(); err == nil {
		post.ID = uid
	} else {
		return err
	}

	_, err := conn.ExecContext(ctx, `INSERT INTO user(id, username, password, email)
	VALUES($1,$2,$3,$4)`, post.ID, post.Username, post.Password, post.Email)

	if isDuplicateKey(err) {
		return ErrDuplicatedUser
	}
	return err
}

// isDuplicateKey unique constraint violation under either supported driver
func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// UpdateUser persist mutable user fields
func (repo *UserRepositoryImpl) UpdateUser(ctx context.Context, post *UserModel) error {
	conn := repo.Conn
	_, err := conn.ExecContext(ctx, `UPDATE user
	SET email=$1,
			login_retry=$2
	WHERE id = $3;`, post.Email, post.LoginRetry, post.ID)
	return err
}

// BeginTx start a transaction scoped to this repository's connection
func (repo *UserRepositoryImpl) BeginTx(ctx context.Context) (driver.ITransactionalDB, error) {
	return repo.Conn.BeginTx(ctx, &driver.TxOptions{
		Isolation: sql.LevelRepeatableRead,
	})
}
