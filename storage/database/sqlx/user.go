package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/an-shikaSingh/campus-connect-V0/core"
	"github.com/an-shikaSingh/campus-connect-V0/core/user"
	"github.com/an-shikaSingh/campus-connect-V0/storage/database"
)

var userCols = []string{
	"id", "first_name", "last_name", "email", "avatar_url", "user_type",
	"is_active", "password_hash", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID           string      `db:"id"`
	FirstName    null.String `db:"first_name"`
	LastName     null.String `db:"last_name"`
	Email        string      `db:"email"`
	AvatarURL    null.String `db:"avatar_url"`
	UserType     string      `db:"user_type"`
	IsActive     bool        `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		FirstName:    null.NewString(usr.FirstName, usr.FirstName != ""),
		LastName:     null.NewString(usr.LastName, usr.LastName != ""),
		Email:        usr.Email,
		AvatarURL:    null.NewString(usr.AvatarURL, usr.AvatarURL != ""),
		UserType:     usr.UserType,
		IsActive:     usr.Active(),
		PasswordHash: null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	usr := user.User{
		ID:           row.ID,
		FirstName:    row.FirstName.String,
		LastName:     row.LastName.String,
		Email:        row.Email,
		AvatarURL:    row.AvatarURL.String,
		UserType:     row.UserType,
		PasswordHash: row.PasswordHash.Bytes,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
	}
	if row.LastLogin.Valid {
		usr.LastLogin = row.LastLogin.Time.UTC()
	}
	usr.SetActive(row.IsActive)
	return usr
}

func (repo userRepository) fromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.fromRow(r))
	}
	return users
}

func (repo userRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)

	var w whereClause
	w.add("email = ?", email)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		w.add("id NOT IN (?)", ids)
	}
	q, args, err := w.build(exe, `SELECT EXISTS (SELECT 1 FROM "user"`+w.String()+`)`)
	if err != nil {
		return err
	}

	var exists bool
	if err = exe.GetContext(ctx, &exists, q, args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	q := `INSERT INTO "user" (` + strings.Join(userCols, ", ") + `) VALUES (:` + strings.Join(userCols, ", :") + `)`
	if _, err := namedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) filter(filter *user.QueryFilter) whereClause {
	var w whereClause
	if filter == nil {
		return w
	}
	// users with FirstName, LastName or Email matching the search keyword
	if filter.Search != "" {
		val := containsPattern(filter.Search)
		w.add("(first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ?)", val, val, val)
	}
	if len(filter.UserTypes) > 0 {
		w.add("user_type IN (?)", filter.UserTypes)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	if !filter.CreatedFrom.IsZero() {
		w.add("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		w.add("created_at <= ?", filter.CreatedTo.UTC())
	}
	return w
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	exe := repo.getExec(exec)
	w := repo.filter(filter)
	q, args, err := w.build(exe, `SELECT `+strings.Join(userCols, ", ")+` FROM "user"`+w.String()+orderBy(ordering, "created_at DESC"))
	if err != nil {
		return nil, err
	}

	var rows []userRow
	if err = exe.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.fromRows(rows), nil
}

func (repo userRepository) CountUsers(ctx context.Context, filter *user.QueryFilter, exec ...core.DBExecutor) (int, error) {
	exe := repo.getExec(exec)
	w := repo.filter(filter)
	q, args, err := w.build(exe, `SELECT COUNT(*) FROM "user"`+w.String())
	if err != nil {
		return 0, err
	}

	var n int
	if err = exe.GetContext(ctx, &n, q, args...); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		row  userRow
		cond string
		arg  interface{}
	)
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		cond, arg = "id = $1", filter.ID
	case filter.Email != "":
		cond, arg = "email = $1", filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	q := `SELECT ` + strings.Join(userCols, ", ") + ` FROM "user" WHERE ` + cond
	if err := repo.getExec(exec).GetContext(ctx, &row, q, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	row := repo.toRow(usr)
	q := `UPDATE "user" SET
		first_name = :first_name, last_name = :last_name, email = :email, avatar_url = :avatar_url,
		user_type = :user_type, is_active = :is_active, password_hash = :password_hash,
		updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`
	res, err := namedExec(ctx, repo.getExec(exec), q, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	exe := repo.getExec(exec)
	var w whereClause
	w.add("id IN (?)", valid)
	q, args, err := w.build(exe, `DELETE FROM "user"`+w.String())
	if err != nil {
		return 0, err
	}
	res, err := exe.ExecContext(ctx, q, args...)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return 0, user.ErrOrganizesEvents
		}
		return 0, errors.Wrap(err, "deleting users")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "deleting users")
}
