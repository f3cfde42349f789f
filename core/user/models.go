package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/an-shikaSingh/campus-connect-V0/core"
)

// User types
const (
	TypeStudent   = "student"
	TypeOrganizer = "organizer"
	TypeAdmin     = "admin"
)

var (
	AllTypes = []string{TypeStudent, TypeOrganizer, TypeAdmin}

	typePriorities = map[string]int{
		TypeAdmin:     30,
		TypeOrganizer: 20,
		TypeStudent:   10,
	}

	Types = []Type{
		{Name: "Student", Value: TypeStudent},
		{Name: "Organizer", Value: TypeOrganizer},
		{Name: "Admin", Value: TypeAdmin},
	}
)

func TypePriority(userType string) int {
	return typePriorities[userType]
}

type Type struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatar_url"`
	UserType     string    `json:"user_type"`
	IsActive     *bool     `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u User) Active() bool {
	return u.IsActive == nil || *u.IsActive
}

func (u User) IsAdmin() bool     { return u.UserType == TypeAdmin }
func (u User) IsOrganizer() bool { return u.UserType == TypeOrganizer }
func (u User) IsStudent() bool   { return u.UserType == TypeStudent }

// CanManageEvents reports whether u may create events (admins and organizers).
func (u User) CanManageEvents() bool { return u.IsAdmin() || u.IsOrganizer() }

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Public is what other users get to see (event organizers, registrants).
func (u User) Public() PublicProfile {
	return PublicProfile{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, AvatarURL: u.AvatarURL}
}

type PublicProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AvatarURL string `json:"avatar_url"`
}

// NewUser contains information needed to sign up or create a new User.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required,max=150"`
	LastName        string `json:"last_name" validate:"required,max=150"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	UserType        string `json:"user_type" validate:"omitempty,usertype"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.UserType = core.CleanString(nu.UserType, true /* lower */)
	if nu.UserType == "" {
		nu.UserType = TypeStudent
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// UpdateProfile is what a user may change on their own profile.
type UpdateProfile struct {
	FirstName string  `json:"first_name" validate:"omitempty,max=150"`
	LastName  string  `json:"last_name" validate:"omitempty,max=150"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,httpurl"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.FirstName = core.CleanString(up.FirstName)
	up.LastName = core.CleanString(up.LastName)
	if up.AvatarURL != nil {
		url := core.CleanString(*up.AvatarURL)
		up.AvatarURL = &url // "" clears the avatar
	}
	return validate.Struct(up)
}

// UpdateUser defines what information an admin may provide to modify an existing User.
type UpdateUser struct {
	FirstName       string `json:"first_name" validate:"omitempty,max=150"`
	LastName        string `json:"last_name" validate:"omitempty,max=150"`
	Email           string `json:"email" validate:"omitempty,email,max=254"`
	UserType        string `json:"user_type" validate:"omitempty,usertype"`
	IsActive        *bool  `json:"is_active"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if name := core.CleanString(uu.FirstName); name != "" {
		uu.FirstName = name
	} else {
		uu.FirstName = origUsr.FirstName
	}
	if name := core.CleanString(uu.LastName); name != "" {
		uu.LastName = name
	} else {
		uu.LastName = origUsr.LastName
	}
	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}
	if ut := core.CleanString(uu.UserType, true /* lower */); ut != "" {
		uu.UserType = ut
	} else {
		uu.UserType = origUsr.UserType
	}

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, origUsr)
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search      string    `query:"search"`
	UserTypes   []string  `query:"user_type"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"-"` // bound by the API from created_from
	CreatedTo   time.Time `query:"-"` // created_to
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.UserTypes == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	for i, ut := range qf.UserTypes {
		qf.UserTypes[i] = core.CleanString(ut, true /* lower */)
	}
}

type GetFilter struct {
	ID    string
	Email string
}
