package models

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/emberhall/fieldvault/convert"
	"github.com/emberhall/fieldvault/docstore"
	"github.com/emberhall/fieldvault/entity"
	"github.com/emberhall/fieldvault/fverrors"
	"github.com/emberhall/fieldvault/ident"
	"github.com/emberhall/fieldvault/passhash"
	"github.com/emberhall/fieldvault/schema"
	"github.com/emberhall/fieldvault/validate"
)

// UserCollection is the authoritative collection of the user type.
const UserCollection = "user"

// Logical field names of the user type.
const (
	UserFieldMail         = "mail"
	UserFieldPasswordHash = "passwordHash"
	UserFieldFirstName    = "firstName"
	UserFieldLastName     = "lastName"
	UserFieldNickname     = "nickname"
	UserFieldIsAdmin      = "isAdmin"
	UserFieldCreateDate   = "createDate"
)

// UserSchema declares the user type's field layout. The password hash
// stays out of both caches explicitly; that is a security property, not a
// tuning choice.
func UserSchema() (*schema.Schema, fverrors.Error) {
	return schema.New(UserCollection, []schema.Definition{
		{Name: UserFieldMail},
		{Name: UserFieldPasswordHash, Field: schema.Field{
			StoreName: "password_hash",
			Local:     schema.Off,
			Shared:    schema.Off,
		}},
		{Name: UserFieldFirstName, Field: schema.Field{StoreName: "first_name"}},
		{Name: UserFieldLastName, Field: schema.Field{StoreName: "last_name"}},
		{Name: UserFieldNickname},
		{Name: UserFieldIsAdmin, Field: schema.Field{SharedConv: convert.Bool()}},
		{Name: UserFieldCreateDate, Field: schema.Field{
			SharedConv: convert.Time(),
			StoreConv:  convert.TimeDoc(),
		}},
	})
}

// Users is the typed facade over the user entity manager.
type Users struct {
	manager *entity.Manager
	hasher  passhash.Hasher
}

// NewUsers builds the user manager from the deployment-wide base config.
func NewUsers(base entity.ManagerConfig, hasher passhash.Hasher) (*Users, fverrors.Error) {
	userSchema, err := UserSchema()
	if err != nil {
		return nil, err.Wrap("new users")
	}

	base.Schema = userSchema
	base.Uncached = []string{UserFieldPasswordHash}

	manager, err := entity.NewManager(base)
	if err != nil {
		return nil, err.Wrap("new users")
	}

	return &Users{manager: manager, hasher: hasher}, nil
}

// Manager exposes the underlying entity manager.
func (u *Users) Manager() *entity.Manager {
	return u.manager
}

// ByID returns the typed handle of an identity.
func (u *Users) ByID(id ident.ID) *User {
	return &User{u.manager.Handle(id)}
}

// ExistsByID reports whether a user document exists, via the cached
// identity probe.
func (u *Users) ExistsByID(ctx context.Context, id ident.ID) (bool, fverrors.Error) {
	return u.manager.ExistsByID(ctx, id)
}

// NewUser carries the raw registration inputs.
type NewUser struct {
	Mail      string
	Password  string
	FirstName string
	LastName  string
	Nickname  string
}

// Create validates and formats every input, hashes the password, stamps
// the creation time, and inserts the user. Validation failures carry code
// 400 and name the offending field.
//
// Example:
//
//	user, err := users.Create(ctx, models.NewUser{
//		Mail:      "a@b.com",
//		Password:  "hunter42",
//		FirstName: "amber",
//		LastName:  "hall",
//		Nickname:  "ember",
//	})
func (u *Users) Create(ctx context.Context, input NewUser) (*User, fverrors.Error) {
	checks := []struct {
		kind  validate.Kind
		field string
		value string
	}{
		{validate.Mail, UserFieldMail, input.Mail},
		{validate.Password, "password", input.Password},
		{validate.FirstName, UserFieldFirstName, input.FirstName},
		{validate.LastName, UserFieldLastName, input.LastName},
		{validate.Nickname, UserFieldNickname, input.Nickname},
	}

	for _, check := range checks {
		if !validate.IsValid(check.kind, check.value) {
			return nil, fverrors.FromError(
				http.StatusBadRequest,
				ErrInvalidInput,
				fmt.Sprintf("create user: field %s", check.field),
			)
		}
	}

	hash, err := u.hasher.Hash(input.Password)
	if err != nil {
		return nil, err.Wrap("create user")
	}

	handle, err := u.manager.Create(ctx, map[string]any{
		UserFieldMail:         validate.Format(validate.Mail, input.Mail),
		UserFieldPasswordHash: hash,
		UserFieldFirstName:    validate.Format(validate.FirstName, input.FirstName),
		UserFieldLastName:     validate.Format(validate.LastName, input.LastName),
		UserFieldNickname:     validate.Format(validate.Nickname, input.Nickname),
		UserFieldIsAdmin:      false,
		UserFieldCreateDate:   time.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		return nil, err.Wrap("create user")
	}

	return &User{handle}, nil
}

// FindByMail resolves a user by mail address.
func (u *Users) FindByMail(ctx context.Context, mail string) (*User, fverrors.Error) {
	handle, err := u.manager.FindByUniqueField(
		ctx,
		UserFieldMail,
		validate.Format(validate.Mail, mail),
	)
	if err != nil {
		return nil, err.Wrap("find user by mail")
	}

	return &User{handle}, nil
}

// VerifyCredentials checks a mail/password pair against the stored hash
// and returns the user's handle on a match. The hash is read straight
// from the authoritative store and never enters any cache; a missing user
// and a wrong password are indistinguishable to the caller (401 carrying
// ErrBadCredentials). Infrastructure failures propagate as such.
//
// Example:
//
//	user, err := users.VerifyCredentials(ctx, "a@b.com", "hunter42")
func (u *Users) VerifyCredentials(
	ctx context.Context,
	mail string,
	password string,
) (*User, fverrors.Error) {
	mailField, _ := u.manager.Schema().Field(UserFieldMail)
	hashField, _ := u.manager.Schema().Field(UserFieldPasswordHash)

	docs, err := u.manager.Store().FindMany(
		ctx,
		UserCollection,
		docstore.Doc{mailField.StoreName: validate.Format(validate.Mail, mail)},
		[]string{hashField.StoreName},
		docstore.FindOptions{Limit: 1},
	)
	if err != nil {
		return nil, err.Wrap("verify credentials")
	}

	if len(docs) == 0 {
		return nil, badCredentials()
	}

	hash, ok := docs[0][hashField.StoreName].(string)
	if !ok || !u.hasher.Verify(password, hash) {
		return nil, badCredentials()
	}

	id, ok := docs[0][docstore.IDField].(ident.ID)
	if !ok {
		return nil, fverrors.FromString(
			http.StatusInternalServerError,
			"verify credentials: document identity has unexpected type",
		)
	}

	return &User{u.manager.Handle(id)}, nil
}

func badCredentials() fverrors.Error {
	return fverrors.FromError(
		http.StatusUnauthorized,
		ErrBadCredentials,
		"verify credentials",
	)
}

// User is the typed handle of one user row.
type User struct {
	*entity.Handle
}

// Mail returns the user's mail address.
func (h *User) Mail(ctx context.Context) (string, fverrors.Error) {
	return getTyped[string](ctx, h.Handle, UserFieldMail)
}

// SetMail validates, formats and stores a new mail address.
func (h *User) SetMail(ctx context.Context, mail string) fverrors.Error {
	if !validate.IsValid(validate.Mail, mail) {
		return fverrors.FromError(http.StatusBadRequest, ErrInvalidInput, "set mail")
	}

	return h.SetField(ctx, UserFieldMail, validate.Format(validate.Mail, mail))
}

// FirstName returns the user's first name.
func (h *User) FirstName(ctx context.Context) (string, fverrors.Error) {
	return getTyped[string](ctx, h.Handle, UserFieldFirstName)
}

// LastName returns the user's last name.
func (h *User) LastName(ctx context.Context) (string, fverrors.Error) {
	return getTyped[string](ctx, h.Handle, UserFieldLastName)
}

// Nickname returns the user's nickname.
func (h *User) Nickname(ctx context.Context) (string, fverrors.Error) {
	return getTyped[string](ctx, h.Handle, UserFieldNickname)
}

// IsAdmin reports whether the user is an administrator.
func (h *User) IsAdmin(ctx context.Context) (bool, fverrors.Error) {
	return getTyped[bool](ctx, h.Handle, UserFieldIsAdmin)
}

// SetIsAdmin stores the administrator flag.
func (h *User) SetIsAdmin(ctx context.Context, isAdmin bool) fverrors.Error {
	return h.SetField(ctx, UserFieldIsAdmin, isAdmin)
}

// CreateDate returns when the user registered.
func (h *User) CreateDate(ctx context.Context) (time.Time, fverrors.Error) {
	return getTyped[time.Time](ctx, h.Handle, UserFieldCreateDate)
}

// DisplayName renders "First Last", fetching both parts in one coalesced
// read.
func (h *User) DisplayName(ctx context.Context) (string, fverrors.Error) {
	values, err := h.GetFields(ctx, UserFieldFirstName, UserFieldLastName)
	if err != nil {
		return "", err.Wrap("display name")
	}

	first, _ := values[UserFieldFirstName].(string)
	last, _ := values[UserFieldLastName].(string)

	return fmt.Sprintf("%s %s", first, last), nil
}
