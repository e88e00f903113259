package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/JaimeStill/erisa/pkg/query"
	"github.com/JaimeStill/erisa/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
	cost   int
}

// New creates a user repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "users"),
		cost:   bcrypt.DefaultCost,
	}
}

const insertUser = `
	INSERT INTO users(id, username, email, first_name, last_name, password_hash)
	VALUES ($1, $2, $3, $4, $5, $6)`

func (r *repo) Register(ctx context.Context, cmd RegisterCommand) (*User, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(cmd.Password, r.cost)
	if err != nil {
		return nil, err
	}

	u := User{
		ID:           uuid.New(),
		Username:     cmd.Username,
		Email:        cmd.Email,
		FirstName:    cmd.FirstName,
		LastName:     cmd.LastName,
		PasswordHash: &hash,
	}

	created, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (User, error) {
		if err := r.checkAvailable(ctx, tx, u.Username, u.Email); err != nil {
			return User{}, err
		}
		return r.insert(ctx, tx, u)
	})
	if err != nil {
		return nil, r.mapError(err)
	}

	r.logger.Info("user registered", "id", created.ID, "username", created.Username)
	return &created, nil
}

func (r *repo) Authenticate(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	q, args := query.NewBuilder(projection).WhereEqualsFold("Username", &username).BuildSingleOrNull()

	u, err := repository.QueryOne(ctx, r.db, q, args, scanUser)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &u, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*User, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	u, err := repository.QueryOne(ctx, r.db, q, args, scanUser)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrUsernameTaken)
	}
	return &u, nil
}

// FindOrCreateExternal returns the account matching the identity's email, creating
// a password-less account on first sign-in.
func (r *repo) FindOrCreateExternal(ctx context.Context, identity ExternalIdentity) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, ErrMissingFields
	}

	u, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (User, error) {
		q, args := query.NewBuilder(projection).WhereEqualsFold("Email", &email).BuildSingleOrNull()

		existing, err := repository.QueryOne(ctx, tx, q, args, scanUser)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}

		username := identity.Username
		if username == "" {
			username, _, _ = strings.Cut(email, "@")
		}
		return r.insert(ctx, tx, User{
			ID:        uuid.New(),
			Username:  username,
			Email:     email,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
		})
	})
	if err != nil {
		return nil, r.mapError(err)
	}
	return &u, nil
}

func (r *repo) Count(ctx context.Context) (int, error) {
	return repository.QueryScalar[int](ctx, r.db, "SELECT COUNT(*) FROM users")
}

func (r *repo) checkAvailable(ctx context.Context, tx *sql.Tx, username, email string) error {
	taken, err := repository.QueryScalar[bool](ctx, tx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))", username)
	if err != nil {
		return err
	}
	if taken {
		return ErrUsernameTaken
	}

	taken, err = repository.QueryScalar[bool](ctx, tx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))", email)
	if err != nil {
		return err
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

func (r *repo) insert(ctx context.Context, tx *sql.Tx, u User) (User, error) {
	if err := repository.ExecExpectOne(
		ctx, tx, insertUser,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash,
	); err != nil {
		return User{}, err
	}

	q, args := query.NewBuilder(projection).BuildSingle("ID", u.ID)
	return repository.QueryOne(ctx, tx, q, args, scanUser)
}

// mapError resolves a unique violation that slipped past checkAvailable in a
// concurrent signup to the username error.
func (r *repo) mapError(err error) error {
	return repository.MapError(err, ErrNotFound, ErrUsernameTaken)
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A nil hash never matches.
func CheckPassword(hash *string, password string) bool {
	if hash == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}
