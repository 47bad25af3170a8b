package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrEthical07/tokenlife"
	"github.com/MrEthical07/tokenlife/password"
)

// Postgres resolves principals from the principals table.
type Postgres struct {
	db     *pgxpool.Pool
	hasher password.Hasher
}

// NewPostgres connects to dbURL and pings it.
func NewPostgres(ctx context.Context, dbURL string, hasher password.Hasher) (*Postgres, error) {
	const op = "identity.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Postgres{db: db, hasher: hasher}, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() {
	s.db.Close()
}

// Ping checks the connection.
func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Create inserts p with a freshly hashed secret and returns the row id.
func (s *Postgres) Create(ctx context.Context, p tokenlife.Principal, secret string) (uuid.UUID, error) {
	const op = "identity.postgres.Create"

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	id := uuid.New()
	now := time.Now().UTC()
	features := p.Features
	if features == nil {
		features = []string{}
	}

	query := `
		INSERT INTO principals(id, username, secret_hash, display_name, profile_picture, registered, features, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`

	_, err = s.db.Exec(ctx, query,
		id,
		p.Username,
		hash,
		p.DisplayName,
		p.ProfilePicture,
		p.Registered,
		features,
		now,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Postgres) LoadPrincipal(ctx context.Context, username string) (tokenlife.Principal, error) {
	const op = "identity.postgres.LoadPrincipal"

	p, _, err := s.principalByUsername(ctx, username)
	if err != nil {
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *Postgres) Authenticate(ctx context.Context, identifier, secret string) (tokenlife.Principal, error) {
	const op = "identity.postgres.Authenticate"

	p, hash, err := s.principalByUsername(ctx, identifier)
	if err != nil {
		if errors.Is(err, tokenlife.ErrNotFound) {
			return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, tokenlife.ErrInvalidCredentials)
		}
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, err)
	}

	match, err := password.Verify(secret, hash)
	if err != nil {
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, err)
	}
	if !match {
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, tokenlife.ErrInvalidCredentials)
	}
	// best effort: the next login retries
	_ = s.upgradeHash(ctx, identifier, hash, secret)
	return p, nil
}

// upgradeHash rewrites a verified hash made with weaker parameters. The
// current hash guards the update so a concurrent secret change is kept.
func (s *Postgres) upgradeHash(ctx context.Context, username, current, secret string) error {
	const op = "identity.postgres.upgradeHash"

	need, err := s.hasher.NeedsRehash(current)
	if err != nil || !need {
		return err
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `
		UPDATE principals
		SET secret_hash = $3,
			updated_at = $4
		WHERE username = $1 AND secret_hash = $2
	`

	if _, err := s.db.Exec(ctx, query, username, current, hash, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompleteRegistration is safe to repeat: a second call rewrites the same
// profile and returns the registered principal again.
func (s *Postgres) CompleteRegistration(ctx context.Context, username string, payload tokenlife.RegistrationPayload) (tokenlife.Principal, error) {
	const op = "identity.postgres.CompleteRegistration"

	dob, err := time.Parse(time.DateOnly, payload.DateOfBirth)
	if err != nil {
		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, tokenlife.ErrInvalidRegistration)
	}

	query := `
		UPDATE principals
		SET registered = true,
			display_name = $2,
			date_of_birth = $3,
			identity_document = $4,
			updated_at = $5
		WHERE username = $1
		RETURNING username, display_name, profile_picture, registered, features
	`

	var p tokenlife.Principal
	err = s.db.QueryRow(ctx, query,
		username,
		payload.DisplayName,
		dob,
		payload.IdentityDocument,
		time.Now().UTC(),
	).Scan(
		&p.Username,
		&p.DisplayName,
		&p.ProfilePicture,
		&p.Registered,
		&p.Features,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, tokenlife.ErrNotFound)
		}

		return tokenlife.Principal{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

func (s *Postgres) principalByUsername(ctx context.Context, username string) (tokenlife.Principal, string, error) {
	query := `
		SELECT username, display_name, profile_picture, registered, features, secret_hash
		FROM principals
		WHERE username = $1
	`

	var (
		p    tokenlife.Principal
		hash string
	)
	err := s.db.QueryRow(ctx, query, username).Scan(
		&p.Username,
		&p.DisplayName,
		&p.ProfilePicture,
		&p.Registered,
		&p.Features,
		&hash,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tokenlife.Principal{}, "", tokenlife.ErrNotFound
		}

		return tokenlife.Principal{}, "", err
	}

	return p, hash, nil
}

var _ tokenlife.IdentityResolver = (*Postgres)(nil)
