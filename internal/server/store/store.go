// Package store is the persistence gateway (C4): a process-wide handle to
// the Postgres database, lazily opened and re-opened if found dead at the
// point of use, exposing parameterised statements only. No caller ever
// interpolates user input into SQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/serezk4/collectiond/internal/apperrors"
	"github.com/serezk4/collectiond/internal/model"
	"github.com/serezk4/collectiond/internal/server/store/migrations"
)

// Gateway is the C4 persistence gateway: users and persons, backed by
// Postgres.
type Gateway struct {
	dsn string
	mu  sync.Mutex
	db  *sql.DB
}

// Open constructs a Gateway. It does not connect eagerly — the first
// operation opens the pool.
func Open(dsn string) *Gateway {
	return &Gateway{dsn: dsn}
}

// Migrate runs the embedded goose migrations against the database.
func (g *Gateway) Migrate(ctx context.Context) error {
	db, err := g.conn(ctx)
	if err != nil {
		return err
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

// Close releases the underlying connection pool, if one was opened.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.db == nil {
		return nil
	}
	err := g.db.Close()
	g.db = nil
	return err
}

// conn returns a live *sql.DB, reopening the pool if the previously-opened
// one no longer answers a ping.
func (g *Gateway) conn(ctx context.Context) (*sql.DB, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := g.db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return g.db, nil
		}
		_ = g.db.Close()
		g.db = nil
	}

	db, err := sql.Open("pgx", g.dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}

	g.db = db
	return db, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

// FindAllPersons returns every person, ordered by id (insertion order).
func (g *Gateway) FindAllPersons(ctx context.Context) ([]model.Person, error) {
	db, err := g.conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, owner_id, name, cord_x, cord_y, creation_date, height,
		       weight, color, country, location_x, location_y, location_name
		FROM persons
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}

	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (model.Person, error) {
	var (
		p          model.Person
		colorTag   string
		countryTag string
		locY       sql.NullFloat64
		locName    sql.NullString
	)

	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Coordinates.X, &p.Coordinates.Y,
		&p.CreationDate, &p.Height, &p.Weight, &colorTag, &countryTag,
		&p.Location.X, &locY, &locName,
	)
	if err != nil {
		return p, err
	}

	hc, ok := model.ParseHairColor(colorTag)
	if !ok {
		return p, fmt.Errorf("unknown stored hair color %q", colorTag)
	}
	p.HairColor = hc

	nat, ok := model.ParseNationality(countryTag)
	if !ok {
		return p, fmt.Errorf("unknown stored nationality %q", countryTag)
	}
	p.Nationality = nat

	if locY.Valid {
		p.Location.HasY = true
		p.Location.Y = locY.Float64
	}
	if locName.Valid {
		p.Location.HasName = true
		p.Location.Name = locName.String
	}

	return p, nil
}

// SavePerson inserts a new person and returns it with ID and CreationDate
// assigned by the store.
func (g *Gateway) SavePerson(ctx context.Context, p model.Person) (model.Person, error) {
	db, err := g.conn(ctx)
	if err != nil {
		return model.Person{}, err
	}

	var locY any
	if p.Location.HasY {
		locY = p.Location.Y
	}
	var locName any
	if p.Location.HasName {
		locName = p.Location.Name
	}

	row := db.QueryRowContext(ctx, `
		INSERT INTO persons (owner_id, name, cord_x, cord_y, height, weight,
		                      color, country, location_x, location_y, location_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, owner_id, name, cord_x, cord_y, creation_date, height,
		          weight, color, country, location_x, location_y, location_name`,
		p.OwnerID, p.Name, p.Coordinates.X, p.Coordinates.Y, p.Height, p.Weight,
		p.HairColor.String(), p.Nationality.String(), p.Location.X, locY, locName,
	)

	saved, err := scanPerson(row)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.Person{}, apperrors.ErrConstraintViolation
		}
		return model.Person{}, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}

	return saved, nil
}

// RemovePersonByID deletes the person with the given id. It reports true if
// a row was removed.
func (g *Gateway) RemovePersonByID(ctx context.Context, id int64) (bool, error) {
	db, err := g.conn(ctx)
	if err != nil {
		return false, err
	}

	res, err := db.ExecContext(ctx, `DELETE FROM persons WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}

	return n > 0, nil
}

// FindUserByUsername returns the user with the given username, or
// apperrors.ErrNotFound if none exists.
func (g *Gateway) FindUserByUsername(ctx context.Context, username string) (model.User, error) {
	db, err := g.conn(ctx)
	if err != nil {
		return model.User{}, err
	}

	var u model.User
	err = db.QueryRowContext(ctx, `
		SELECT id, username, password FROM users WHERE username = $1`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash)

	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, apperrors.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}

	return u, nil
}

// ExistsUserByUsername reports whether a user with the given username
// exists.
func (g *Gateway) ExistsUserByUsername(ctx context.Context, username string) (bool, error) {
	db, err := g.conn(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}

	return exists, nil
}

// SaveUser inserts a new user and returns it with its assigned id. It
// returns apperrors.ErrDuplicateUser if the username is already taken.
func (g *Gateway) SaveUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	db, err := g.conn(ctx)
	if err != nil {
		return model.User{}, err
	}

	u := model.User{Username: username, PasswordHash: passwordHash}
	err = db.QueryRowContext(ctx, `
		INSERT INTO users (username, password) VALUES ($1, $2) RETURNING id`,
		username, passwordHash,
	).Scan(&u.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, apperrors.ErrDuplicateUser
		}
		return model.User{}, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
	}

	return u, nil
}
