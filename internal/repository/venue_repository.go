package repository // repository holds data access logic for venue layouts

import (
	"context"       // context is used to manage deadlines and cancellation
	"database/sql"  // sql provides DB primitives
	"encoding/json" // layout documents are stored as raw JSON
	"errors"        // errors package allows sentinel error definitions
	"time"          // creation timestamps

	"github.com/iliyamo/seat-picker/internal/layout"
)

// Venue is a named seating layout.  Config holds the layout document
// exactly as it was submitted so that row order survives storage.
type Venue struct {
	ID        uint64          `json:"id"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
	CreatedAt time.Time       `json:"created_at"`
}

// Layout parses and validates the stored configuration.
func (v *Venue) Layout() (*layout.Layout, error) {
	rows, err := layout.ParseConfig(v.Config)
	if err != nil {
		return nil, err
	}
	return layout.New(rows)
}

// ErrVenueNotFound is returned when a venue lookup yields no rows.
var ErrVenueNotFound = errors.New("venue not found")

// VenueStore is implemented by every venue backend.
type VenueStore interface {
	Create(ctx context.Context, v *Venue) error
	GetByID(ctx context.Context, id uint64) (*Venue, error)
	List(ctx context.Context) ([]*Venue, error)
}

// VenueRepo stores venues in MySQL.
type VenueRepo struct {
	db *sql.DB
}

// NewVenueRepo constructs a VenueRepo with the given DB handle.
func NewVenueRepo(db *sql.DB) *VenueRepo {
	return &VenueRepo{db: db}
}

// Create inserts a venue.  On success ID and CreatedAt are populated.
func (r *VenueRepo) Create(ctx context.Context, v *Venue) error {
	const q = `INSERT INTO venues (name, layout_config) VALUES (?, ?)`
	res, err := r.db.ExecContext(ctx, q, v.Name, []byte(v.Config))
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID = uint64(id)

	// read back so created_at reflects the database clock
	const qSelect = `SELECT created_at FROM venues WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, v.ID).Scan(&v.CreatedAt)
}

// GetByID retrieves a venue by its id.
func (r *VenueRepo) GetByID(ctx context.Context, id uint64) (*Venue, error) {
	const q = `SELECT id, name, layout_config, created_at FROM venues WHERE id = ?`
	var v Venue
	var raw []byte
	err := r.db.QueryRowContext(ctx, q, id).Scan(&v.ID, &v.Name, &raw, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVenueNotFound
		}
		return nil, err
	}
	v.Config = json.RawMessage(raw)
	return &v, nil
}

// List returns every venue ordered by id.
func (r *VenueRepo) List(ctx context.Context) ([]*Venue, error) {
	const q = `SELECT id, name, layout_config, created_at FROM venues ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Venue
	for rows.Next() {
		v := new(Venue)
		var raw []byte
		if err := rows.Scan(&v.ID, &v.Name, &raw, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.Config = json.RawMessage(raw)
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
