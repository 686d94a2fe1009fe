package participant

import (
	"context"
	"database/sql"
	"strings"
	"sync"
)

// Anonymous is shown for participants that never registered a display name.
const Anonymous = "Anonymous"

// Profile is the public face of a participant in winner feeds.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Initial returns the first letter of the display name, upper-cased.
func (p Profile) Initial() string {
	for _, r := range p.DisplayName {
		return strings.ToUpper(string(r))
	}
	return "A"
}

// Registry maps participant ids to display names.
type Registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	db       *sql.DB
}

// NewRegistry returns a registry. With a non-nil db, names are written through
// to the participants table and loaded from it on start.
func NewRegistry(ctx context.Context, db *sql.DB) (*Registry, error) {
	r := &Registry{profiles: make(map[string]Profile), db: db}
	if db == nil {
		return r, nil
	}
	if err := r.loadFromDB(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Register sets the display name for id. Blank names are stored as Anonymous.
func (r *Registry) Register(ctx context.Context, id, displayName string) (Profile, error) {
	p := Profile{ID: strings.TrimSpace(id), DisplayName: strings.TrimSpace(displayName)}
	if p.DisplayName == "" {
		p.DisplayName = Anonymous
	}
	if r.db != nil {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO participants (id, display_name)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name, updated_at = now()`,
			p.ID, p.DisplayName)
		if err != nil {
			return Profile{}, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[p.ID] = p
	return p, nil
}

// Lookup returns the profile for id, or an Anonymous profile.
func (r *Registry) Lookup(id string) Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.profiles[id]; ok {
		return p
	}
	return Profile{ID: id, DisplayName: Anonymous}
}

func (r *Registry) loadFromDB(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `SELECT id, COALESCE(NULLIF(TRIM(display_name), ''), 'Anonymous') FROM participants`)
	if err != nil {
		return err
	}
	defer rows.Close()
	r.mu.Lock()
	defer r.mu.Unlock()
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.DisplayName); err != nil {
			return err
		}
		r.profiles[p.ID] = p
	}
	return rows.Err()
}
