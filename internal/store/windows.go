package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/lingyi/internal/geom"
)

// Window is a persisted desktop window.
type Window struct {
	ID        string
	Title     string
	Bounds    geom.Rect
	Z         int
	UpdatedAt time.Time
}

// WindowRepository persists the desktop layout.
type WindowRepository struct {
	db *sql.DB
}

// Windows returns the window repository for this store.
func (s *Store) Windows() *WindowRepository {
	return &WindowRepository{db: s.db}
}

// Save inserts or replaces a window.
func (r *WindowRepository) Save(w *Window) error {
	w.UpdatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO windows (id, title, x, y, width, height, z, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, x = excluded.x, y = excluded.y,
			width = excluded.width, height = excluded.height,
			z = excluded.z, updated_at = excluded.updated_at`,
		w.ID, w.Title, w.Bounds.Left, w.Bounds.Top, w.Bounds.Width, w.Bounds.Height, w.Z, w.UpdatedAt,
	)
	return err
}

// GetByID retrieves a window by its ID.
func (r *WindowRepository) GetByID(id string) (*Window, error) {
	w := &Window{}
	err := r.db.QueryRow(
		`SELECT id, title, x, y, width, height, z, updated_at
		 FROM windows WHERE id = ?`,
		id,
	).Scan(&w.ID, &w.Title, &w.Bounds.Left, &w.Bounds.Top, &w.Bounds.Width, &w.Bounds.Height, &w.Z, &w.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// List returns all windows, bottom of the stack first.
func (r *WindowRepository) List() ([]*Window, error) {
	rows, err := r.db.Query(
		`SELECT id, title, x, y, width, height, z, updated_at
		 FROM windows ORDER BY z, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []*Window
	for rows.Next() {
		w := &Window{}
		if err := rows.Scan(&w.ID, &w.Title, &w.Bounds.Left, &w.Bounds.Top, &w.Bounds.Width, &w.Bounds.Height, &w.Z, &w.UpdatedAt); err != nil {
			return nil, err
		}
		windows = append(windows, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return windows, nil
}

// Delete removes a window by its ID.
func (r *WindowRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM windows WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
