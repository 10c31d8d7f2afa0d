package acep

import (
	"crypto/sha1"
	"database/sql"
	"fmt"
	"image"
	"time"

	"github.com/bodgit/acep/upload"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// History records every rendered bitmap and each attempt to upload it.
type History struct {
	db *sql.DB
}

// Render is a row of the render table
type Render struct {
	ID      int64
	SHA1    string
	Profile string
	Palette string
	Method  string
	Width   int
	Height  int
	Created time.Time
}

// Upload is a row of the upload table
type Upload struct {
	RenderID int64
	Host     string
	Sent     int
	Total    int
	OK       bool
	Message  string
	Created  time.Time
}

// NewHistory opens, creating if necessary, the history database in file.
func NewHistory(file string) (*History, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS render (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, profile TEXT NOT NULL, palette TEXT NOT NULL, method TEXT NOT NULL, width INTEGER NOT NULL, height INTEGER NOT NULL, bitmap BLOB NOT NULL, created INTEGER NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS upload (id INTEGER PRIMARY KEY NOT NULL, render_id INTEGER NOT NULL, host TEXT NOT NULL, sent INTEGER NOT NULL, total INTEGER NOT NULL, ok INTEGER NOT NULL, message TEXT NOT NULL, created INTEGER NOT NULL, FOREIGN KEY(render_id) REFERENCES render(id))"); err != nil {
		db.Close()
		return nil, err
	}

	return &History{
		db: db,
	}, nil
}

// Close closes the database
func (h *History) Close() error {
	return h.db.Close()
}

// AddRender stores the bitmap b of a raster with bounds r rendered with opts.
// Identical bitmaps are stored once and the existing id is returned.
func (h *History) AddRender(opts Options, r image.Rectangle, b []byte) (int64, error) {
	sha := fmt.Sprintf("%X", sha1.Sum(b))

	var id int64
	switch err := h.db.QueryRow("SELECT id FROM render WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		// Another worker may have rendered the same bitmap in the meantime
		if _, err := h.db.Exec("INSERT OR IGNORE INTO render (sha1, profile, palette, method, width, height, bitmap, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			sha, opts.Profile.Name, opts.Palette.Name(), opts.Method.String(), r.Dx(), r.Dy(), b, time.Now().Unix()); err != nil {
			return 0, err
		}
		if err := h.db.QueryRow("SELECT id FROM render WHERE sha1 = ?", sha).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// AddUpload records the outcome of pushing render to host
func (h *History) AddUpload(render int64, host string, res *upload.Result, uerr error) error {
	msg := res.State.String()
	switch {
	case uerr != nil:
		msg = uerr.Error()
	case res.ShowErr != nil:
		msg = res.ShowErr.Error()
	}

	_, err := h.db.Exec("INSERT INTO upload (render_id, host, sent, total, ok, message, created) VALUES (?, ?, ?, ?, ?, ?, ?)",
		render, host, res.Sent, res.Total, res.OK(), msg, time.Now().Unix())
	return err
}

// Bitmap returns the stored bitmap for render, or nil if there is no such
// render
func (h *History) Bitmap(render int64) ([]byte, error) {
	var b []byte
	switch err := h.db.QueryRow("SELECT bitmap FROM render WHERE id = ?", render).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return b, nil
	default:
		return nil, err
	}
}

// Renders returns the most recent renders, newest first
func (h *History) Renders(limit int) ([]Render, error) {
	rows, err := h.db.Query("SELECT id, sha1, profile, palette, method, width, height, created FROM render ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var renders []Render
	for rows.Next() {
		var r Render
		var created int64
		if err := rows.Scan(&r.ID, &r.SHA1, &r.Profile, &r.Palette, &r.Method, &r.Width, &r.Height, &created); err != nil {
			return nil, err
		}
		r.Created = time.Unix(created, 0)
		renders = append(renders, r)
	}
	return renders, rows.Err()
}

// Uploads returns the uploads of render, oldest first
func (h *History) Uploads(render int64) ([]Upload, error) {
	rows, err := h.db.Query("SELECT render_id, host, sent, total, ok, message, created FROM upload WHERE render_id = ? ORDER BY id", render)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		var created int64
		if err := rows.Scan(&u.RenderID, &u.Host, &u.Sent, &u.Total, &u.OK, &u.Message, &created); err != nil {
			return nil, err
		}
		u.Created = time.Unix(created, 0)
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}
