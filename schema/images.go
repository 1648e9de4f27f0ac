// Package schema implements the durable image catalog: a single sqlite
// table of (internal id, post id, md5, signature) rows.  The in-memory
// index is a projection of this table and is rebuilt from it at startup.
package schema // import "github.com/Gavin1937/danbooru-iqdb/schema"

import (
	"database/sql"
	"errors"
	"strings"
	"sync"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/Gavin1937/danbooru-iqdb/haar"
	"github.com/Gavin1937/danbooru-iqdb/status"
)

// Sentinel causes distinguishing which unique column an insert violated.
var (
	ErrDuplicatePostId = errors.New("schema: post_id already present")
	ErrDuplicateMd5    = errors.New("schema: md5 already present")
)

// Image is one row of the images table.  Id is the dense internal id
// assigned on insertion; it indexes the in-memory structures and is never
// reused within a session.
type Image struct {
	Id     int64
	PostId int64
	Md5    string
	Avglf1 float64
	Avglf2 float64
	Avglf3 float64
	Sig    []byte
}

// Haar reassembles the stored signature.
func (im *Image) Haar() (*haar.Signature, status.S) {
	sig, sts := haar.UnpackBlobSig(im.Sig)
	if sts != nil {
		return nil, sts
	}
	return &haar.Signature{
		Avglf: [haar.NumChannels]float64{im.Avglf1, im.Avglf2, im.Avglf3},
		Sig:   sig,
	}, nil
}

const createTableStmt = `
CREATE TABLE IF NOT EXISTS images (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL UNIQUE,
	md5 TEXT NOT NULL UNIQUE,
	avglf1 REAL NOT NULL,
	avglf2 REAL NOT NULL,
	avglf3 REAL NOT NULL,
	sig BLOB NOT NULL
);`

const imageCols = "id, post_id, md5, avglf1, avglf2, avglf3, sig"

// ImageDB is the durable catalog.  Its mutex serializes every store access
// to honor the sqlite threading contract; it is only ever taken while the
// index engine holds its outer reader or writer lock, so it cannot
// deadlock against it.
type ImageDB struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens the catalog at path, creating the images table if absent.
// The path ":memory:" yields an ephemeral catalog.
func Open(path string) (*ImageDB, status.S) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, status.Unknown(err, "can't open db")
	}
	// A single connection: access is serialized by d.mu anyway, and each
	// pooled connection of a ":memory:" source would otherwise get its own
	// private database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		sts := status.Unknown(err, "can't ping db")
		if err2 := db.Close(); err2 != nil {
			sts = status.WithSuppressed(sts, err2)
		}
		return nil, sts
	}
	if _, err := db.Exec(createTableStmt); err != nil {
		sts := status.Internal(err, "can't create images table")
		if err2 := db.Close(); err2 != nil {
			sts = status.WithSuppressed(sts, err2)
		}
		return nil, sts
	}
	return &ImageDB{db: db}, nil
}

func (d *ImageDB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Close()
}

// Count returns the number of rows in the catalog.
func (d *ImageDB) Count() (int64, status.S) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	if err := d.db.QueryRow("SELECT COUNT(*) FROM images;").Scan(&n); err != nil {
		return 0, status.Internal(err, "can't count images")
	}
	return n, nil
}

// MaxPostId returns the largest post id in the catalog, or 0 if empty.
func (d *ImageDB) MaxPostId() (int64, status.S) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	if err := d.db.QueryRow("SELECT IFNULL(MAX(post_id), 0) FROM images;").Scan(&n); err != nil {
		return 0, status.Internal(err, "can't find max post_id")
	}
	return n, nil
}

// LookupByPostId returns the row for post_id, or nil if absent.
func (d *ImageDB) LookupByPostId(postId int64) (*Image, status.S) {
	return d.lookup("SELECT "+imageCols+" FROM images WHERE post_id = ?;", postId)
}

// LookupByMd5 returns the row for md5, or nil if absent.
func (d *ImageDB) LookupByMd5(md5 string) (*Image, status.S) {
	return d.lookup("SELECT "+imageCols+" FROM images WHERE md5 = ?;", md5)
}

func (d *ImageDB) lookup(query string, arg interface{}) (*Image, status.S) {
	d.mu.Lock()
	defer d.mu.Unlock()
	im := new(Image)
	err := d.db.QueryRow(query, arg).Scan(
		&im.Id, &im.PostId, &im.Md5, &im.Avglf1, &im.Avglf2, &im.Avglf3, &im.Sig)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, status.Internal(err, "can't lookup image")
	}
	return im, nil
}

// Insert adds a row inside a single transaction and returns the internal id
// assigned to it.  A uniqueness violation rolls back and is reported as an
// AlreadyExists status whose cause is ErrDuplicatePostId or ErrDuplicateMd5
// depending on which column conflicted.
func (d *ImageDB) Insert(postId int64, md5 string, sig *haar.Signature) (_ int64, stscap status.S) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return 0, status.Internal(err, "can't begin tx")
	}
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				status.ReplaceOrSuppress(&stscap, status.Internal(err, "can't rollback"))
			}
		}
	}()

	res, err := tx.Exec(
		"INSERT INTO images (post_id, md5, avglf1, avglf2, avglf3, sig) VALUES (?, ?, ?, ?, ?, ?);",
		postId, md5, sig.Avglf[0], sig.Avglf[1], sig.Avglf[2], sig.BlobSig())
	if err != nil {
		return 0, classifyInsertError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, status.Internal(err, "can't read inserted id")
	}
	if err := tx.Commit(); err != nil {
		return 0, status.Internal(err, "can't commit")
	}
	committed = true
	return id, nil
}

func classifyInsertError(err error) status.S {
	if serr, ok := err.(sqlite3.Error); ok && serr.Code == sqlite3.ErrConstraint {
		switch {
		case strings.Contains(serr.Error(), "images.post_id"):
			return status.AlreadyExists(ErrDuplicatePostId, "duplicate post_id")
		case strings.Contains(serr.Error(), "images.md5"):
			return status.AlreadyExists(ErrDuplicateMd5, "duplicate md5")
		}
	}
	return status.Internal(err, "can't insert image")
}

// DeleteByPostId removes the row for post_id and returns how many rows went
// away.
func (d *ImageDB) DeleteByPostId(postId int64) (int64, status.S) {
	d.mu.Lock()
	defer d.mu.Unlock()
	res, err := d.db.Exec("DELETE FROM images WHERE post_id = ?;", postId)
	if err != nil {
		return 0, status.Internal(err, "can't delete image")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, status.Internal(err, "can't count deleted rows")
	}
	return n, nil
}

// ForEach streams every row to visit, in unspecified order.  Used at
// startup to rebuild the in-memory index.
func (d *ImageDB) ForEach(visit func(im *Image)) status.S {
	d.mu.Lock()
	defer d.mu.Unlock()
	rows, err := d.db.Query("SELECT " + imageCols + " FROM images;")
	if err != nil {
		return status.Internal(err, "can't scan images")
	}
	defer rows.Close()
	for rows.Next() {
		im := new(Image)
		if err := rows.Scan(
			&im.Id, &im.PostId, &im.Md5, &im.Avglf1, &im.Avglf2, &im.Avglf3, &im.Sig); err != nil {
			return status.Internal(err, "can't scan image row")
		}
		visit(im)
	}
	if err := rows.Err(); err != nil {
		return status.Internal(err, "can't finish image scan")
	}
	return nil
}
