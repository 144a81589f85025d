package audit

import (
	"database/sql"
	"encoding/json"
	"os"
	"time"
)

// Store persists catalog audit events to a dedicated audit database.
// Rows use a syslog-shaped schema so the audit trail can be queried the
// same way whether events arrived over the wire or were written here.
type Store struct {
	db *sql.DB
}

// NewStore opens the audit database named by AUDIT_DATABASE_URL.
// Returns (nil, nil) when the variable is unset: auditing to a database
// is optional and the catalog runs without it.
func NewStore() (*Store, error) {
	dbURL := os.Getenv("AUDIT_DATABASE_URL")
	if dbURL == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection, mainly for sqlmock tests.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the audit database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save writes one catalog event as a message row. A nil store (audit
// database disabled) accepts and drops everything.
func (s *Store) Save(event Event) error {
	if s.db == nil {
		return nil
	}

	hostname, _ := os.Hostname()
	sdata := event.StructuredData()

	sdataJSON, err := json.Marshal(sdata)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO messages (facility, severity, timestamp, hostname, appname, procid, msgid, sdata, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		event.Facility(),
		int(event.Severity()),
		time.Now().UTC(),
		hostname,
		"modeldb",
		os.Getpid(),
		event.MessageID(),
		sdataJSON,
		event.Message(),
	)

	return err
}
