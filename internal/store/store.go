package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open creates and initializes the SQLite database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates all necessary database tables
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS warnings (
		id INTEGER PRIMARY KEY,
		community_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		moderator_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_warnings_subject ON warnings(community_id, subject_id);

	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		community_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		action TEXT NOT NULL,
		reason TEXT NOT NULL,
		actor_id TEXT DEFAULT '',
		timestamp INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_community ON audit_log(community_id);
	CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_log(community_id, subject_id);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);

	CREATE TABLE IF NOT EXISTS quarantine (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		community_id TEXT NOT NULL,
		subject_id TEXT NOT NULL,
		role_ids TEXT DEFAULT '',
		reason TEXT NOT NULL,
		active INTEGER DEFAULT 1,
		created_at INTEGER NOT NULL,
		released_at INTEGER DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_quarantine_subject ON quarantine(community_id, subject_id);

	CREATE TABLE IF NOT EXISTS backups (
		id TEXT PRIMARY KEY,
		community_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_backups_community ON backups(community_id);

	CREATE TABLE IF NOT EXISTS settings (
		community_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (community_id, key)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// ===== Warnings =====

// MaxWarningID returns the highest warning id ever issued, 0 when none exist.
func (s *Store) MaxWarningID() (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(id) FROM warnings`).Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

// InsertWarning persists a warning under its caller-assigned id.
func (s *Store) InsertWarning(w *Warning) error {
	_, err := s.db.Exec(
		`INSERT INTO warnings (id, community_id, subject_id, moderator_id, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.CommunityID, w.SubjectID, w.ModeratorID, w.Reason, w.CreatedAt,
	)
	return err
}

// WarningsForSubject retrieves all warnings for a subject, oldest first.
func (s *Store) WarningsForSubject(communityID, subjectID string) ([]*Warning, error) {
	rows, err := s.db.Query(
		`SELECT id, community_id, subject_id, moderator_id, reason, created_at
		 FROM warnings WHERE community_id = ? AND subject_id = ? ORDER BY id`,
		communityID, subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warnings []*Warning
	for rows.Next() {
		var w Warning
		if err := rows.Scan(&w.ID, &w.CommunityID, &w.SubjectID, &w.ModeratorID, &w.Reason, &w.CreatedAt); err != nil {
			return nil, err
		}
		warnings = append(warnings, &w)
	}

	return warnings, rows.Err()
}

// CountWarnings returns the number of warnings on record for a subject.
func (s *Store) CountWarnings(communityID, subjectID string) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM warnings WHERE community_id = ? AND subject_id = ?`,
		communityID, subjectID,
	).Scan(&count)
	return count, err
}

// DeleteWarning removes a single warning by id. Returns false when no row
// matched.
func (s *Store) DeleteWarning(communityID string, id int64) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM warnings WHERE community_id = ? AND id = ?`,
		communityID, id,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ClearWarnings removes every warning for a subject and returns how many were
// removed.
func (s *Store) ClearWarnings(communityID, subjectID string) (int, error) {
	res, err := s.db.Exec(
		`DELETE FROM warnings WHERE community_id = ? AND subject_id = ?`,
		communityID, subjectID,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// ===== Audit log =====

// InsertAudit appends an enforcement record.
func (s *Store) InsertAudit(e *AuditEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_log (community_id, subject_id, action, reason, actor_id, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.CommunityID, e.SubjectID, e.Action, e.Reason, e.ActorID, e.Timestamp,
	)
	return err
}

// RecentAudit retrieves the most recent audit entries for a community, newest
// first. A non-empty subjectID narrows the query to one subject.
func (s *Store) RecentAudit(communityID, subjectID string, limit int) ([]*AuditEntry, error) {
	query := `SELECT id, community_id, subject_id, action, reason, actor_id, timestamp
		 FROM audit_log WHERE community_id = ?`
	args := []interface{}{communityID}
	if subjectID != "" {
		query += ` AND subject_id = ?`
		args = append(args, subjectID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.CommunityID, &e.SubjectID, &e.Action, &e.Reason, &e.ActorID, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

// TrimAudit deletes the oldest audit rows for a community beyond keep.
func (s *Store) TrimAudit(communityID string, keep int) error {
	_, err := s.db.Exec(
		`DELETE FROM audit_log WHERE community_id = ? AND id NOT IN (
			SELECT id FROM audit_log WHERE community_id = ? ORDER BY id DESC LIMIT ?
		)`,
		communityID, communityID, keep,
	)
	return err
}

// ===== Quarantine =====

// InsertQuarantine records an active quarantine with the subject's role
// snapshot.
func (s *Store) InsertQuarantine(r *QuarantineRecord) (int64, error) {
	active := 0
	if r.Active {
		active = 1
	}
	res, err := s.db.Exec(
		`INSERT INTO quarantine (community_id, subject_id, role_ids, reason, active, created_at, released_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.CommunityID, r.SubjectID, r.RoleIDs, r.Reason, active, r.CreatedAt, r.ReleasedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ActiveQuarantine retrieves the active quarantine record for a subject, or
// nil when there is none.
func (s *Store) ActiveQuarantine(communityID, subjectID string) (*QuarantineRecord, error) {
	var r QuarantineRecord
	var active int
	err := s.db.QueryRow(
		`SELECT id, community_id, subject_id, role_ids, reason, active, created_at, released_at
		 FROM quarantine WHERE community_id = ? AND subject_id = ? AND active = 1`,
		communityID, subjectID,
	).Scan(&r.ID, &r.CommunityID, &r.SubjectID, &r.RoleIDs, &r.Reason, &active, &r.CreatedAt, &r.ReleasedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	return &r, nil
}

// ReleaseQuarantine marks a quarantine record inactive.
func (s *Store) ReleaseQuarantine(id int64, releasedAt int64) error {
	_, err := s.db.Exec(
		`UPDATE quarantine SET active = 0, released_at = ? WHERE id = ?`,
		releasedAt, id,
	)
	return err
}

// ===== Backups =====

// InsertBackup persists a structural snapshot.
func (s *Store) InsertBackup(b *BackupRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO backups (id, community_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.CommunityID, b.Payload, b.CreatedAt,
	)
	return err
}

// GetBackup retrieves a snapshot by id.
func (s *Store) GetBackup(id string) (*BackupRecord, error) {
	var b BackupRecord
	err := s.db.QueryRow(
		`SELECT id, community_id, payload, created_at FROM backups WHERE id = ?`,
		id,
	).Scan(&b.ID, &b.CommunityID, &b.Payload, &b.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBackups retrieves snapshot metadata for a community, newest first. The
// payload column is not loaded.
func (s *Store) ListBackups(communityID string) ([]*BackupRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, community_id, created_at FROM backups WHERE community_id = ? ORDER BY created_at DESC`,
		communityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var backups []*BackupRecord
	for rows.Next() {
		var b BackupRecord
		if err := rows.Scan(&b.ID, &b.CommunityID, &b.CreatedAt); err != nil {
			return nil, err
		}
		backups = append(backups, &b)
	}

	return backups, rows.Err()
}

// ===== Settings =====

// SetSetting upserts a per-community key-value setting.
func (s *Store) SetSetting(communityID, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (community_id, key, value) VALUES (?, ?, ?)
		 ON CONFLICT(community_id, key) DO UPDATE SET value = excluded.value`,
		communityID, key, value,
	)
	return err
}

// GetSetting retrieves a per-community setting. The second return is false
// when the key has never been set.
func (s *Store) GetSetting(communityID, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE community_id = ? AND key = ?`,
		communityID, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// JoinRoleIDs flattens a role id list into the snapshot column format.
func JoinRoleIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// SplitRoleIDs expands a snapshot column back into a role id list.
func SplitRoleIDs(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, ",")
}
