package notification

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/nlogistics/control-tower/internal/lifecycle"
)

// Record is an immutable notification entry, append-only once created
// (§4.10 "immutable after creation"). read_by is the sole mutable field,
// updated in place via MarkRead.
type Record struct {
	NotificationID string           `json:"notification_id"`
	Timestamp      int64            `json:"timestamp"`
	ShipmentID     string           `json:"shipment_id"`
	TemplateName   string           `json:"template_name"`
	Message        string           `json:"message"`
	Severity       Severity         `json:"severity"`
	Recipients     []lifecycle.Role `json:"recipients"`
	Metadata       map[string]any   `json:"metadata"`
	ReadBy         []lifecycle.Role `json:"read_by"`
}

// UnreadFor reports whether role is a recipient who has not yet read r.
func (r Record) UnreadFor(role lifecycle.Role) bool {
	isRecipient := false
	for _, recipient := range r.Recipients {
		if recipient == role {
			isRecipient = true
			break
		}
	}
	if !isRecipient {
		return false
	}
	for _, read := range r.ReadBy {
		if read == role {
			return false
		}
	}
	return true
}

// Store is a JSONL-backed, append-only notification log with in-place
// read-tracking rewrites (§4.10 "JSONL persistence, read/unread
// tracking") — deliberately not GORM: notifications have no relational
// shape and are always consumed as a role-filtered stream, the same
// access pattern the event log serves for shipments.
type Store struct {
	mu   sync.Mutex
	path string
}

// OpenStore roots a Store at path, creating its parent directory and an
// empty file if neither exists yet.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("notification: create store dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("notification: open store: %w", err)
	}
	f.Close()
	return &Store{path: path}, nil
}

// Append durably writes record as one JSON line, fsyncing before return
// (§4.10 "immutable append-only log").
func (s *Store) Append(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("notification: marshal record: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("notification: open store for append: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("notification: write record: %w", err)
	}
	return f.Sync()
}

// ReadAll returns every notification in append order, skipping malformed
// lines rather than failing the whole read (mirrors the original's
// tolerant JSONL reader).
func (s *Store) ReadAll() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAllLocked()
}

func (s *Store) readAllLocked() ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("notification: open store for read: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("notification: scan store: %w", err)
	}
	return records, nil
}

// ForRole returns role's notifications, newest first, optionally capped
// at limit (limit <= 0 means unbounded).
func (s *Store) ForRole(role lifecycle.Role, limit int) ([]Record, error) {
	all, err := s.ReadAll()
	if err != nil {
		return nil, err
	}

	var filtered []Record
	for _, r := range all {
		for _, recipient := range r.Recipients {
			if recipient == role {
				filtered = append(filtered, r)
				break
			}
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool { return filtered[i].Timestamp > filtered[j].Timestamp })
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// UnreadForRole returns role's unread notifications, newest first.
func (s *Store) UnreadForRole(role lifecycle.Role) ([]Record, error) {
	all, err := s.ForRole(role, 0)
	if err != nil {
		return nil, err
	}
	var unread []Record
	for _, r := range all {
		if r.UnreadFor(role) {
			unread = append(unread, r)
		}
	}
	return unread, nil
}

// ForShipment returns every notification for shipmentID, oldest first.
func (s *Store) ForShipment(shipmentID string) ([]Record, error) {
	all, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	var forShipment []Record
	for _, r := range all {
		if r.ShipmentID == shipmentID {
			forShipment = append(forShipment, r)
		}
	}
	sort.SliceStable(forShipment, func(i, j int) bool { return forShipment[i].Timestamp < forShipment[j].Timestamp })
	return forShipment, nil
}

// Counts summarizes role's notifications: total, unread, and a
// severity breakdown (§4.10 notification-count summary).
type Counts struct {
	Total      int
	Unread     int
	BySeverity map[Severity]int
}

// CountsForRole computes Counts for role.
func (s *Store) CountsForRole(role lifecycle.Role) (Counts, error) {
	all, err := s.ForRole(role, 0)
	if err != nil {
		return Counts{}, err
	}
	counts := Counts{BySeverity: map[Severity]int{}}
	for _, r := range all {
		counts.Total++
		counts.BySeverity[r.Severity]++
		if r.UnreadFor(role) {
			counts.Unread++
		}
	}
	return counts, nil
}

// MarkRead marks notificationID read for role, rewriting the whole
// store under lock — acceptable for this system's volume, matching the
// original's own "rewrites entire store" tradeoff. Returns false if no
// matching notification exists.
func (s *Store) MarkRead(notificationID string, role lifecycle.Role) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readAllLocked()
	if err != nil {
		return false, err
	}

	found := false
	for i := range records {
		if records[i].NotificationID != notificationID {
			continue
		}
		found = true
		alreadyRead := false
		for _, r := range records[i].ReadBy {
			if r == role {
				alreadyRead = true
				break
			}
		}
		if !alreadyRead {
			records[i].ReadBy = append(records[i].ReadBy, role)
		}
	}
	if !found {
		return false, nil
	}

	return true, s.rewriteLocked(records)
}

func (s *Store) rewriteLocked(records []Record) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".tmp-notifications-*")
	if err != nil {
		return fmt.Errorf("notification: create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, r := range records {
		line, err := json.Marshal(r)
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("notification: marshal record: %w", err)
		}
		if _, err := w.Write(append(line, '\n')); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("notification: write record: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("notification: flush temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("notification: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("notification: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("notification: rename into place: %w", err)
	}
	return nil
}
