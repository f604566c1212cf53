// Package jsonfile is a Store kept in memory and persisted as one JSON
// document per collection under a data directory. A write rewrites only the
// files of the collections it touched, each through a temp file and rename.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/agriconnect/farmerportal/internal/portal/domain"
	"github.com/agriconnect/farmerportal/internal/portal/store"
)

var errTxDone = errors.New("jsonfile: transaction already finished")

const (
	farmersFile       = "farmers.json"
	adminsFile        = "admins.json"
	subsidiesFile     = "subsidies.json"
	notificationsFile = "notifications.json"
	marketPricesFile  = "market_prices.json"
)

// collection is a set of data files. Writes report the ones they touch so
// flush leaves the others alone.
type collection uint8

const (
	colFarmers collection = 1 << iota
	colAdmins
	colSubsidies
	colNotifications
	colMarketPrices
)

var collectionFiles = []struct {
	col  collection
	name string
}{
	{colFarmers, farmersFile},
	{colAdmins, adminsFile},
	{colSubsidies, subsidiesFile},
	{colNotifications, notificationsFile},
	{colMarketPrices, marketPricesFile},
}

// dataset is the whole database held in memory.
type dataset struct {
	farmers       []domain.Farmer
	admins        []domain.Admin
	subsidies     []domain.Subsidy
	notifications []domain.Notification
	reads         []domain.NotificationRead
	marketPrices  []domain.MarketPrice
}

func (d *dataset) clone() *dataset {
	return &dataset{
		farmers:       append([]domain.Farmer(nil), d.farmers...),
		admins:        append([]domain.Admin(nil), d.admins...),
		subsidies:     append([]domain.Subsidy(nil), d.subsidies...),
		notifications: append([]domain.Notification(nil), d.notifications...),
		reads:         append([]domain.NotificationRead(nil), d.reads...),
		marketPrices:  append([]domain.MarketPrice(nil), d.marketPrices...),
	}
}

// runner gives repositories access to a dataset. The Store locks around
// each call; a txStore already holds the lock. write names the collections
// fn may change.
type runner interface {
	read(fn func(d *dataset) error) error
	write(cols collection, fn func(d *dataset) error) error
}

type Store struct {
	dir  string
	mu   sync.Mutex
	data *dataset
}

// NewStore loads the collections found in dir. Missing files are treated as
// empty; ApplyMigrations creates them.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir}
	data, err := s.load()
	if err != nil {
		return nil, err
	}
	s.data = data
	return s, nil
}

func (s *Store) read(fn func(d *dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// write runs fn on a copy and only swaps it in once cols are on disk.
func (s *Store) write(cols collection, fn func(d *dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.data.clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.flush(next, cols); err != nil {
		return err
	}
	s.data = next
	return nil
}

// ApplyMigrations creates the data directory and any missing collection file.
func (s *Store) ApplyMigrations() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("jsonfile: create data dir: %w", err)
	}
	var missing collection
	for _, f := range collectionFiles {
		if _, err := os.Stat(filepath.Join(s.dir, f.name)); errors.Is(err, os.ErrNotExist) {
			missing |= f.col
		}
	}
	return s.flush(s.data, missing)
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &txStore{parent: s, data: s.data.clone()}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Close() error { return nil }

// Ping checks the data directory is still there.
func (s *Store) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("jsonfile: %s is not a directory", s.dir)
	}
	return nil
}

func (s *Store) Farmers() store.Farmers             { return &farmersRepo{r: s} }
func (s *Store) Admins() store.Admins               { return &adminsRepo{r: s} }
func (s *Store) Subsidies() store.Subsidies         { return &subsidiesRepo{r: s} }
func (s *Store) Notifications() store.Notifications { return &notificationsRepo{r: s} }
func (s *Store) MarketPrices() store.MarketPrices   { return &marketPricesRepo{r: s} }

// txStore holds the parent's mutex from Tx until Commit or Rollback.
type txStore struct {
	parent *Store
	data   *dataset
	dirty  collection
	done   bool
}

func (t *txStore) read(fn func(d *dataset) error) error {
	if t.done {
		return errTxDone
	}
	return fn(t.data)
}

func (t *txStore) write(cols collection, fn func(d *dataset) error) error {
	if t.done {
		return errTxDone
	}
	// Work on a copy so a failed step leaves earlier steps intact.
	next := t.data.clone()
	if err := fn(next); err != nil {
		return err
	}
	t.data = next
	t.dirty |= cols
	return nil
}

func (t *txStore) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	defer t.parent.mu.Unlock()

	if t.dirty == 0 {
		return nil
	}
	if err := t.parent.flush(t.data, t.dirty); err != nil {
		return err
	}
	t.parent.data = t.data
	return nil
}

func (t *txStore) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.parent.mu.Unlock()
	return nil
}

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) { return nil, errTxDone }
func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return errTxDone
}
func (t *txStore) ApplyMigrations() error         { return nil }
func (t *txStore) Close() error                   { return nil }
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Farmers() store.Farmers             { return &farmersRepo{r: t} }
func (t *txStore) Admins() store.Admins               { return &adminsRepo{r: t} }
func (t *txStore) Subsidies() store.Subsidies         { return &subsidiesRepo{r: t} }
func (t *txStore) Notifications() store.Notifications { return &notificationsRepo{r: t} }
func (t *txStore) MarketPrices() store.MarketPrices   { return &marketPricesRepo{r: t} }

func (s *Store) load() (*dataset, error) {
	var (
		farmers       farmersDoc
		admins        adminsDoc
		subsidies     subsidiesDoc
		notifications notificationsDoc
		marketPrices  marketPricesDoc
	)
	for name, dst := range map[string]any{
		farmersFile:       &farmers,
		adminsFile:        &admins,
		subsidiesFile:     &subsidies,
		notificationsFile: &notifications,
		marketPricesFile:  &marketPrices,
	} {
		if err := readJSON(filepath.Join(s.dir, name), dst); err != nil {
			return nil, err
		}
	}

	d := &dataset{}
	for _, r := range farmers.Farmers {
		d.farmers = append(d.farmers, r.toDomain())
	}
	for _, r := range admins.Admins {
		d.admins = append(d.admins, r.toDomain())
	}
	for _, r := range subsidies.Subsidies {
		d.subsidies = append(d.subsidies, r.toDomain())
	}
	for _, r := range notifications.Notifications {
		d.notifications = append(d.notifications, r.toDomain())
	}
	for _, r := range notifications.Reads {
		d.reads = append(d.reads, r.toDomain())
	}
	for _, r := range marketPrices.MarketPrices {
		d.marketPrices = append(d.marketPrices, r.toDomain())
	}
	return d, nil
}

// flush writes the files of cols from d.
func (s *Store) flush(d *dataset, cols collection) error {
	for _, f := range collectionFiles {
		if cols&f.col == 0 {
			continue
		}
		if err := writeJSON(filepath.Join(s.dir, f.name), d.doc(f.col)); err != nil {
			return err
		}
	}
	return nil
}

// doc builds the on-disk document of one collection.
func (d *dataset) doc(col collection) any {
	switch col {
	case colFarmers:
		doc := farmersDoc{Farmers: make([]farmerRecord, 0, len(d.farmers))}
		for _, f := range d.farmers {
			doc.Farmers = append(doc.Farmers, newFarmerRecord(f))
		}
		return doc
	case colAdmins:
		doc := adminsDoc{Admins: make([]adminRecord, 0, len(d.admins))}
		for _, a := range d.admins {
			doc.Admins = append(doc.Admins, newAdminRecord(a))
		}
		return doc
	case colSubsidies:
		doc := subsidiesDoc{Subsidies: make([]subsidyRecord, 0, len(d.subsidies))}
		for _, sb := range d.subsidies {
			doc.Subsidies = append(doc.Subsidies, newSubsidyRecord(sb))
		}
		return doc
	case colNotifications:
		doc := notificationsDoc{
			Notifications: make([]notificationRecord, 0, len(d.notifications)),
			Reads:         make([]readRecord, 0, len(d.reads)),
		}
		for _, n := range d.notifications {
			doc.Notifications = append(doc.Notifications, newNotificationRecord(n))
		}
		for _, r := range d.reads {
			doc.Reads = append(doc.Reads, newReadRecord(r))
		}
		return doc
	case colMarketPrices:
		doc := marketPricesDoc{MarketPrices: make([]marketPriceRecord, 0, len(d.marketPrices))}
		for _, p := range d.marketPrices {
			doc.MarketPrices = append(doc.MarketPrices, newMarketPriceRecord(p))
		}
		return doc
	}
	panic(fmt.Sprintf("jsonfile: unknown collection %d", col))
}

func readJSON(path string, dst any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("jsonfile: read %s: %w", filepath.Base(path), err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("jsonfile: decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON replaces path atomically: the document is written to a temp
// file in the same directory, synced, then renamed over the target.
func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("jsonfile: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile: write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("jsonfile: sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
