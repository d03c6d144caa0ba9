// Package sheetstore serves the sheet size catalog from a SQL table and swaps
// it atomically whenever the table changes.
package sheetstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/zeptools/gw-impose/db/sqldb"
	"github.com/zeptools/gw-impose/nullable"
	"github.com/zeptools/gw-impose/pdfs"
	"github.com/zeptools/gw-impose/svc"
)

//go:embed sql
var sqlFS embed.FS

const Group = "sheetstore"

func init() {
	sqldb.RegisterGroup(sqlFS, Group)
}

var (
	stmtListSheets = sqldb.StoreGroupedStmtKey{Group: Group, StmtName: "list_sheets"}.String()
	stmtSchema     = sqldb.StoreGroupedStmtKey{Group: Group, StmtName: "schema"}.String()
)

// NotifyChannel is the LISTEN channel the pgsql schema trigger notifies
const NotifyChannel = "sheet_sizes_changed"

const DefaultPollInterval = 5 * time.Minute

var ErrEmptyCatalog = errors.New("sheet catalog table has no usable rows")

// Conf is loaded from the "sheet_catalog" section of config/.imposition.json
type Conf struct {
	DB           string `json:"db"`            // key in .sql-databases.json
	PollInterval string `json:"poll_interval"` // used where LISTEN is not available
	CreateSchema bool   `json:"create_schema"`
}

// Poll parses PollInterval. Empty means DefaultPollInterval.
func (c Conf) Poll() (time.Duration, error) {
	if c.PollInterval == "" {
		return DefaultPollInterval, nil
	}
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("poll_interval: %w", err)
	}
	return d, nil
}

type sheetRow struct {
	Name        string
	LongSide    float64
	ShortSide   float64
	Description nullable.String
}

func (r *sheetRow) TargetFields() []any {
	return []any{&r.Name, &r.LongSide, &r.ShortSide, &r.Description}
}

// Store implements jobs.CatalogSource and svc.Service
type Store struct {
	client       sqldb.Client
	pollInterval time.Duration
	current      atomic.Pointer[pdfs.Catalog]
	reloads      atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	state  int
	done   chan error
}

// Ensure Store implements svc.Service
var _ svc.Service = (*Store)(nil)

// New serves fallback until the first successful load
func New(parentCtx context.Context, client sqldb.Client, fallback pdfs.Catalog, pollInterval time.Duration) *Store {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s := &Store{
		client:       client,
		pollInterval: pollInterval,
		ctx:          ctx,
		cancel:       cancel,
		state:        svc.StateREADY,
		done:         make(chan error, 1),
	}
	s.current.Store(&fallback)
	return s
}

func (s *Store) Name() string {
	return "SheetCatalog"
}

// Catalog returns the catalog in effect. Uses a single atomic load.
func (s *Store) Catalog() pdfs.Catalog {
	return *s.current.Load()
}

// Reloads counts successful loads
func (s *Store) Reloads() int64 {
	return s.reloads.Load()
}

// EnsureSchema creates the table, and on pgsql the change trigger
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmt, ok := s.client.RawStore().Get(stmtSchema)
	if !ok {
		return fmt.Errorf("no sheet_sizes schema for %s", s.client.GetConf().Type)
	}
	_, err := s.client.Exec(ctx, stmt)
	return err
}

// Reload reads the table and swaps the catalog in one step.
// On any error the previous catalog stays in effect.
func (s *Store) Reload(ctx context.Context) (int, error) {
	rows, err := sqldb.QueryItems[sheetRow, *sheetRow](ctx, s.client, s.client.RawStore().MustGet(stmtListSheets), 1)
	if err != nil {
		return 0, fmt.Errorf("load sheet sizes: %w", err)
	}
	catalog := make(pdfs.Catalog, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		p := pdfs.NewPaperSize(strings.TrimSpace(r.Name), r.LongSide, r.ShortSide)
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup || p.Name == "" || !p.Valid() {
			log.Printf("[WARN][SHEETS] skipping sheet row %q (%gx%g)", r.Name, r.ShortSide, r.LongSide)
			continue
		}
		seen[key] = struct{}{}
		catalog = append(catalog, p)
	}
	if len(catalog) == 0 {
		return 0, ErrEmptyCatalog
	}
	s.current.Store(&catalog)
	s.reloads.Add(1)
	log.Printf("[INFO][SHEETS] catalog loaded: %d sheets", len(catalog))
	return len(catalog), nil
}

// Start loads the table once and then follows changes in the background.
// A failed first load keeps the fallback catalog; it is not a bootstrapping error.
func (s *Store) Start() error {
	if _, err := s.Reload(s.ctx); err != nil {
		log.Printf("[WARN][SHEETS] initial load failed, serving %d fallback sheets: %v", len(s.Catalog()), err)
	}
	notes, err := s.client.Listen(s.ctx, NotifyChannel)
	switch {
	case err == nil:
		log.Printf("[INFO][SHEETS] listening on %s", NotifyChannel)
	case errors.Is(err, sqldb.ErrNotSupported):
		log.Printf("[INFO][SHEETS] polling every %s", s.pollInterval)
	default:
		return fmt.Errorf("listen %s: %w", NotifyChannel, err)
	}
	s.state = svc.StateRUNNING
	go s.follow(notes)
	return nil
}

// follow reloads on every notification, or on every tick when notes is nil
func (s *Store) follow(notes <-chan sqldb.Notification) {
	var tick <-chan time.Time
	if notes == nil {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-s.ctx.Done():
			s.done <- nil
			return
		case n, ok := <-notes:
			if !ok {
				// listener connection dropped; only a shutdown is clean
				if s.ctx.Err() != nil {
					s.done <- nil
				} else {
					s.done <- fmt.Errorf("sheet catalog listener closed")
				}
				return
			}
			log.Printf("[INFO][SHEETS] change notified (%s)", n.Payload)
		case <-tick:
		}
		if _, err := s.Reload(s.ctx); err != nil && s.ctx.Err() == nil {
			log.Printf("[WARN][SHEETS] reload failed, keeping previous catalog: %v", err)
		}
	}
}

func (s *Store) Stop() {
	s.cancel()
	s.state = svc.StateSTOPPED
	log.Println("[INFO][SHEETS] service stopped")
}

func (s *Store) Done() <-chan error {
	return s.done
}
