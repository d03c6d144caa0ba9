package sqldb

import (
	"embed"
	"fmt"
	"log"
	"path"
	"strings"
)

type RawStore struct {
	stmts map[string]string
}

func NewRawStore() *RawStore {
	return &RawStore{stmts: make(map[string]string)}
}

func (s *RawStore) Set(key string, rawStmt string) {
	s.stmts[key] = rawStmt
}

func (s *RawStore) Get(key string) (string, bool) {
	stmt, exists := s.stmts[key]
	return stmt, exists
}

// MustGet panics on a missing statement. Use it only for statements embedded at build time.
func (s *RawStore) MustGet(key string) string {
	stmt, exists := s.stmts[key]
	if !exists {
		panic(fmt.Sprintf("sqldb: raw statement %q not loaded", key))
	}
	return stmt
}

func (s *RawStore) Len() int {
	return len(s.stmts)
}

type StoreGroupedStmtKey struct {
	Group    string
	StmtName string
}

func (k StoreGroupedStmtKey) String() string {
	return k.Group + "." + k.StmtName
}

type GroupFS struct {
	Group string
	FS    embed.FS
}

var RawStoreRegistry []GroupFS

// RegisterGroup adds an embedded `sql` dir. Call it from the init() of the owning package.
func RegisterGroup(fs embed.FS, group string) {
	RawStoreRegistry = append(RawStoreRegistry, GroupFS{
		FS:    fs,
		Group: group,
	})
}

// LoadRawStmtsToStore fills store from every registered group.
// A `<name>.<dbtype>` file wins over `<name>.sql`, whose `?` placeholders get converted.
func LoadRawStmtsToStore(store *RawStore, dbtype string) error {
	placeholderPrefix := PlaceholderPrefixForDBType[dbtype]
	groupCnt := 0
	stmtCnt := 0
	for _, groupFS := range RawStoreRegistry {
		files, err := groupFS.FS.ReadDir("sql")
		if err != nil {
			return fmt.Errorf("failed to read embedded `sql` dir. %w", err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			filename := f.Name()
			ext := path.Ext(filename)
			name := strings.TrimSuffix(filename, ext)
			ext = strings.TrimPrefix(ext, ".")
			data, err := groupFS.FS.ReadFile(path.Join("sql", filename))
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", filename, err)
			}
			groupedStmtKey := StoreGroupedStmtKey{Group: groupFS.Group, StmtName: name}.String()

			switch ext {
			case dbtype:
				// exact matching file extension -> use it as-is for dialects
				store.Set(groupedStmtKey, string(data))
				stmtCnt++
			case "sql":
				// Standard SQL with `?` placeholders
				if _, exists := store.Get(groupedStmtKey); !exists {
					store.Set(groupedStmtKey, ReplaceStaticPlaceholders(string(data), placeholderPrefix))
					stmtCnt++
				}
			}
		}
		groupCnt++
	}
	log.Printf("[INFO][%s] %d sql raw stmts loaded for %d groups", dbtype, stmtCnt, groupCnt)
	return nil
}
