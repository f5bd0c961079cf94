package watchlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/luckfunc/stockwatchBot/internal/models"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.Und)

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return upper.String(strings.TrimSpace(symbol))
}

// Store keeps every user's watchlist in memory and rewrites the whole file
// after each successful mutation.
type Store struct {
	path   string
	logger *zap.Logger

	mu    sync.Mutex
	lists models.WatchlistSnapshot
}

// Open loads the store from path. A missing or unreadable file gives an
// empty store; the problem is logged and never returned.
func Open(path string, logger *zap.Logger) *Store {
	s := &Store{
		path:   path,
		logger: logger.Named("watchlist"),
		lists:  make(models.WatchlistSnapshot),
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("watchlist file not found, starting empty", zap.String("path", s.path))
			return
		}
		s.logger.Error("error loading watchlists", zap.String("path", s.path), zap.Error(err))
		return
	}
	var snapshot models.WatchlistSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Error("error loading watchlists", zap.String("path", s.path), zap.Error(err))
		return
	}
	for userID, symbols := range snapshot {
		s.lists[userID] = dedupe(symbols)
	}
	s.logger.Info("watchlists loaded", zap.String("path", s.path), zap.Int("users", len(s.lists)))
}

// Get returns a copy of the user's symbols, or an empty slice for an
// unknown user.
func (s *Store) Get(userID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lists[userID]))
	copy(out, s.lists[userID])
	return out
}

// Users returns the known user ids in sorted order.
func (s *Store) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]string, 0, len(s.lists))
	for userID := range s.lists {
		users = append(users, userID)
	}
	sort.Strings(users)
	return users
}

// Add appends symbol to the user's list. It returns false without writing
// when the symbol is already there. If the save fails the addition is
// undone and the error returned.
func (s *Store) Add(userID, symbol string) (bool, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, known := s.lists[userID]
	if slices.Contains(prev, symbol) {
		return false, nil
	}
	next := make([]string, 0, len(prev)+1)
	next = append(next, prev...)
	s.lists[userID] = append(next, symbol)

	if err := s.save(); err != nil {
		if known {
			s.lists[userID] = prev
		} else {
			delete(s.lists, userID)
		}
		return false, err
	}
	return true, nil
}

// Remove drops symbol from the user's list. It returns false when the
// symbol was not there. If the save fails the removal is undone.
func (s *Store) Remove(userID, symbol string) (bool, error) {
	symbol = NormalizeSymbol(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.lists[userID]
	if !ok {
		return false, nil
	}
	idx := slices.Index(prev, symbol)
	if idx < 0 {
		return false, nil
	}
	s.lists[userID] = slices.Delete(slices.Clone(prev), idx, idx+1)

	if err := s.save(); err != nil {
		s.lists[userID] = prev
		return false, err
	}
	return true, nil
}

// save writes the full snapshot to a temp file next to the target and
// renames it into place. Callers hold s.mu.
func (s *Store) save() error {
	data, err := json.Marshal(s.lists)
	if err != nil {
		return fmt.Errorf("encode watchlists: %w", err)
	}
	data = pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "  ", SortKeys: true})

	if err := writeFileAtomic(s.path, data); err != nil {
		s.logger.Error("error saving watchlists", zap.String("path", s.path), zap.Error(err))
		return fmt.Errorf("save watchlists: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func dedupe(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = NormalizeSymbol(symbol)
		if symbol == "" || seen[symbol] {
			continue
		}
		seen[symbol] = true
		out = append(out, symbol)
	}
	return out
}
