package models

// WatchlistEntry is one user's watchlist. Symbols are uppercase, unique and
// kept in insertion order.
type WatchlistEntry struct {
	UserID  string   `json:"user_id"`
	Symbols []string `json:"symbols"`
}

// WatchlistSnapshot is the on-disk layout: user id to symbol list.
type WatchlistSnapshot map[string][]string
