// Package archiver runs the background sweep that promotes stale game
// records from the live store to JSON files on disk.
package archiver

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/mafia-night/backend/internal/store"
)

// Archiver periodically scans a store.Store for records whose DateUpdated
// is older than After, writes each as JSON under Dir, and deletes it from
// the store on a successful write. The archiver never touches live games
// directly: a game is written to the store on every broadcast, so "stale
// in the store" already means "no recent activity".
type Archiver struct {
	store       store.Store
	dir         string
	after       time.Duration
	checkPeriod time.Duration
	now         func() time.Time
}

// New builds an Archiver. dir is created if missing the first time Run
// starts its loop.
func New(s store.Store, dir string, after, checkPeriod time.Duration) *Archiver {
	return &Archiver{store: s, dir: dir, after: after, checkPeriod: checkPeriod, now: time.Now}
}

// Run blocks, sweeping once per checkPeriod until ctx-like stop is
// signalled by done. Intended to be run in its own goroutine from main.
func (a *Archiver) Run(done <-chan struct{}) {
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		log.Printf("[archiver] cannot create archive directory %s: %v", a.dir, err)
	}

	ticker := time.NewTicker(a.checkPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			a.sweep()
		}
	}
}

// sweep archives every record older than a.after. Errors on an individual
// record are logged and skipped; the next tick retries, giving at-least-
// once archiving with no at-most-once guarantee.
func (a *Archiver) sweep() {
	now := a.now()
	var stale []store.GameRecord

	err := a.store.Iterate(func(rec store.GameRecord) bool {
		if now.Sub(rec.DateUpdated) > a.after {
			stale = append(stale, rec)
		}
		return true
	})
	if err != nil {
		log.Printf("[archiver] iterate failed: %v", err)
		return
	}

	for _, rec := range stale {
		if err := a.archiveOne(rec); err != nil {
			log.Printf("[archiver] archive %s failed: %v", rec.Info.GameID, err)
			continue
		}
		a.store.Delete(rec.Info.GameID)
	}
}

func (a *Archiver) archiveOne(rec store.GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	path := filepath.Join(a.dir, rec.Info.GameID.String()+".json")
	return os.WriteFile(path, data, 0o644)
}
