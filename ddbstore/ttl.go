package ddbstore

import (
	"time"
)

// ttlSweeper periodically deletes items past their TTL deadline in the
// background. TTL deletion is best-effort and may lag the deadline by
// design — lazy reclamation on the read path is what gives callers
// exact-on-read semantics regardless of sweep timing.
type ttlSweeper struct {
	store    *Store
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func startTTLSweeper(s *Store, interval time.Duration) *ttlSweeper {
	sw := &ttlSweeper{
		store:    s,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go sw.run()
	return sw
}

func (sw *ttlSweeper) run() {
	defer close(sw.doneCh)
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()
	for {
		select {
		case <-sw.stopCh:
			return
		case <-ticker.C:
			if err := sw.store.sweepExpiredItems(); err != nil {
				sw.store.log.Error("ttl sweep failed", "error", err)
			}
		}
	}
}

func (sw *ttlSweeper) stop() {
	close(sw.stopCh)
	<-sw.doneCh
}

// sweepExpiredItems deletes rows past their expiry across every table that
// has a TTL attribute configured. Holds the store lock for the duration of
// each table's sweep so it interleaves cleanly with foreground operations
// rather than locking the whole store for the entire pass.
func (s *Store) sweepExpiredItems() error {
	s.lock()
	names := make([]string, 0, len(s.tables))
	for name, t := range s.tables {
		if t.TTLAttribute != "" {
			names = append(names, name)
		}
	}
	s.unlock()

	now := time.Now().Unix()
	for _, name := range names {
		if err := s.sweepTableExpired(name, now); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) sweepTableExpired(table string, nowUnix int64) error {
	s.lock()
	defer s.unlock()
	t, ok := s.tables[table]
	if !ok {
		return nil
	}
	rows, err := s.db.Query(`SELECT pk_collation, sk_collation FROM `+itemTableName(table)+` WHERE expires_at IS NOT NULL AND expires_at <= ?`, nowUnix)
	if err != nil {
		return err
	}
	var victims [][2]string
	for rows.Next() {
		var pk, sk string
		if err := rows.Scan(&pk, &sk); err != nil {
			rows.Close()
			return err
		}
		victims = append(victims, [2]string{pk, sk})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, v := range victims {
		if err := s.deleteItemAndIndexEntries(table, t, v[0], v[1]); err != nil {
			return err
		}
		t.ItemCount--
		s.log.Debug("ttl sweep deleted item", "table", table, "pk", v[0], "sk", v[1])
	}
	return nil
}
