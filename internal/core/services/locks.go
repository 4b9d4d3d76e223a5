package services

import (
	"context"
	"sort"

	"github.com/custodia-labs/shelfsync/internal/core/domain"
)

// typeLocks serialises work per record type. A sync and a merge touching the
// same type never interleave; unrelated types run in parallel.
type typeLocks struct {
	sems map[domain.RecordType]chan struct{}
}

func newTypeLocks() *typeLocks {
	all := append([]domain.RecordType{domain.RecordTypeHighlight}, domain.RecordTypes...)
	l := &typeLocks{sems: make(map[domain.RecordType]chan struct{}, len(all))}
	for _, t := range all {
		l.sems[t] = make(chan struct{}, 1)
	}
	return l
}

// acquire takes every lock in a fixed order so two callers can never
// deadlock. The returned func releases them.
func (l *typeLocks) acquire(ctx context.Context, types ...domain.RecordType) (func(), error) {
	sorted := append([]domain.RecordType(nil), types...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var held []chan struct{}
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for i, t := range sorted {
		if i > 0 && sorted[i-1] == t {
			continue
		}
		sem := l.sems[t]
		select {
		case sem <- struct{}{}:
			held = append(held, sem)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}

// syncLockSet names the record types each source writes.
var syncLockSet = map[domain.SourceName][]domain.RecordType{
	domain.SourceReader:    {domain.RecordTypeArticle},
	domain.SourceReadwise:  {domain.RecordTypeArticle, domain.RecordTypeBook, domain.RecordTypeHighlight},
	domain.SourceVault:     {domain.RecordTypeNote},
	domain.SourceGoodreads: {domain.RecordTypeBook},
}

func mergeLockSet(t domain.RecordType) []domain.RecordType {
	return []domain.RecordType{t, domain.RecordTypeHighlight}
}
