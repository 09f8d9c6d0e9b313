package engine

import (
	"context"
	"fmt"

	"github.com/roach88/fitsync/internal/model"
)

// merge fetches the remote list and folds it into the local store.
//
// A failed fetch skips the merge entirely. Otherwise:
//   - a day with no local record is hydrated as synced
//   - a synced local record is overwritten only when the remote timestamp
//     is strictly newer (local wins ties)
//   - an unsynced local record is left alone
//   - a record that was synced when the pass began and has no remote entry
//     is soft-tombstoned for removal by the next pass
func (p *pass) merge(ctx context.Context) error {
	entries, err := p.remote.GetProgress(ctx)
	if err != nil {
		p.fail(ErrCodeFetchRemote, 0, "", "", err)
		p.report.MergeSkipped = true
		return nil
	}

	records, err := p.store.Records(ctx)
	if err != nil {
		return fmt.Errorf("load records for merge: %w", err)
	}

	// Records is ordered newest first within a day, so the first record
	// seen for a day is the one to merge into.
	byDay := make(map[int]model.ProgressRecord, len(records))
	for _, rec := range records {
		if _, ok := byDay[rec.Day]; !ok {
			byDay[rec.Day] = rec
		}
	}

	seen := make(map[int]bool, len(entries))
	for _, entry := range entries {
		day := model.ToInternal(entry.ID)
		seen[day] = true

		remoteAt, err := entry.ModifiedAt()
		if err != nil {
			p.fail(ErrCodeRemoteShape, day, "", "", err)
			continue
		}

		local, ok := byDay[day]
		switch {
		case !ok:
			rec := model.RecordFromResponse(p.ids.Generate(), entry, remoteAt)
			if err := p.store.SaveRecord(ctx, rec); err != nil {
				p.fail(ErrCodeLocalStore, day, "", rec.RowID, err)
				continue
			}
			byDay[day] = rec
			p.report.Hydrated++
			p.logger.Info("hydrated record from server", "day", day)

		case !local.IsSynced:
			p.logger.Debug("local edits pending, remote not applied", "day", day)

		case remoteAt.After(local.LastModified):
			local.ApplyRemote(entry, remoteAt)
			if err := p.store.SaveRecord(ctx, local); err != nil {
				p.fail(ErrCodeLocalStore, day, "", local.RowID, err)
				continue
			}
			byDay[day] = local
			p.report.Overwritten++
			p.logger.Info("remote newer, local overwritten", "day", day)
		}
	}

	for _, rec := range records {
		if !p.syncedAtStart[rec.RowID] || seen[rec.Day] || !rec.IsSynced {
			continue
		}
		rec.ShouldDelete = true
		rec.IsSynced = false
		if err := p.store.SaveRecord(ctx, rec); err != nil {
			p.fail(ErrCodeLocalStore, rec.Day, "", rec.RowID, err)
			continue
		}
		p.report.Tombstoned++
		p.logger.Info("server no longer has day, soft-tombstoned", "day", rec.Day)
	}
	return nil
}
