package engine

import (
	"bytes"
	"context"
	"errors"

	"github.com/roach88/fitsync/internal/model"
	"github.com/roach88/fitsync/internal/store"
)

// deleteRecords runs the deletion pass and returns the snapshots that were
// not deletions.
//
// The local record is removed whether or not the server call succeeds.
func (p *pass) deleteRecords(ctx context.Context, snapshots []model.Snapshot) []model.Snapshot {
	remaining := make([]model.Snapshot, 0, len(snapshots))
	for _, snap := range snapshots {
		if !snap.ShouldDelete {
			remaining = append(remaining, snap)
			continue
		}

		if err := p.remote.DeleteProgress(ctx, snap.ExternalDay()); err != nil {
			p.fail(ErrCodeDeleteRecord, snap.Day, "", snap.RowID, err)
		}
		if err := p.store.DeleteRecord(ctx, snap.RowID); err != nil {
			p.fail(ErrCodeLocalStore, snap.Day, "", snap.RowID, err)
			continue
		}
		p.report.RecordsDeleted++
		p.logger.Info("deleted record", "day", snap.Day)
	}
	return remaining
}

// photoOutcome is the photo-deletion result for one snapshot.
type photoOutcome struct {
	failed int
}

// deletePhotos runs the photo-deletion pass. Calls are sequential in slot
// order; a failed slot stays tombstoned and the loop moves on.
func (p *pass) deletePhotos(ctx context.Context, snapshots []model.Snapshot) []photoOutcome {
	outcomes := make([]photoOutcome, len(snapshots))
	for i, snap := range snapshots {
		for _, slot := range snap.Deletes {
			if err := p.remote.DeletePhoto(ctx, snap.ExternalDay(), slot.Name()); err != nil {
				p.fail(ErrCodeDeletePhoto, snap.Day, slot.Name(), snap.RowID, err)
				outcomes[i].failed++
				continue
			}
			p.report.PhotosDeleted++

			if err := p.clearTombstone(ctx, snap.RowID, slot); err != nil {
				p.fail(ErrCodeLocalStore, snap.Day, slot.Name(), snap.RowID, err)
				outcomes[i].failed++
			}
		}
	}
	return outcomes
}

// clearTombstone empties slot on the live record if it is still tombstoned.
// A slot the user refilled during the call is left alone.
func (p *pass) clearTombstone(ctx context.Context, rowID string, slot model.Slot) error {
	live, ok, err := p.live(ctx, rowID)
	if err != nil || !ok {
		return err
	}
	if !live.Photos[slot].IsTombstoned() {
		return nil
	}
	live.Photos[slot] = model.EmptySlot()
	return p.store.SaveRecord(ctx, live)
}

// upload runs the upload pass. A server-known record is always sent as an
// update unless its only pending change was photo deletions.
func (p *pass) upload(ctx context.Context, snapshots []model.Snapshot, outcomes []photoOutcome) {
	for i, snap := range snapshots {
		deletesOK := outcomes[i].failed == 0

		switch {
		case snap.NeedsUpload():
		case !snap.ServerKnown:
			// Nothing the server could create; stays pending until it has content.
			continue
		case len(snap.Deletes) > 0:
			if deletesOK {
				p.markSynced(ctx, snap)
			}
			continue
		}

		req := snap.Request()
		var (
			resp model.ProgressResponse
			err  error
		)
		if snap.ServerKnown {
			resp, err = p.remote.UpdateProgress(ctx, snap.ExternalDay(), req)
		} else {
			resp, err = p.remote.CreateProgress(ctx, req)
		}
		if err != nil {
			p.fail(ErrCodeUpload, snap.Day, "", snap.RowID, err)
			continue
		}
		p.report.Uploaded++
		p.logger.Info("uploaded record", "day", snap.Day, "create", !snap.ServerKnown, "photos", req.UploadFields())

		if err := p.applyUpload(ctx, snap, resp, deletesOK); err != nil {
			p.fail(ErrCodeLocalStore, snap.Day, "", snap.RowID, err)
		}
	}
}

// applyUpload records a successful upsert on the live record.
//
// The server now knows the day. Uploaded slots whose bytes are unchanged
// switch to the returned URL and drop their local copy. The record is
// marked synced only if nothing changed since the snapshot and every photo
// deletion for it succeeded.
func (p *pass) applyUpload(ctx context.Context, snap model.Snapshot, resp model.ProgressResponse, deletesOK bool) error {
	live, ok, err := p.live(ctx, snap.RowID)
	if err != nil || !ok {
		return err
	}

	live.ServerKnown = true
	for slot, sent := range snap.Uploads {
		current := live.Photos[slot]
		url := resp.PhotoURL(slot)
		if url == "" || !current.HasUpload() || !bytes.Equal(current.Bytes(), sent) {
			continue
		}
		live.Photos[slot] = model.PresentSlot(nil, url)
	}

	if live.LastModified.Equal(snap.LastModified) && deletesOK {
		live.IsSynced = true
		live.ShouldDelete = false
	} else {
		p.logger.Debug("record changed during upload, leaving unsynced", "day", snap.Day)
	}
	return p.store.SaveRecord(ctx, live)
}

// markSynced handles a server-known snapshot with no metrics and no photo
// bytes whose photo deletions all succeeded. The deletions were its only
// pending change.
func (p *pass) markSynced(ctx context.Context, snap model.Snapshot) {
	live, ok, err := p.live(ctx, snap.RowID)
	if err != nil {
		p.fail(ErrCodeLocalStore, snap.Day, "", snap.RowID, err)
		return
	}
	if !ok || !live.LastModified.Equal(snap.LastModified) || live.IsSynced {
		return
	}
	live.IsSynced = true
	if err := p.store.SaveRecord(ctx, live); err != nil {
		p.fail(ErrCodeLocalStore, snap.Day, "", snap.RowID, err)
		return
	}
	p.report.MarkedSynced++
}

// live re-reads a record. ok is false if it was deleted meanwhile.
func (p *pass) live(ctx context.Context, rowID string) (model.ProgressRecord, bool, error) {
	rec, err := p.store.Record(ctx, rowID)
	if errors.Is(err, store.ErrRecordNotFound) {
		return model.ProgressRecord{}, false, nil
	}
	if err != nil {
		return model.ProgressRecord{}, false, err
	}
	return rec, true, nil
}
