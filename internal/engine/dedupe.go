package engine

import (
	"context"
	"fmt"

	"github.com/roach88/fitsync/internal/model"
)

// removeDuplicates keeps one record per day: the newest LastModified, the
// lowest row id on ties. The rest are deleted locally.
func (p *pass) removeDuplicates(ctx context.Context) error {
	records, err := p.store.Records(ctx)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	keep := make(map[int]model.ProgressRecord, len(records))
	for _, rec := range records {
		current, ok := keep[rec.Day]
		if !ok || newer(rec, current) {
			keep[rec.Day] = rec
		}
	}

	for _, rec := range records {
		if keep[rec.Day].RowID == rec.RowID {
			continue
		}
		if err := p.store.DeleteRecord(ctx, rec.RowID); err != nil {
			return fmt.Errorf("remove duplicate %s: %w", rec.RowID, err)
		}
		p.report.DuplicatesRemoved++
		p.logger.Info("removed duplicate record", "day", rec.Day, "row_id", rec.RowID, "kept", keep[rec.Day].RowID)
	}
	return nil
}

// newer reports whether a should survive over b.
func newer(a, b model.ProgressRecord) bool {
	if !a.LastModified.Equal(b.LastModified) {
		return a.LastModified.After(b.LastModified)
	}
	return a.RowID < b.RowID
}
