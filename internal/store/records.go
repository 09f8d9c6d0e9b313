package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fitsync/internal/model"
)

// recordRow is the column mapping for progress_records.
type recordRow struct {
	RowID        string          `db:"row_id"`
	Day          int             `db:"day"`
	PullUps      sql.NullInt64   `db:"pullups"`
	PushUps      sql.NullInt64   `db:"pushups"`
	Squats       sql.NullInt64   `db:"squats"`
	Weight       sql.NullFloat64 `db:"weight"`
	FrontState   string          `db:"front_state"`
	FrontBytes   []byte          `db:"front_bytes"`
	FrontURL     sql.NullString  `db:"front_url"`
	BackState    string          `db:"back_state"`
	BackBytes    []byte          `db:"back_bytes"`
	BackURL      sql.NullString  `db:"back_url"`
	SideState    string          `db:"side_state"`
	SideBytes    []byte          `db:"side_bytes"`
	SideURL      sql.NullString  `db:"side_url"`
	LastModified int64           `db:"last_modified"`
	IsSynced     bool            `db:"is_synced"`
	ShouldDelete bool            `db:"should_delete"`
	ServerKnown  bool            `db:"server_known"`
}

const recordColumns = `row_id, day, pullups, pushups, squats, weight,
	front_state, front_bytes, front_url,
	back_state, back_bytes, back_url,
	side_state, side_bytes, side_url,
	last_modified, is_synced, should_delete, server_known`

// Records returns every progress record ordered by day, newest first within
// a day, then by row id.
func (s *Store) Records(ctx context.Context) ([]model.ProgressRecord, error) {
	var rows []recordRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+recordColumns+`
		FROM progress_records
		ORDER BY day ASC, last_modified DESC, row_id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return toRecords(rows)
}

// Record returns the record stored under rowID.
func (s *Store) Record(ctx context.Context, rowID string) (model.ProgressRecord, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+recordColumns+`
		FROM progress_records
		WHERE row_id = ?
	`, rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProgressRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return model.ProgressRecord{}, fmt.Errorf("get record %s: %w", rowID, err)
	}
	return row.toModel()
}

// RecordForDay returns the most recently modified record for an internal day.
func (s *Store) RecordForDay(ctx context.Context, day int) (model.ProgressRecord, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, `
		SELECT `+recordColumns+`
		FROM progress_records
		WHERE day = ?
		ORDER BY last_modified DESC, row_id ASC COLLATE BINARY
		LIMIT 1
	`, day)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProgressRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return model.ProgressRecord{}, fmt.Errorf("get record for day %d: %w", day, err)
	}
	return row.toModel()
}

// SaveRecord inserts rec or replaces the row with the same row id.
func (s *Store) SaveRecord(ctx context.Context, rec model.ProgressRecord) error {
	row, err := fromModel(rec)
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.RowID, err)
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO progress_records (`+recordColumns+`)
		VALUES (:row_id, :day, :pullups, :pushups, :squats, :weight,
			:front_state, :front_bytes, :front_url,
			:back_state, :back_bytes, :back_url,
			:side_state, :side_bytes, :side_url,
			:last_modified, :is_synced, :should_delete, :server_known)
		ON CONFLICT(row_id) DO UPDATE SET
			day = excluded.day,
			pullups = excluded.pullups,
			pushups = excluded.pushups,
			squats = excluded.squats,
			weight = excluded.weight,
			front_state = excluded.front_state,
			front_bytes = excluded.front_bytes,
			front_url = excluded.front_url,
			back_state = excluded.back_state,
			back_bytes = excluded.back_bytes,
			back_url = excluded.back_url,
			side_state = excluded.side_state,
			side_bytes = excluded.side_bytes,
			side_url = excluded.side_url,
			last_modified = excluded.last_modified,
			is_synced = excluded.is_synced,
			should_delete = excluded.should_delete,
			server_known = excluded.server_known
	`, row)
	if err != nil {
		return fmt.Errorf("save record %s: %w", rec.RowID, err)
	}
	return nil
}

// DeleteRecord removes the row. Deleting a missing row is not an error.
func (s *Store) DeleteRecord(ctx context.Context, rowID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM progress_records WHERE row_id = ?`, rowID); err != nil {
		return fmt.Errorf("delete record %s: %w", rowID, err)
	}
	return nil
}

func toRecords(rows []recordRow) ([]model.ProgressRecord, error) {
	out := make([]model.ProgressRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r recordRow) toModel() (model.ProgressRecord, error) {
	rec := model.ProgressRecord{
		RowID: r.RowID,
		Day:   r.Day,
		Metrics: model.Metrics{
			PullUps: nullInt(r.PullUps),
			PushUps: nullInt(r.PushUps),
			Squats:  nullInt(r.Squats),
		},
		LastModified: time.Unix(0, r.LastModified).UTC(),
		IsSynced:     r.IsSynced,
		ShouldDelete: r.ShouldDelete,
		ServerKnown:  r.ServerKnown,
	}
	if r.Weight.Valid {
		rec.Metrics.Weight = model.Float(r.Weight.Float64)
	}

	slots := [3]struct {
		state string
		data  []byte
		url   sql.NullString
	}{
		{r.FrontState, r.FrontBytes, r.FrontURL},
		{r.BackState, r.BackBytes, r.BackURL},
		{r.SideState, r.SideBytes, r.SideURL},
	}
	for i, col := range slots {
		state, err := model.ParsePhotoState(col.state)
		if err != nil {
			return model.ProgressRecord{}, fmt.Errorf("record %s slot %s: %w", r.RowID, model.Slot(i), err)
		}
		switch state {
		case model.PhotoTombstoned:
			rec.Photos[i] = model.TombstonedSlot()
		case model.PhotoPresent:
			rec.Photos[i] = model.PresentSlot(col.data, col.url.String)
		default:
			rec.Photos[i] = model.EmptySlot()
		}
	}
	return rec, nil
}

func fromModel(rec model.ProgressRecord) (recordRow, error) {
	if rec.RowID == "" {
		return recordRow{}, errors.New("empty row id")
	}
	row := recordRow{
		RowID:        rec.RowID,
		Day:          rec.Day,
		PullUps:      toNullInt(rec.Metrics.PullUps),
		PushUps:      toNullInt(rec.Metrics.PushUps),
		Squats:       toNullInt(rec.Metrics.Squats),
		LastModified: rec.LastModified.UnixNano(),
		IsSynced:     rec.IsSynced,
		ShouldDelete: rec.ShouldDelete,
		ServerKnown:  rec.ServerKnown,
	}
	if rec.Metrics.Weight != nil {
		row.Weight = sql.NullFloat64{Float64: *rec.Metrics.Weight, Valid: true}
	}

	front, back, side := rec.Photos[model.SlotFront], rec.Photos[model.SlotBack], rec.Photos[model.SlotSide]
	row.FrontState, row.FrontBytes, row.FrontURL = slotColumns(front)
	row.BackState, row.BackBytes, row.BackURL = slotColumns(back)
	row.SideState, row.SideBytes, row.SideURL = slotColumns(side)
	return row, nil
}

func slotColumns(p model.PhotoSlot) (string, []byte, sql.NullString) {
	url := sql.NullString{String: p.URL(), Valid: p.URL() != ""}
	return p.State().String(), p.Bytes(), url
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	return model.Int(int(v.Int64))
}

func toNullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
