package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/security"
	"stockbook/internal/domain/declaration"
)

// CompressionAlgo specifies the compression applied to a stored note.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// activityRow is the storage shape of one activity log entry.
type activityRow struct {
	ID             id.ID           `db:"id"`
	ShipmentID     id.ID           `db:"shipment_id"`
	Seq            int             `db:"seq"`
	Note           *string         `db:"note"`
	NoteCompressed []byte          `db:"note_compressed"`
	Compression    CompressionAlgo `db:"compression_algo"`
	CreatedBy      string          `db:"created_by"`
	CreatedAt      time.Time       `db:"created_at"`
}

// ActivityLog stores shipment activity notes. Notes above the
// compression threshold are zstd-compressed at rest.
type ActivityLog struct {
	txManager *TxManager
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder

	// compressThreshold in bytes, default 10KB
	compressThreshold int
}

var _ declaration.ActivityLog = (*ActivityLog)(nil)

// NewActivityLog creates the activity log store.
func NewActivityLog(txManager *TxManager) (*ActivityLog, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &ActivityLog{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Append inserts the next note for a shipment. Seq is assigned from the
// current maximum so entries stay densely ordered per shipment.
func (l *ActivityLog) Append(ctx context.Context, shipmentID id.ID, note string) (*declaration.ActivityNote, error) {
	entry := activityRow{
		ID:          id.New(),
		ShipmentID:  shipmentID,
		Compression: CompressionNone,
		CreatedBy:   security.GetActorID(ctx),
		CreatedAt:   time.Now().UTC(),
	}

	if len(note) > l.compressThreshold {
		entry.NoteCompressed = l.encoder.EncodeAll([]byte(note), nil)
		entry.Compression = CompressionZstd
	} else {
		entry.Note = &note
	}

	querier := l.txManager.GetQuerier(ctx)
	row := querier.QueryRow(ctx, `
		INSERT INTO shipment_activity (
			id, shipment_id, seq, note, note_compressed, compression_algo,
			created_by, created_at
		) VALUES (
			$1, $2,
			COALESCE((SELECT MAX(seq) FROM shipment_activity WHERE shipment_id = $2), 0) + 1,
			$3, $4, $5, $6, $7
		)
		RETURNING seq`,
		entry.ID, entry.ShipmentID, entry.Note, entry.NoteCompressed,
		entry.Compression, entry.CreatedBy, entry.CreatedAt,
	)
	if err := row.Scan(&entry.Seq); err != nil {
		return nil, apperror.NewDatabase(err)
	}

	return &declaration.ActivityNote{
		Seq:       entry.Seq,
		Note:      note,
		CreatedBy: entry.CreatedBy,
		CreatedAt: entry.CreatedAt,
	}, nil
}

// List returns the activity log of a shipment in insertion order.
func (l *ActivityLog) List(ctx context.Context, shipmentID id.ID) ([]*declaration.ActivityNote, error) {
	querier := l.txManager.GetQuerier(ctx)

	var rows []*activityRow
	err := pgxscan.Select(ctx, querier, &rows, `
		SELECT id, shipment_id, seq, note, note_compressed, compression_algo,
		       created_by, created_at
		FROM shipment_activity
		WHERE shipment_id = $1
		ORDER BY seq`,
		shipmentID,
	)
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}

	notes := make([]*declaration.ActivityNote, 0, len(rows))
	for _, r := range rows {
		text, err := l.noteText(r)
		if err != nil {
			return nil, err
		}
		notes = append(notes, &declaration.ActivityNote{
			Seq:       r.Seq,
			Note:      text,
			CreatedBy: r.CreatedBy,
			CreatedAt: r.CreatedAt,
		})
	}
	return notes, nil
}

func (l *ActivityLog) noteText(r *activityRow) (string, error) {
	if r.Compression == CompressionZstd {
		decoded, err := l.decoder.DecodeAll(r.NoteCompressed, nil)
		if err != nil {
			return "", apperror.NewInternal(fmt.Errorf("decompress activity note %s: %w", r.ID, err))
		}
		return string(decoded), nil
	}
	if r.Note != nil {
		return *r.Note, nil
	}
	return "", nil
}
