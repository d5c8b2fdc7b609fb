package sim

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// MatchRow is the columnar form of a match record, one row per match.
type MatchRow struct {
	RunID   string `parquet:"run_id,dict"`
	MatchID int64  `parquet:"match_id"`
	Seed    int64  `parquet:"seed"`
	DeckA   string `parquet:"deck_a,dict"`
	DeckB   string `parquet:"deck_b,dict"`
	Winner  string `parquet:"winner,dict"`
	Reason  string `parquet:"reason,dict"`
	Turns   int32  `parquet:"turns"`
	P0HP    int32  `parquet:"p0_hp"`
	P1HP    int32  `parquet:"p1_hp"`
}

// Rows flattens a batch result for the parquet export.
func Rows(res *BatchResult) []MatchRow {
	rows := make([]MatchRow, len(res.Records))
	for i, rec := range res.Records {
		rows[i] = MatchRow{
			RunID:   res.RunID,
			MatchID: int64(rec.MatchID),
			Seed:    rec.Seed,
			DeckA:   rec.DeckA,
			DeckB:   rec.DeckB,
			Winner:  rec.Winner,
			Reason:  rec.Reason,
			Turns:   int32(rec.Turns),
			P0HP:    int32(rec.FinalHP[0]),
			P1HP:    int32(rec.FinalHP[1]),
		}
	}
	return rows
}

// WriteParquet writes rows to path. The file is written to a temp name in the
// same directory and renamed into place so readers never see a partial file.
func WriteParquet(path string, rows []MatchRow) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[MatchRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	if _, err := w.Write(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("close parquet writer: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close parquet file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}
