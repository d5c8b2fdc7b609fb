// Package promotion moves selected candidate cards into the card pool,
// then gates the change behind a before/after balance benchmark.
package promotion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/touatautology/card-battle-engine/internal/cardgen"
	"github.com/touatautology/card-battle-engine/internal/loader"
)

// IDConflictError reports a candidate whose ID already exists in the pool.
type IDConflictError struct {
	CardID string
}

func (e *IDConflictError) Error() string {
	return fmt.Sprintf("id conflict: card %q already exists in pool", e.CardID)
}

// PoolHash fingerprints a card pool: the first 16 hex chars of the SHA-256
// of its canonical JSON form.
func PoolHash(specs []loader.CardSpec) string {
	canonical, _ := json.Marshal(specs)
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:8])
}

// Patch records exactly what a promotion changed.
type Patch struct {
	BasePoolHash     string            `json:"base_pool_hash"`
	NewPoolHash      string            `json:"new_pool_hash"`
	Added            []loader.CardSpec `json:"added"`
	SkippedConflicts []string          `json:"skipped_conflicts"`
}

// Apply adds up to maxPromotions selected candidates to the pool. A
// conflicting ID either fails the run or is skipped, per onConflict
// ("fail" or "skip").
func Apply(before []loader.CardSpec, selected []*cardgen.AdoptionReport, maxPromotions int, onConflict string) ([]loader.CardSpec, *Patch, error) {
	existing := make(map[string]bool, len(before))
	for _, c := range before {
		existing[c.ID] = true
	}

	after := append([]loader.CardSpec(nil), before...)
	patch := &Patch{
		BasePoolHash:     PoolHash(before),
		Added:            []loader.CardSpec{},
		SkippedConflicts: []string{},
	}

	n := maxPromotions
	if n > len(selected) {
		n = len(selected)
	}
	for _, report := range selected[:n] {
		cid := report.Candidate.ID
		if existing[cid] {
			if onConflict == "fail" {
				return nil, nil, &IDConflictError{CardID: cid}
			}
			patch.SkippedConflicts = append(patch.SkippedConflicts, cid)
			continue
		}
		spec := report.Candidate.Spec()
		after = append(after, spec)
		patch.Added = append(patch.Added, spec)
		existing[cid] = true
	}

	patch.NewPoolHash = PoolHash(after)
	return after, patch, nil
}
