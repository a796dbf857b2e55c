package anki

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
)

const (
	graveCard = 0

	cardTypeNew  = 0
	cardQueueNew = 0
)

// wantedOrds lists the card ordinals a note should have: one per template
// whose question references a non-empty field, or one per cloze number for
// cloze types.
func wantedOrds(nt core.NoteType, fields []string) []int {
	if nt.IsCloze() {
		seen := make(map[int]bool)
		var ords []int
		for _, value := range fields {
			for _, marker := range cloze.Markers(value) {
				n, err := strconv.Atoi(marker[1:])
				if err != nil || n < 1 || seen[n-1] {
					continue
				}
				seen[n-1] = true
				ords = append(ords, n-1)
			}
		}
		return ords
	}

	var ords []int
	for _, t := range nt.Templates {
		for _, idx := range referencedFields(nt, t.QuestionFormat) {
			if idx < len(fields) && cloze.Text(fields[idx]) != "" {
				ords = append(ords, t.Ord)
				break
			}
		}
	}
	return ords
}

type cardWriter struct {
	tx     *sql.Tx
	now    int64
	nextID int64
}

func newCardWriter(ctx context.Context, tx *sql.Tx, nowMillis int64) (*cardWriter, error) {
	var max sql.NullInt64
	if err := tx.QueryRowContext(ctx, "SELECT max(id) FROM cards").Scan(&max); err != nil {
		return nil, fmt.Errorf("anki: next card id: %w", err)
	}
	next := nowMillis
	if max.Valid && max.Int64 >= next {
		next = max.Int64 + 1
	}
	return &cardWriter{tx: tx, now: nowMillis / 1000, nextID: next}, nil
}

// existing returns the ordinal to deck mapping of a note's cards.
func (w *cardWriter) existing(ctx context.Context, nid core.NoteID) (map[int]int64, error) {
	rows, err := w.tx.QueryContext(ctx, "SELECT ord, did FROM cards WHERE nid = ?", int64(nid))
	if err != nil {
		return nil, fmt.Errorf("anki: list cards: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int64)
	for rows.Next() {
		var ord int
		var did int64
		if err := rows.Scan(&ord, &did); err != nil {
			return nil, err
		}
		out[ord] = did
	}
	return out, rows.Err()
}

// generate adds the missing cards of a note and returns how many it added.
func (w *cardWriter) generate(ctx context.Context, nt core.NoteType, nid core.NoteID, fields []string, deck int64) (int, error) {
	have, err := w.existing(ctx, nid)
	if err != nil {
		return 0, err
	}
	for _, did := range have {
		deck = did
		break
	}

	added := 0
	for _, ord := range wantedOrds(nt, fields) {
		if _, ok := have[ord]; ok {
			continue
		}
		_, err := w.tx.ExecContext(ctx,
			`INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due, ivl, factor, reps, lapses, left, odue, odid, flags, data)
			 VALUES (?, ?, ?, ?, ?, -1, ?, ?, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`,
			w.nextID, int64(nid), deck, ord, w.now, cardTypeNew, cardQueueNew, int64(nid),
		)
		if err != nil {
			return added, fmt.Errorf("anki: insert card: %w", err)
		}
		w.nextID++
		added++
	}
	return added, nil
}

// dropBeyond removes the cards of a note whose ordinal has no template
// any more, leaving graves for sync.
func (w *cardWriter) dropBeyond(ctx context.Context, nid core.NoteID, templates int) (int, error) {
	rows, err := w.tx.QueryContext(ctx, "SELECT id FROM cards WHERE nid = ? AND ord >= ?", int64(nid), templates)
	if err != nil {
		return 0, fmt.Errorf("anki: list stale cards: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if _, err := w.tx.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", id); err != nil {
			return 0, fmt.Errorf("anki: delete card: %w", err)
		}
		if _, err := w.tx.ExecContext(ctx, "INSERT INTO graves (usn, oid, type) VALUES (-1, ?, ?)", id, graveCard); err != nil {
			return 0, fmt.Errorf("anki: record grave: %w", err)
		}
	}
	return len(ids), nil
}
