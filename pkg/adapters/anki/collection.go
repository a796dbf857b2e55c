// Package anki implements core.Collection on top of the desktop
// application's SQLite collection file (collection.anki2).
//
// Only the records clozekit edits are touched: note fields and tags, note
// types in col.models, and the cards a note type change adds or removes.
// Every write marks the rows with usn -1 so the next sync uploads them.
package anki

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aretw0/clozekit/pkg/cloze"
	"github.com/aretw0/clozekit/pkg/core"
	"github.com/aretw0/clozekit/pkg/query"
)

// fieldSeparator joins field values in notes.flds.
const fieldSeparator = "\x1f"

// ErrUnsupportedSchema is returned for collections not using schema 11.
var ErrUnsupportedSchema = errors.New("anki: unsupported collection schema")

// Config holds the configuration of the SQLite collection.
type Config struct {
	Path   string
	Logger *slog.Logger
	// BusyTimeout is how long to wait while the desktop application holds
	// the database lock. Zero means 5s.
	BusyTimeout time.Duration
	// Clock returns the current time; nil uses time.Now.
	Clock func() time.Time
}

// Collection is a SQLite-backed core.Collection.
type Collection struct {
	db     *sql.DB
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	models  map[core.NoteTypeID]rawModel
	written int
}

// Open opens an existing collection file.
func Open(ctx context.Context, config Config) (*Collection, error) {
	if _, err := os.Stat(config.Path); err != nil {
		return nil, fmt.Errorf("anki: collection not found: %w", err)
	}
	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("anki: open database: %w", err)
	}
	// The desktop application expects a single writer.
	db.SetMaxOpenConns(1)

	timeout := config.BusyTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	pragma := fmt.Sprintf("PRAGMA busy_timeout = %d", timeout.Milliseconds())
	if _, err := db.ExecContext(ctx, pragma); err != nil {
		db.Close()
		return nil, fmt.Errorf("anki: pragma %q: %w", pragma, err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}

	c := &Collection{db: db, config: config, logger: logger, now: now}
	if err := c.load(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Collection) load(ctx context.Context) error {
	var ver int
	var models string
	err := c.db.QueryRowContext(ctx, "SELECT ver, models FROM col").Scan(&ver, &models)
	if err != nil {
		return fmt.Errorf("anki: read col: %w", err)
	}
	if ver != SchemaVersion {
		return fmt.Errorf("%w: version %d, expected %d", ErrUnsupportedSchema, ver, SchemaVersion)
	}
	decoded, err := decodeModels(models)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.models = decoded
	c.mu.Unlock()
	c.logger.Debug("collection opened", "path", c.config.Path, "note_types", len(decoded))
	return nil
}

// Close implements core.Collection.
func (c *Collection) Close() error {
	return c.db.Close()
}

// FindNotes implements core.Collection. The query is evaluated over every
// note of the collection.
func (c *Collection) FindNotes(ctx context.Context, search string) ([]core.NoteID, error) {
	q, err := query.Parse(search)
	if err != nil {
		return nil, err
	}

	queues, err := c.cardQueues(ctx, 0)
	if err != nil {
		return nil, err
	}

	rows, err := c.db.QueryContext(ctx, "SELECT id, mid, mod, tags, flds FROM notes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("anki: list notes: %w", err)
	}
	defer rows.Close()

	types := make(map[core.NoteTypeID]core.NoteType)
	var ids []core.NoteID
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		nt, ok := types[n.TypeID]
		if !ok {
			nt, err = c.NoteType(ctx, n.TypeID)
			if err != nil {
				return nil, err
			}
			types[n.TypeID] = nt
		}
		n.CardQueues = queues[n.ID]
		if q.Match(nt, n) {
			ids = append(ids, n.ID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (core.Note, error) {
	var (
		id, mid, mod int64
		tags, flds   string
	)
	if err := row.Scan(&id, &mid, &mod, &tags, &flds); err != nil {
		return core.Note{}, err
	}
	return core.Note{
		ID:       core.NoteID(id),
		TypeID:   core.NoteTypeID(mid),
		Modified: mod,
		Tags:     strings.Fields(tags),
		Fields:   strings.Split(flds, fieldSeparator),
	}, nil
}

// cardQueues returns the queue of each card by note, ordered by ordinal.
// A zero nid loads every note.
func (c *Collection) cardQueues(ctx context.Context, nid core.NoteID) (map[core.NoteID][]int, error) {
	stmt := "SELECT nid, queue FROM cards ORDER BY nid, ord"
	args := []any{}
	if nid != 0 {
		stmt = "SELECT nid, queue FROM cards WHERE nid = ? ORDER BY ord"
		args = append(args, int64(nid))
	}
	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("anki: list cards: %w", err)
	}
	defer rows.Close()

	out := make(map[core.NoteID][]int)
	for rows.Next() {
		var id int64
		var queue int
		if err := rows.Scan(&id, &queue); err != nil {
			return nil, err
		}
		out[core.NoteID(id)] = append(out[core.NoteID(id)], queue)
	}
	return out, rows.Err()
}

// GetNote implements core.Collection.
func (c *Collection) GetNote(ctx context.Context, id core.NoteID) (core.Note, error) {
	row := c.db.QueryRowContext(ctx, "SELECT id, mid, mod, tags, flds FROM notes WHERE id = ?", int64(id))
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Note{}, fmt.Errorf("%w: %d", core.ErrNoteNotFound, id)
	}
	if err != nil {
		return core.Note{}, fmt.Errorf("anki: read note %d: %w", id, err)
	}
	queues, err := c.cardQueues(ctx, id)
	if err != nil {
		return core.Note{}, err
	}
	n.CardQueues = queues[id]
	return n, nil
}

// UpdateNotes implements core.Collection. Cards required by the new field
// content are generated.
func (c *Collection) UpdateNotes(ctx context.Context, notes []core.Note) error {
	if len(notes) == 0 {
		return nil
	}
	now := c.now()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("anki: begin tx: %w", err)
	}
	defer tx.Rollback()

	cards, err := newCardWriter(ctx, tx, now.UnixMilli())
	if err != nil {
		return err
	}

	generated := 0
	for _, n := range notes {
		var mid int64
		err := tx.QueryRowContext(ctx, "SELECT mid FROM notes WHERE id = ?", int64(n.ID)).Scan(&mid)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", core.ErrNoteNotFound, n.ID)
		}
		if err != nil {
			return fmt.Errorf("anki: read note %d: %w", n.ID, err)
		}
		nt, raw, err := c.model(core.NoteTypeID(mid))
		if err != nil {
			return err
		}

		fields := padFields(n.Fields, len(nt.Fields))
		if err := writeNote(ctx, tx, n.ID, nt, fields, n.Tags, now.Unix()); err != nil {
			return err
		}
		added, err := cards.generate(ctx, nt, n.ID, fields, raw.modelDeck())
		if err != nil {
			return err
		}
		generated += added
	}

	if err := touchCollection(ctx, tx, now, false); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("anki: commit: %w", err)
	}

	c.mu.Lock()
	c.written += len(notes)
	c.mu.Unlock()
	c.logger.Debug("notes updated", "notes", len(notes), "cards_generated", generated)
	return nil
}

func writeNote(ctx context.Context, tx *sql.Tx, id core.NoteID, nt core.NoteType, fields, tags []string, mod int64) error {
	sortValue, checksum := sortField(nt, fields)
	_, err := tx.ExecContext(ctx,
		`UPDATE notes SET mid = ?, flds = ?, tags = ?, sfld = ?, csum = ?, mod = ?, usn = -1 WHERE id = ?`,
		int64(nt.ID), strings.Join(fields, fieldSeparator), joinTags(tags), sortValue, checksum, mod, int64(id),
	)
	if err != nil {
		return fmt.Errorf("anki: update note %d: %w", id, err)
	}
	return nil
}

func padFields(fields []string, size int) []string {
	out := append([]string(nil), fields...)
	for len(out) < size {
		out = append(out, "")
	}
	if len(out) > size && size > 0 {
		out = out[:size]
	}
	return out
}

// joinTags renders tags the way the application stores them: space
// separated with a leading and trailing space.
func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

// sortField returns the stripped sort field and its checksum: the first
// 8 hex digits of its SHA-1 as an integer.
func sortField(nt core.NoteType, fields []string) (string, int64) {
	idx := nt.SortField
	if idx < 0 || idx >= len(fields) {
		idx = 0
	}
	value := ""
	if idx < len(fields) {
		value = cloze.Text(fields[idx])
	}
	sum := sha1.Sum([]byte(value))
	checksum, _ := strconv.ParseInt(hex.EncodeToString(sum[:])[:8], 16, 64)
	return value, checksum
}

func touchCollection(ctx context.Context, tx *sql.Tx, now time.Time, schemaChanged bool) error {
	stmt := "UPDATE col SET mod = ?"
	args := []any{now.UnixMilli()}
	if schemaChanged {
		stmt += ", scm = ?"
		args = append(args, now.UnixMilli())
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("anki: touch col: %w", err)
	}
	return nil
}

func (c *Collection) model(id core.NoteTypeID) (core.NoteType, rawModel, error) {
	c.mu.RLock()
	raw, ok := c.models[id]
	c.mu.RUnlock()
	if !ok {
		return core.NoteType{}, nil, fmt.Errorf("%w: %d", core.ErrNoteTypeNotFound, id)
	}
	nt, err := raw.noteType()
	if err != nil {
		return core.NoteType{}, nil, err
	}
	return nt, raw, nil
}

// NoteType implements core.Collection.
func (c *Collection) NoteType(ctx context.Context, id core.NoteTypeID) (core.NoteType, error) {
	nt, _, err := c.model(id)
	return nt, err
}

// NoteTypeByName implements core.Collection. Ties resolve to the oldest ID.
func (c *Collection) NoteTypeByName(ctx context.Context, name string) (core.NoteType, error) {
	for _, id := range c.typeIDs() {
		nt, err := c.NoteType(ctx, id)
		if err != nil {
			return core.NoteType{}, err
		}
		if nt.Name == name {
			return nt, nil
		}
	}
	return core.NoteType{}, fmt.Errorf("%w: %q", core.ErrNoteTypeNotFound, name)
}

// NoteTypes lists every note type ordered by ID.
func (c *Collection) NoteTypes(ctx context.Context) ([]core.NoteType, error) {
	var out []core.NoteType
	for _, id := range c.typeIDs() {
		nt, err := c.NoteType(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, nt)
	}
	return out, nil
}

func (c *Collection) typeIDs() []core.NoteTypeID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]core.NoteTypeID, 0, len(c.models))
	for id := range c.models {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SaveNoteType implements core.Collection. New note types get an ID derived
// from the current time. Adding fields to an existing type extends its
// notes and marks the schema as modified.
func (c *Collection) SaveNoteType(ctx context.Context, nt *core.NoteType) error {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if nt.ID == 0 {
		id := core.NoteTypeID(now.UnixMilli())
		for {
			if _, taken := c.models[id]; !taken {
				break
			}
			id++
		}
		nt.ID = id
	}

	old, existed := c.models[nt.ID]
	schemaChanged := !existed
	if existed {
		prev, err := old.noteType()
		if err != nil {
			return err
		}
		schemaChanged = len(prev.Fields) != len(nt.Fields) || len(prev.Templates) != len(nt.Templates)
	}

	nt.Modified = now.Unix()
	models := make(map[core.NoteTypeID]rawModel, len(c.models)+1)
	for id, m := range c.models {
		models[id] = m
	}
	models[nt.ID] = old.applyNoteType(*nt, nt.Modified)

	encoded, err := encodeModels(models)
	if err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("anki: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "UPDATE col SET models = ?", encoded); err != nil {
		return fmt.Errorf("anki: save models: %w", err)
	}
	if existed {
		if err := resizeNotes(ctx, tx, *nt, now.Unix()); err != nil {
			return err
		}
	}
	if err := touchCollection(ctx, tx, now, schemaChanged); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("anki: commit: %w", err)
	}

	c.models = models
	c.logger.Debug("note type saved", "note_type", nt.Name, "id", nt.ID, "schema_changed", schemaChanged)
	return nil
}

// resizeNotes pads or trims the notes of nt to its field count.
func resizeNotes(ctx context.Context, tx *sql.Tx, nt core.NoteType, mod int64) error {
	rows, err := tx.QueryContext(ctx, "SELECT id, flds FROM notes WHERE mid = ?", int64(nt.ID))
	if err != nil {
		return fmt.Errorf("anki: list notes of %q: %w", nt.Name, err)
	}
	type pending struct {
		id     core.NoteID
		fields []string
	}
	var todo []pending
	for rows.Next() {
		var id int64
		var flds string
		if err := rows.Scan(&id, &flds); err != nil {
			rows.Close()
			return err
		}
		fields := strings.Split(flds, fieldSeparator)
		if len(fields) != len(nt.Fields) {
			todo = append(todo, pending{id: core.NoteID(id), fields: padFields(fields, len(nt.Fields))})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range todo {
		_, err := tx.ExecContext(ctx, "UPDATE notes SET flds = ?, mod = ?, usn = -1 WHERE id = ?",
			strings.Join(p.fields, fieldSeparator), mod, int64(p.id))
		if err != nil {
			return fmt.Errorf("anki: resize note %d: %w", p.id, err)
		}
	}
	return nil
}

// ChangeNoteType implements core.Collection. Cards keep their ordinal;
// those beyond the templates of a standard target are deleted.
func (c *Collection) ChangeNoteType(ctx context.Context, from core.NoteType, ids []core.NoteID, to core.NoteType, fieldMap map[int]int) error {
	target, raw, err := c.model(to.ID)
	if err != nil {
		return err
	}
	now := c.now()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("anki: begin tx: %w", err)
	}
	defer tx.Rollback()

	cards, err := newCardWriter(ctx, tx, now.UnixMilli())
	if err != nil {
		return err
	}

	dropped, generated := 0, 0
	for _, id := range ids {
		n, err := scanNote(tx.QueryRowContext(ctx, "SELECT id, mid, mod, tags, flds FROM notes WHERE id = ?", int64(id)))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", core.ErrNoteNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("anki: read note %d: %w", id, err)
		}
		if n.TypeID != from.ID {
			return fmt.Errorf("%w: note %d is not a %q note", core.ErrMixedNoteTypes, id, from.Name)
		}

		fields := remapFields(n.Fields, len(target.Fields), fieldMap)
		if err := writeNote(ctx, tx, id, target, fields, n.Tags, now.Unix()); err != nil {
			return err
		}
		if !target.IsCloze() {
			d, err := cards.dropBeyond(ctx, id, len(target.Templates))
			if err != nil {
				return err
			}
			dropped += d
		}
		g, err := cards.generate(ctx, target, id, fields, raw.modelDeck())
		if err != nil {
			return err
		}
		generated += g
	}

	if err := touchCollection(ctx, tx, now, true); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("anki: commit: %w", err)
	}

	c.mu.Lock()
	c.written += len(ids)
	c.mu.Unlock()
	c.logger.Info("note type changed", "from", from.Name, "to", target.Name, "notes", len(ids),
		"cards_dropped", dropped, "cards_generated", generated)
	return nil
}

func remapFields(old []string, size int, fieldMap map[int]int) []string {
	fields := make([]string, size)
	for src, dst := range fieldMap {
		if src < len(old) && dst >= 0 && dst < size {
			fields[dst] = old[src]
		}
	}
	return fields
}

var (
	_ core.Collection = (*Collection)(nil)
	_ core.TypeLister = (*Collection)(nil)
)
