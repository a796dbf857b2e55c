package anki

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/aretw0/clozekit/pkg/core"
)

// rawModel is a note type as stored in col.models. Keys clozekit does not
// manage are kept untouched so the desktop application sees no difference.
type rawModel map[string]json.RawMessage

type modelView struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Type  int            `json:"type"`
	Mod   int64          `json:"mod"`
	Sortf int            `json:"sortf"`
	CSS   string         `json:"css"`
	Flds  []fieldView    `json:"flds"`
	Tmpls []templateView `json:"tmpls"`
}

type fieldView struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

type templateView struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
	Qfmt string `json:"qfmt"`
	Afmt string `json:"afmt"`
}

func decodeModels(data string) (map[core.NoteTypeID]rawModel, error) {
	var byKey map[string]rawModel
	if err := json.Unmarshal([]byte(data), &byKey); err != nil {
		return nil, fmt.Errorf("anki: decode models: %w", err)
	}
	out := make(map[core.NoteTypeID]rawModel, len(byKey))
	for key, m := range byKey {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("anki: model key %q: %w", key, err)
		}
		out[core.NoteTypeID(id)] = m
	}
	return out, nil
}

func encodeModels(models map[core.NoteTypeID]rawModel) (string, error) {
	byKey := make(map[string]rawModel, len(models))
	for id, m := range models {
		byKey[strconv.FormatInt(int64(id), 10)] = m
	}
	data, err := json.Marshal(byKey)
	if err != nil {
		return "", fmt.Errorf("anki: encode models: %w", err)
	}
	return string(data), nil
}

// noteType converts a stored model into the domain type.
func (m rawModel) noteType() (core.NoteType, error) {
	data, err := json.Marshal(map[string]json.RawMessage(m))
	if err != nil {
		return core.NoteType{}, err
	}
	var v modelView
	if err := json.Unmarshal(data, &v); err != nil {
		return core.NoteType{}, fmt.Errorf("anki: decode model: %w", err)
	}

	nt := core.NoteType{
		ID:        core.NoteTypeID(v.ID),
		Name:      v.Name,
		Kind:      core.Kind(v.Type),
		CSS:       v.CSS,
		SortField: v.Sortf,
		Modified:  v.Mod,
	}
	sort.Slice(v.Flds, func(i, j int) bool { return v.Flds[i].Ord < v.Flds[j].Ord })
	for _, f := range v.Flds {
		nt.Fields = append(nt.Fields, core.Field{Name: f.Name, Ord: f.Ord})
	}
	sort.Slice(v.Tmpls, func(i, j int) bool { return v.Tmpls[i].Ord < v.Tmpls[j].Ord })
	for _, t := range v.Tmpls {
		nt.Templates = append(nt.Templates, core.Template{Name: t.Name, Ord: t.Ord, QuestionFormat: t.Qfmt, AnswerFormat: t.Afmt})
	}
	return nt, nil
}

// applyNoteType returns a copy of m updated with nt. Field and template
// entries are matched by name so their display settings survive.
func (m rawModel) applyNoteType(nt core.NoteType, mod int64) rawModel {
	out := rawModel{}
	for k, v := range defaultModel() {
		out[k] = v
	}
	for k, v := range m {
		out[k] = v
	}

	oldFields := entriesByName(m["flds"])
	flds := make([]map[string]json.RawMessage, 0, len(nt.Fields))
	for _, f := range nt.Fields {
		entry := oldFields[f.Name]
		if entry == nil {
			entry = defaultField()
		}
		entry["name"] = mustRaw(f.Name)
		entry["ord"] = mustRaw(f.Ord)
		flds = append(flds, entry)
	}

	oldTemplates := entriesByName(m["tmpls"])
	tmpls := make([]map[string]json.RawMessage, 0, len(nt.Templates))
	for _, t := range nt.Templates {
		entry := oldTemplates[t.Name]
		if entry == nil {
			entry = defaultTemplate()
		}
		entry["name"] = mustRaw(t.Name)
		entry["ord"] = mustRaw(t.Ord)
		entry["qfmt"] = mustRaw(t.QuestionFormat)
		entry["afmt"] = mustRaw(t.AnswerFormat)
		tmpls = append(tmpls, entry)
	}

	out["id"] = mustRaw(int64(nt.ID))
	out["name"] = mustRaw(nt.Name)
	out["type"] = mustRaw(int(nt.Kind))
	out["mod"] = mustRaw(mod)
	out["usn"] = mustRaw(-1)
	out["sortf"] = mustRaw(nt.SortField)
	out["css"] = mustRaw(nt.CSS)
	out["flds"] = mustRaw(flds)
	out["tmpls"] = mustRaw(tmpls)
	out["req"] = mustRaw(requirements(nt))
	return out
}

func entriesByName(raw json.RawMessage) map[string]map[string]json.RawMessage {
	out := make(map[string]map[string]json.RawMessage)
	if len(raw) == 0 {
		return out
	}
	var entries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return out
	}
	for _, e := range entries {
		var name string
		if err := json.Unmarshal(e["name"], &name); err == nil {
			out[name] = e
		}
	}
	return out
}

func mustRaw(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

func defaultModel() rawModel {
	return rawModel{
		"did":       mustRaw(1),
		"latexPre":  mustRaw("\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n"),
		"latexPost": mustRaw("\\end{document}"),
		"latexsvg":  mustRaw(false),
		"tags":      mustRaw([]string{}),
		"vers":      mustRaw([]int{}),
	}
}

func defaultField() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"sticky": mustRaw(false),
		"rtl":    mustRaw(false),
		"font":   mustRaw("Arial"),
		"size":   mustRaw(20),
		"media":  mustRaw([]string{}),
	}
}

func defaultTemplate() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		"bqfmt": mustRaw(""),
		"bafmt": mustRaw(""),
		"did":   json.RawMessage("null"),
		"bfont": mustRaw(""),
		"bsize": mustRaw(0),
	}
}

var (
	// {{Field}}, {{text:Field}}, {{#Field}} ... {{/Field}}
	referenceRe = regexp.MustCompile(`\{\{([#^/]?)([^{}]+)\}\}`)
)

// referencedFields lists the ordinals of the fields a question format uses.
func referencedFields(nt core.NoteType, format string) []int {
	seen := make(map[int]bool)
	var ords []int
	for _, m := range referenceRe.FindAllStringSubmatch(format, -1) {
		if m[1] == "/" {
			continue
		}
		name := strings.TrimSpace(m[2])
		if i := strings.LastIndex(name, ":"); i >= 0 {
			name = name[i+1:]
		}
		idx, err := nt.FieldIndex(name)
		if err != nil || seen[idx] {
			continue
		}
		seen[idx] = true
		ords = append(ords, idx)
	}
	sort.Ints(ords)
	return ords
}

// requirements computes the "req" entry: each template needs any of the
// fields its question references.
func requirements(nt core.NoteType) [][]any {
	req := make([][]any, 0, len(nt.Templates))
	for _, t := range nt.Templates {
		ords := referencedFields(nt, t.QuestionFormat)
		if ords == nil {
			ords = []int{}
		}
		req = append(req, []any{t.Ord, "any", ords})
	}
	return req
}

// modelDeck returns the deck new cards of this model go to.
func (m rawModel) modelDeck() int64 {
	var did int64
	if err := json.Unmarshal(m["did"], &did); err != nil || did == 0 {
		return 1
	}
	return did
}
