package word

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vapmail16/synonym-quest-sub000/internal/word/entity"
)

// Sheet layout: A word | B synonyms | C difficulty | D meaning | E category | F tags.
// Synonyms are comma separated, optionally typed as "fast:exact".
// The first row is a header.
const (
	colWord = iota
	colSynonyms
	colDifficulty
	colMeaning
	colCategory
	colTags
)

// ImportResult summarises an import run.
type ImportResult struct {
	TotalProcessed int      `json:"totalProcessed"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	Errors         []string `json:"errors"`
}

// ParseWorkbook reads rows from the first sheet (or sheet, when set).
func ParseWorkbook(r io.Reader, sheet string) ([]Input, []string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	var inputs []Input
	var problems []string
	for i, row := range rows {
		if i == 0 {
			continue
		}
		in, err := parseRow(row)
		if err != nil {
			problems = append(problems, fmt.Sprintf("row %d: %v", i+1, err))
			continue
		}
		if in == nil {
			continue
		}
		inputs = append(inputs, *in)
	}
	return inputs, problems, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseRow(row []string) (*Input, error) {
	text := cell(row, colWord)
	if text == "" {
		return nil, nil
	}
	in := &Input{Word: &text}
	for _, part := range strings.Split(cell(row, colSynonyms), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		syn := entity.Synonym{Synonym: part, Type: entity.SynonymSimilar}
		if i := strings.LastIndex(part, ":"); i > 0 {
			syn.Synonym = strings.TrimSpace(part[:i])
			syn.Type = entity.SynonymType(strings.ToLower(strings.TrimSpace(part[i+1:])))
			if !syn.Type.Valid() {
				return nil, fmt.Errorf("synonym %q has unknown type", part)
			}
		}
		in.Synonyms = append(in.Synonyms, syn)
	}
	if d := strings.ToLower(cell(row, colDifficulty)); d != "" {
		in.Difficulty = &d
	}
	if m := cell(row, colMeaning); m != "" {
		in.Meaning = &m
	}
	if c := cell(row, colCategory); c != "" {
		in.Category = &c
	}
	if t := cell(row, colTags); t != "" {
		in.Tags = strings.Split(t, ",")
	}
	return in, nil
}

// Import creates new words and merges synonyms into existing ones.
func (s *Service) Import(ctx context.Context, inputs []Input) (*ImportResult, error) {
	res := &ImportResult{Errors: []string{}}
	for _, in := range inputs {
		res.TotalProcessed++
		if in.Word == nil || strings.TrimSpace(*in.Word) == "" {
			res.Skipped++
			continue
		}
		existing, err := s.repo.GetByText(ctx, strings.TrimSpace(*in.Word))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := s.Create(ctx, in); err != nil {
				res.Skipped++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", *in.Word, err))
				continue
			}
			res.Created++
		case err != nil:
			return res, err
		default:
			in.Synonyms = append(append([]entity.Synonym{}, existing.Synonyms...), in.Synonyms...)
			if _, err := s.Update(ctx, existing.ID, in); err != nil {
				res.Skipped++
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", *in.Word, err))
				continue
			}
			res.Updated++
		}
	}
	return res, nil
}
