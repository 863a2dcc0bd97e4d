package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/agenthands/lorekeeper/internal/core/model"
	"github.com/agenthands/lorekeeper/internal/store"
)

const pageSize = 500

type Format string

const (
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat accepts csv, text and txt, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "text", "txt":
		return FormatText, nil
	}
	return "", eris.Errorf("export: unknown format %q", s)
}

type Lister interface {
	ListFacts(ctx context.Context, profileID string, filter store.FactFilter) ([]model.Fact, error)
}

// Row is one CSV record.
type Row struct {
	ID           string    `csv:"id"`
	Content      string    `csv:"content"`
	Type         string    `csv:"type"`
	Importance   int       `csv:"importance"`
	Confidence   int       `csv:"confidence"`
	SupportCount int       `csv:"support_count"`
	Status       string    `csv:"status"`
	IsProtected  bool      `csv:"is_protected"`
	Source       string    `csv:"source"`
	CreatedAt    time.Time `csv:"created_at"`
}

// ActiveFacts pages through every ACTIVE fact of the profile, most important
// first and newest first within the same importance.
func ActiveFacts(ctx context.Context, repo Lister, profileID string) ([]model.Fact, error) {
	var all []model.Fact
	for offset := 0; ; offset += pageSize {
		page, err := repo.ListFacts(ctx, profileID, store.FactFilter{
			Status: model.StatusActive,
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, eris.Wrapf(err, "export: list facts for profile %s", profileID)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// WriteCSV writes facts newest first, whatever order they arrive in.
func WriteCSV(w io.Writer, facts []model.Fact) error {
	rows := make([]Row, 0, len(facts))
	for _, f := range newestFirst(facts) {
		rows = append(rows, Row{
			ID:           f.ID,
			Content:      f.Content,
			Type:         f.Type,
			Importance:   f.Importance,
			Confidence:   f.Confidence,
			SupportCount: f.SupportCount,
			Status:       string(f.Status),
			IsProtected:  f.IsProtected,
			Source:       f.Source,
			CreatedAt:    f.CreatedAt.UTC(),
		})
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(Row{}); err != nil {
			return eris.Wrap(err, "export: encode header")
		}
	} else if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "export: encode rows")
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func newestFirst(facts []model.Fact) []model.Fact {
	out := slices.Clone(facts)
	slices.SortStableFunc(out, func(a, b model.Fact) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// WriteText renders facts as a numbered plain-text digest meant to be pasted
// into a model prompt.
func WriteText(w io.Writer, facts []model.Fact, now time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "NICKY MEMORY EXPORT - %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "TOTAL MEMORIES: %d\n", len(facts))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for i, f := range facts {
		fmt.Fprintf(&b, "MEMORY #%d\n", i+1)
		fmt.Fprintf(&b, "Type: %s\n", f.Type)
		fmt.Fprintf(&b, "Importance: %d/5\n", f.Importance)
		fmt.Fprintf(&b, "Confidence: %d\n", f.Confidence)
		fmt.Fprintf(&b, "Source: %s\n", f.Source)
		fmt.Fprintf(&b, "Date: %s\n", f.CreatedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(&b, "Content: %s\n", f.Content)
		b.WriteString(strings.Repeat("-", 30) + "\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "export: write text")
}

// Write exports the profile's active facts in the given format.
func Write(ctx context.Context, w io.Writer, repo Lister, profileID string, format Format) (int, error) {
	facts, err := ActiveFacts(ctx, repo, profileID)
	if err != nil {
		return 0, err
	}
	switch format {
	case FormatText:
		err = WriteText(w, facts, time.Now())
	default:
		err = WriteCSV(w, facts)
	}
	return len(facts), err
}
