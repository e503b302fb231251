package tabular

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"signalarchive/internal/models"
	"signalarchive/internal/repository"
)

// Store backs Source and Sink with the sheet_tabs/sheet_rows tables.
type Store struct {
	Repo repository.Repository
}

var _ Source = (*Store)(nil)
var _ Sink = (*Store)(nil)

func (s *Store) ReadAll(ctx context.Context, name string) (*Table, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	tab, err := s.Repo.GetSheetTab(ctx, name)
	if err != nil {
		return nil, err
	}
	if tab == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}

	var headers []string
	if err := json.Unmarshal(tab.Headers, &headers); err != nil {
		return nil, fmt.Errorf("decode headers of %s: %w", name, err)
	}

	rows, err := s.Repo.ListSheetRows(ctx, name)
	if err != nil {
		return nil, err
	}
	out := &Table{Name: name, Headers: headers, Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		var cells []string
		if err := json.Unmarshal(row.Cells, &cells); err != nil {
			return nil, fmt.Errorf("decode row %d of %s: %w", row.Position, name, err)
		}
		out.Rows = append(out.Rows, cells)
	}
	return out, nil
}

func (s *Store) EnsureSchema(ctx context.Context, name string, headers []string) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	existing, err := s.Repo.GetSheetTab(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	raw, err := json.Marshal(headers)
	if err != nil {
		return err
	}
	return s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.UpsertSheetTabTx(ctx, tx, &models.SheetTab{
			Name:    name,
			Headers: datatypes.JSON(raw),
		})
	})
}

func (s *Store) AppendRows(ctx context.Context, name string, rows [][]string) error {
	if s == nil || s.Repo == nil || len(rows) == 0 {
		return nil
	}
	tab, err := s.Repo.GetSheetTab(ctx, name)
	if err != nil {
		return err
	}
	if tab == nil {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	next, err := s.Repo.MaxSheetRowPosition(ctx, name)
	if err != nil {
		return err
	}
	items := make([]models.SheetRow, 0, len(rows))
	for i, cells := range rows {
		raw, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		items = append(items, models.SheetRow{
			Tab:      name,
			Position: next + 1 + i,
			Cells:    datatypes.JSON(raw),
		})
	}
	return s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.InsertSheetRowsTx(ctx, tx, items)
	})
}

func (s *Store) DeleteRows(ctx context.Context, name string, positions []int) error {
	if s == nil || s.Repo == nil || len(positions) == 0 {
		return nil
	}
	return s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.DeleteSheetRowsTx(ctx, tx, name, positions)
	})
}

// Replace swaps a table's header and full row set atomically. Used by the
// operator CSV ingest endpoint.
func (s *Store) Replace(ctx context.Context, t *Table) error {
	if s == nil || s.Repo == nil || t == nil {
		return nil
	}
	headerRaw, err := json.Marshal(t.Headers)
	if err != nil {
		return err
	}
	items := make([]models.SheetRow, 0, len(t.Rows))
	for i, cells := range t.Rows {
		raw, err := json.Marshal(cells)
		if err != nil {
			return err
		}
		items = append(items, models.SheetRow{
			Tab:      t.Name,
			Position: i + 1,
			Cells:    datatypes.JSON(raw),
		})
	}
	return s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.UpsertSheetTabTx(ctx, tx, &models.SheetTab{
			Name:    t.Name,
			Headers: datatypes.JSON(headerRaw),
		}); err != nil {
			return err
		}
		if err := s.Repo.DeleteAllSheetRowsTx(ctx, tx, t.Name); err != nil {
			return err
		}
		return s.Repo.InsertSheetRowsTx(ctx, tx, items)
	})
}
