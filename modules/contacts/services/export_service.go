package services

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
)

const exportSheet = "Contacts"

// exportHeaders are chosen so an exported workbook maps back automatically on import.
var exportHeaders = []interface{}{
	"First Name", "Last Name", "Email", "Phone", "Address Line 1", "Address Line 2",
	"City", "State", "Zip", "Country", "Organization", "Relationship", "Notes", "Tags",
	"Total Donation", "Last Donation Date", "Warmth",
}

type ExportService struct {
	repo contact.Repository
}

func NewExportService(repo contact.Repository) *ExportService {
	return &ExportService{repo: repo}
}

// WriteXLSX writes every contact of ownerID to w and returns the row count.
func (s *ExportService) WriteXLSX(ctx context.Context, ownerID uuid.UUID, w io.Writer) (int, error) {
	contacts, err := s.repo.FindAll(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, err
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return 0, err
	}
	if err := sw.SetRow("A1", exportHeaders); err != nil {
		return 0, err
	}
	for i, c := range contacts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return 0, err
		}
		lastDonation := ""
		if c.LastDonationAt != nil {
			lastDonation = c.LastDonationAt.Format("2006-01-02")
		}
		row := []interface{}{
			c.FirstName, c.LastName, c.Email, c.Phone, c.AddressLine1, c.AddressLine2,
			c.City, c.State, c.Zip, c.Country, c.Organization, c.Relationship, c.Notes, c.Tags,
			c.TotalDonation.StringFixed(2), lastDonation, c.WarmthScore,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return 0, err
		}
	}
	if err := sw.Flush(); err != nil {
		return 0, err
	}
	if _, err := f.WriteTo(w); err != nil {
		return 0, err
	}
	return len(contacts), nil
}
