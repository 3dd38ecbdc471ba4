package waitlist

import (
	"github.com/miniquinox/billsync/internal/models"
	"github.com/miniquinox/billsync/internal/trigger"
	"github.com/miniquinox/billsync/pkg/constants"
)

type CreateWaitlistEntryRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Email   string `json:"email" binding:"required,email,max=255"`
	Company string `json:"company" binding:"required,max=255"`
}

type WaitlistEntryResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	CreatedAt string `json:"created_at"`
}

func ToWaitlistEntryModel(req *CreateWaitlistEntryRequest) *models.WaitlistEntry {
	if req == nil {
		return nil
	}
	return &models.WaitlistEntry{
		Name:    req.Name,
		Email:   req.Email,
		Company: req.Company,
	}
}

func ToWaitlistEntryResponse(entry *models.WaitlistEntry) WaitlistEntryResponse {
	if entry == nil {
		return WaitlistEntryResponse{}
	}
	return WaitlistEntryResponse{
		ID:        entry.ID,
		Name:      entry.Name,
		Email:     entry.Email,
		Company:   entry.Company,
		CreatedAt: entry.CreatedAt.Format(constants.RFC3339DateTimeFormat),
	}
}

func toRowInserted(entry *models.WaitlistEntry) trigger.RowInserted {
	return trigger.RowInserted{
		Table: constants.WaitlistTable,
		Record: trigger.Record{
			ID:        entry.ID,
			Name:      entry.Name,
			Email:     entry.Email,
			Company:   entry.Company,
			CreatedAt: entry.CreatedAt,
		},
	}
}
