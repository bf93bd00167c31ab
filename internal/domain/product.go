package domain

import "time"

type Product struct {
	ID                 string    `json:"id"`
	OrganizationID     string    `json:"organizationId"`
	Key                string    `json:"key"`
	Name               string    `json:"name"`
	IsArchived         bool      `json:"isArchived"`
	ProcessorProductID string    `json:"-"`
	CreatedAt          time.Time `json:"createdAt"`
}
