package model

// Show is a listing in the public show catalog.
type Show struct {
	ID          string  `json:"id" validate:"required,tenantid"`
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"img,omitempty"`
	Theatre     string  `json:"theatre,omitempty"`
	Venue       string  `json:"venue,omitempty"`
	Price       float64 `json:"price"`
	// Date is a unix timestamp in seconds, sortable in the index.
	Date int64 `json:"date"`
}
