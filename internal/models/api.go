package models

// ScrapeResponse is returned by the scrape trigger.
type ScrapeResponse struct {
	Message string `json:"message"`
}

// ErrorResponse carries the reason a request was refused.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ProductsResponse is a page of stored products from the latest run.
type ProductsResponse struct {
	Data       []Product  `json:"data"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
}
